package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
)

var (
	// ErrNoActiveSession is returned by operations that need a running session.
	ErrNoActiveSession = errors.New("service: no active session")
	// ErrUnknownMode is returned when a session is started with a mode that has no profile.
	ErrUnknownMode = errors.New("service: unknown mode")
)

const (
	lateSkipFraction   = 0.8
	similarEnergyDelta = 0.1
	defaultAvoidTempo  = 120

	excellentTransitionScore = 85
	lowCompatibilityScore    = 60
	rebuildAverageScore      = 75
)

// SessionConfig tunes the session service.
type SessionConfig struct {
	LearnFromSkips bool
	SkipThreshold  float64
	CandidateLimit int
	// RespectUserQueue rebuilds the queue behind a track the listener picked
	// instead of the queue head.
	RespectUserQueue bool
}

// DefaultSessionConfig returns the stock session settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		LearnFromSkips:   true,
		SkipThreshold:    0.3,
		CandidateLimit:   50,
		RespectUserQueue: true,
	}
}

// SessionDeps wires a SessionService. Classifier, Events and Logger are optional.
type SessionDeps struct {
	Catalog    ports.TrackCatalog
	Repo       ports.SessionRepository
	Events     ports.EventSink
	Classifier ports.MoodClassifier
	Matcher    *BeatMatcher
	Builder    *QueueBuilder
	Config     SessionConfig
	Logger     *slog.Logger
}

// StartOptions describes a new session. Prompt is classified into a mode
// when a classifier is configured; an explicit TargetEnergy always wins.
type StartOptions struct {
	Mode         string
	TargetEnergy *float64
	Prompt       string
	Seed         *domain.Track
}

// SessionSummary is returned when a session stops.
type SessionSummary struct {
	Session         domain.Session `json:"session"`
	Queued          int            `json:"queued"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// SkipKind classifies a skip by how much of the track was played.
type SkipKind string

const (
	SkipEarly   SkipKind = "early_skip"
	SkipMid     SkipKind = "mid_skip"
	SkipNeutral SkipKind = "neutral"
)

// SkipOutcome reports what a skip changed.
type SkipOutcome struct {
	Fraction float64  `json:"fraction"`
	Kind     SkipKind `json:"kind"`
	Learned  bool     `json:"learned"`
	Removed  int      `json:"removed"`
	Rebuilt  bool     `json:"rebuilt"`
}

// TransitionAnalysis pairs a compatibility breakdown with its mix window.
type TransitionAnalysis struct {
	Compatibility   domain.CompatibilityResult `json:"compatibility"`
	TransitionPoint domain.TransitionPoint     `json:"transition_point"`
}

// QueueCompatibility summarises how well a track mixes into each queued track.
type QueueCompatibility struct {
	Track           domain.Track `json:"track"`
	Compared        int          `json:"compared"`
	Average         float64      `json:"average_compatibility"`
	Min             float64      `json:"min_compatibility"`
	Max             float64      `json:"max_compatibility"`
	Recommendations []string     `json:"recommendations"`
}

// SessionRecord is a persisted session with the queue it last saved.
type SessionRecord struct {
	Session domain.Session      `json:"session"`
	Queue   []domain.QueueEntry `json:"queue"`
}

// SkipPreference scores tracks down by how often the listener has skipped them.
type SkipPreference struct {
	Counts map[string]int
}

// Score implements PreferenceModel.
func (p SkipPreference) Score(t domain.Track) float64 {
	return math.Max(0, math.Min(100, neutralPreferenceScore-15*float64(p.Counts[t.ID])))
}

// SessionService runs the single active DJ session. It is safe for
// concurrent use; every operation holds the session lock for its duration.
type SessionService struct {
	catalog    ports.TrackCatalog
	repo       ports.SessionRepository
	events     ports.EventSink
	classifier ports.MoodClassifier
	matcher    *BeatMatcher
	builder    *QueueBuilder
	optimizer  *QueueOptimizer
	cfg        SessionConfig
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	session *domain.Session
	queue   *domain.Queue
	history *domain.History
}

// NewSessionService constructs a SessionService.
func NewSessionService(deps SessionDeps) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		catalog:    deps.Catalog,
		repo:       deps.Repo,
		events:     deps.Events,
		classifier: deps.Classifier,
		matcher:    deps.Matcher,
		builder:    deps.Builder,
		optimizer:  NewQueueOptimizer(deps.Matcher),
		cfg:        deps.Config,
		logger:     logger.With("component", "session"),
		now:        time.Now,
	}
}

// Start begins a new session and builds its initial queue. A session that is
// already running is stopped first.
func (s *SessionService) Start(ctx context.Context, opts StartOptions) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Resolve the mode, consulting the classifier for free-text requests
	mode, target, err := s.resolveMode(ctx, opts)
	if err != nil {
		return domain.Session{}, err
	}

	// 2. Seed the recency window from persisted plays
	history := domain.NewHistory(s.builder.Config().ArtistRepeatLimit)
	recent, err := s.repo.RecentPlays(ctx, history.Cap())
	if err != nil {
		return domain.Session{}, fmt.Errorf("service: failed to load recent plays: %w", err)
	}
	for _, t := range recent {
		history.Add(t)
	}

	sess := domain.Session{
		ID:           uuid.NewString(),
		Mode:         mode,
		TargetEnergy: target,
		Status:       domain.SessionActive,
		StartedAt:    s.now().UTC(),
	}

	// 3. Build the initial queue; nothing is committed until it exists
	entries, err := s.planQueue(ctx, sess, history, opts.Seed)
	if err != nil {
		return domain.Session{}, err
	}

	if s.session != nil {
		if _, err := s.stopLocked(ctx); err != nil {
			return domain.Session{}, err
		}
	}

	// 4. Persist and activate
	if err := s.repo.SaveSession(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("service: failed to save session: %w", err)
	}
	queue := domain.NewQueue(entries)
	if err := s.repo.SaveQueue(ctx, sess.ID, queue.Entries()); err != nil {
		s.abandon(ctx, sess)
		return domain.Session{}, fmt.Errorf("service: failed to save queue: %w", err)
	}

	s.session = &sess
	s.history = history
	s.queue = queue
	s.publish(ctx, domain.Event{Kind: domain.EventSessionStarted, SessionID: sess.ID, Mode: mode})
	s.logger.Info("session started", "session_id", sess.ID, "mode", mode, "target_energy", target)
	s.publishQueued(ctx)
	return sess, nil
}

// abandon marks a session that failed to start as stopped so it is never
// mistaken for a running one.
func (s *SessionService) abandon(ctx context.Context, sess domain.Session) {
	stopped := s.now().UTC()
	sess.Status = domain.SessionStopped
	sess.StoppedAt = &stopped
	if err := s.repo.SaveSession(ctx, sess); err != nil {
		s.logger.Warn("failed to mark abandoned session stopped", "session_id", sess.ID, "error", err)
	}
}

// Stop ends the active session and returns its summary.
func (s *SessionService) Stop(ctx context.Context) (SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *SessionService) stopLocked(ctx context.Context) (SessionSummary, error) {
	if s.session == nil {
		return SessionSummary{}, ErrNoActiveSession
	}

	stopped := s.now().UTC()
	sess := *s.session
	sess.Status = domain.SessionStopped
	sess.StoppedAt = &stopped
	if err := s.repo.SaveSession(ctx, sess); err != nil {
		return SessionSummary{}, fmt.Errorf("service: failed to save session: %w", err)
	}

	summary := SessionSummary{
		Session:         sess,
		Queued:          s.queue.Len(),
		DurationSeconds: stopped.Sub(sess.StartedAt).Seconds(),
	}
	s.publish(ctx, domain.Event{Kind: domain.EventSessionStopped, SessionID: sess.ID, Mode: sess.Mode})
	s.logger.Info("session stopped",
		"session_id", sess.ID,
		"played", sess.TracksPlayed,
		"skipped", sess.TracksSkipped,
		"queued", summary.Queued,
	)

	s.session = nil
	s.queue = nil
	s.history = nil
	return summary, nil
}

// Status returns the active session, if any.
func (s *SessionService) Status() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return domain.Session{}, false
	}
	return *s.session, true
}

// Queue returns the active session's queue.
func (s *SessionService) Queue() ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrNoActiveSession
	}
	return s.queue.Entries(), nil
}

// AnalyzeTransition scores a mix between two tracks. It does not need a session.
func (s *SessionService) AnalyzeTransition(from, to domain.Track) TransitionAnalysis {
	return TransitionAnalysis{
		Compatibility:   s.matcher.Analyze(from, to),
		TransitionPoint: s.matcher.FindTransitionPoint(from, to),
	}
}

// QueueCompatibility scores t against every queued track. An empty queue
// yields zero scores and no recommendations.
func (s *SessionService) QueueCompatibility(t domain.Track) (QueueCompatibility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return QueueCompatibility{}, ErrNoActiveSession
	}

	out := QueueCompatibility{Track: t, Recommendations: []string{}}
	entries := s.queue.Entries()
	if len(entries) == 0 {
		return out, nil
	}

	sum := 0.0
	for i, e := range entries {
		score := s.matcher.Analyze(t, e.Track).Score
		sum += score
		if i == 0 || score < out.Min {
			out.Min = score
		}
		if i == 0 || score > out.Max {
			out.Max = score
		}
	}
	out.Compared = len(entries)
	out.Average = math.Round(sum/float64(len(entries))*10) / 10

	if out.Min < lowCompatibilityScore {
		out.Recommendations = append(out.Recommendations, "Some tracks in queue have low compatibility")
	}
	if out.Average < rebuildAverageScore {
		out.Recommendations = append(out.Recommendations, "Consider rebuilding queue for better flow")
	}
	return out, nil
}

// Lookup loads a persisted session, running or not, with its saved queue.
func (s *SessionService) Lookup(ctx context.Context, id string) (SessionRecord, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("service: failed to load session %q: %w", id, err)
	}
	queue, err := s.repo.LoadQueue(ctx, id)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("service: failed to load queue for session %q: %w", id, err)
	}
	if queue == nil {
		queue = []domain.QueueEntry{}
	}
	return SessionRecord{Session: sess, Queue: queue}, nil
}

// Rebuild replaces the queue with a fresh build that follows current.
func (s *SessionService) Rebuild(ctx context.Context, current *domain.Track) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrNoActiveSession
	}
	if err := s.rebuildLocked(ctx, current); err != nil {
		return nil, err
	}
	return s.queue.Entries(), nil
}

// Optimize re-sequences the queue for smoother transitions.
func (s *SessionService) Optimize(ctx context.Context) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrNoActiveSession
	}

	s.queue = s.optimizer.OptimizeQueue(s.queue)
	if err := s.repo.SaveQueue(ctx, s.session.ID, s.queue.Entries()); err != nil {
		return nil, fmt.Errorf("service: failed to save queue: %w", err)
	}
	return s.queue.Entries(), nil
}

// TrackChanged records that t started playing. The track leaves the queue and
// the queue is rebuilt behind it once it runs short, or straight away when the
// listener picked something other than the queue head.
func (s *SessionService) TrackChanged(ctx context.Context, t domain.Track) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrNoActiveSession
	}

	var previous *domain.Track
	if played := s.history.Tracks(); s.session.TracksPlayed > 0 && len(played) > 0 {
		previous = &played[len(played)-1]
	}
	overridden := false
	if entries := s.queue.Entries(); s.cfg.RespectUserQueue && len(entries) > 0 {
		overridden = entries[0].Track.ID != t.ID
	}

	// 1. Record the play
	if err := s.repo.RecordPlay(ctx, s.session.ID, t, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("service: failed to record play: %w", err)
	}
	s.history.Add(t)
	s.session.TracksPlayed++
	if err := s.repo.SaveSession(ctx, *s.session); err != nil {
		return nil, fmt.Errorf("service: failed to save session: %w", err)
	}

	// 2. Learn from what was played
	s.learnFromPlay(ctx, previous, t)

	// 3. Advance the queue
	s.queue.Remove(t.ID)
	switch {
	case overridden:
		s.logger.Info("listener overrode queue selection", "session_id", s.session.ID, "track", t.Title)
		if err := s.rebuildLocked(ctx, &t); err != nil {
			return nil, err
		}
	case s.queue.Len() < s.builder.Config().MinQueueSize:
		if err := s.rebuildLocked(ctx, &t); err != nil {
			return nil, err
		}
	default:
		if err := s.repo.SaveQueue(ctx, s.session.ID, s.queue.Entries()); err != nil {
			return nil, fmt.Errorf("service: failed to save queue: %w", err)
		}
	}
	return s.queue.Entries(), nil
}

func (s *SessionService) learnFromPlay(ctx context.Context, previous *domain.Track, t domain.Track) {
	var prefs []domain.Preference
	if previous != nil && previous.ID != t.ID {
		res := s.matcher.Analyze(*previous, t)
		if res.Score > excellentTransitionScore {
			s.logger.Info("excellent transition", "session_id", s.session.ID, "score", res.Score, "technique", res.Technique)
			prefs = append(prefs, domain.Preference{Kind: "transition_style", Value: res.Score, Weight: 0.8, Reason: string(res.Technique), TrackID: t.ID})
		}
	}

	now := s.now()
	prefs = append(prefs,
		domain.Preference{Kind: "time_of_day", Value: float64(now.Hour()), Weight: 0.3, Reason: "played", TrackID: t.ID},
		domain.Preference{Kind: "day_of_week", Value: float64(now.Weekday()), Weight: 0.2, Reason: "played", TrackID: t.ID},
	)
	if t.Features.Energy != nil {
		prefs = append(prefs, domain.Preference{Kind: "energy", Value: *t.Features.Energy, Weight: 0.5, Reason: "played", TrackID: t.ID})
	}
	if tempo, ok := t.Features.TempoBPM(); ok {
		prefs = append(prefs, domain.Preference{Kind: "tempo", Value: tempo, Weight: 0.4, Reason: "played", TrackID: t.ID})
	}

	for i := range prefs {
		s.publish(ctx, domain.Event{Kind: domain.EventPreferenceLearned, SessionID: s.session.ID, Mode: s.session.Mode, Preference: &prefs[i]})
	}
}

// TrackSkipped learns from a skip after playedMs of t. Early skips also clear
// similar tracks out of the queue.
func (s *SessionService) TrackSkipped(ctx context.Context, t domain.Track, playedMs int) (SkipOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return SkipOutcome{}, ErrNoActiveSession
	}

	fraction := float64(max(0, playedMs)) / float64(t.Duration())
	out := SkipOutcome{Fraction: fraction, Kind: s.classifySkip(fraction)}
	s.session.TracksSkipped++
	s.logger.Info("track skipped", "session_id", s.session.ID, "track", t.Title, "fraction", fraction, "kind", out.Kind)

	// 1. Learn from negative skips
	if s.cfg.LearnFromSkips && out.Kind != SkipNeutral {
		if err := s.repo.RecordSkip(ctx, s.session.ID, t, fraction, s.now().UTC()); err != nil {
			return SkipOutcome{}, fmt.Errorf("service: failed to record skip: %w", err)
		}
		s.learnAvoidance(ctx, t, out.Kind)
		out.Learned = true
	}
	if err := s.repo.SaveSession(ctx, *s.session); err != nil {
		return SkipOutcome{}, fmt.Errorf("service: failed to save session: %w", err)
	}

	if out.Kind != SkipEarly {
		return out, nil
	}

	// 2. Drop tracks that sound like the one that was skipped
	skippedEnergy := t.Features.EnergyOr(domain.NeutralEnergy)
	out.Removed = s.queue.RemoveWhere(func(e domain.QueueEntry) bool {
		if e.Track.Artist == t.Artist {
			return true
		}
		return math.Abs(e.Track.Features.EnergyOr(domain.NeutralEnergy)-skippedEnergy) < similarEnergyDelta
	})

	if s.queue.Len() < s.builder.Config().MinQueueSize {
		var current *domain.Track
		if played := s.history.Tracks(); len(played) > 0 {
			current = &played[len(played)-1]
		}
		if err := s.rebuildLocked(ctx, current); err != nil {
			return SkipOutcome{}, err
		}
		out.Rebuilt = true
	} else if err := s.repo.SaveQueue(ctx, s.session.ID, s.queue.Entries()); err != nil {
		return SkipOutcome{}, fmt.Errorf("service: failed to save queue: %w", err)
	}
	return out, nil
}

func (s *SessionService) classifySkip(fraction float64) SkipKind {
	switch {
	case fraction < s.cfg.SkipThreshold:
		return SkipEarly
	case fraction > lateSkipFraction:
		return SkipNeutral
	}
	return SkipMid
}

func (s *SessionService) learnAvoidance(ctx context.Context, t domain.Track, kind SkipKind) {
	if t.Features.Energy == nil && t.Features.Tempo == nil {
		return
	}
	tempo := float64(defaultAvoidTempo)
	if t.Features.Tempo != nil {
		tempo = *t.Features.Tempo
	}
	prefs := []domain.Preference{
		{Kind: "energy_avoid", Value: t.Features.EnergyOr(domain.NeutralEnergy), Weight: 0.7, Reason: string(kind), TrackID: t.ID},
		{Kind: "tempo_avoid", Value: tempo, Weight: 0.6, Reason: string(kind), TrackID: t.ID},
	}
	for i := range prefs {
		s.publish(ctx, domain.Event{Kind: domain.EventPreferenceLearned, SessionID: s.session.ID, Mode: s.session.Mode, Preference: &prefs[i]})
	}
}

func (s *SessionService) resolveMode(ctx context.Context, opts StartOptions) (string, float64, error) {
	modes := s.builder.Config().Modes
	mode := opts.Mode
	if mode == "" {
		mode = domain.DefaultMode
	} else if _, ok := modes[mode]; !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	var classified *float64
	if opts.Prompt != "" && s.classifier != nil {
		intent, err := s.classifier.ClassifyMood(ctx, opts.Prompt)
		switch {
		case err != nil:
			s.logger.Warn("mood classification failed, keeping requested mode", "mode", mode, "error", err)
		case intent.Mode == "":
		default:
			if _, ok := modes[intent.Mode]; ok {
				mode = intent.Mode
				classified = intent.TargetEnergy
			} else {
				s.logger.Warn("classifier returned unknown mode", "mode", intent.Mode, "error", ErrUnknownMode)
			}
		}
	}

	target := s.builder.Config().Profile(mode).TargetEnergy
	switch {
	case opts.TargetEnergy != nil:
		target = *opts.TargetEnergy
	case classified != nil:
		target = *classified
	}
	return mode, math.Max(0, math.Min(1, target)), nil
}

func (s *SessionService) rebuildLocked(ctx context.Context, current *domain.Track) error {
	entries, err := s.planQueue(ctx, *s.session, s.history, current)
	if err != nil {
		return err
	}
	s.queue = domain.NewQueue(entries)
	if err := s.repo.SaveQueue(ctx, s.session.ID, s.queue.Entries()); err != nil {
		return fmt.Errorf("service: failed to save queue: %w", err)
	}
	s.publishQueued(ctx)
	return nil
}

// planQueue fetches candidates and builds a queue for sess. It reads service
// state but never changes it.
func (s *SessionService) planQueue(ctx context.Context, sess domain.Session, history *domain.History, current *domain.Track) ([]domain.QueueEntry, error) {
	profile := s.builder.Config().Profile(sess.Mode)

	pool, err := s.catalog.Candidates(ctx, ports.CandidateQuery{
		Genres:       profile.Genres,
		Seed:         current,
		TargetEnergy: sess.TargetEnergy,
		TempoRange:   profile.TempoRange,
		Limit:        s.cfg.CandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch candidates: %w", err)
	}
	if current != nil {
		pool = excludeTrack(pool, current.ID)
	}

	res := s.builder.Build(pool, history, BuildOptions{
		Size:         s.builder.Config().MinQueueSize,
		Mode:         sess.Mode,
		CurrentTrack: current,
		TargetEnergy: &sess.TargetEnergy,
		Preference:   s.preference(ctx, pool),
	})
	if res.Stop != StopFilled {
		s.logger.Warn("queue built short", "session_id", sess.ID, "built", len(res.Entries), "requested", res.Requested, "stop", res.Stop)
	}
	return res.Entries, nil
}

func (s *SessionService) publishQueued(ctx context.Context) {
	for _, e := range s.queue.Entries() {
		entry := e
		s.publish(ctx, domain.Event{Kind: domain.EventTrackQueued, SessionID: s.session.ID, Mode: s.session.Mode, Entry: &entry})
	}
}

func (s *SessionService) preference(ctx context.Context, pool []domain.Track) PreferenceModel {
	if len(pool) == 0 {
		return NeutralPreference{}
	}
	ids := make([]string, len(pool))
	for i, t := range pool {
		ids[i] = t.ID
	}
	counts, err := s.repo.SkipCounts(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to load skip counts, using neutral preference", "error", err)
		return NeutralPreference{}
	}
	return SkipPreference{Counts: counts}
}

func (s *SessionService) publish(ctx context.Context, e domain.Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, e)
}

func excludeTrack(pool []domain.Track, id string) []domain.Track {
	out := make([]domain.Track, 0, len(pool))
	for _, t := range pool {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
