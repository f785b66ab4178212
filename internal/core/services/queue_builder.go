package services

import (
	"fmt"
	"math"
	"slices"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

const (
	transitionWeight = 0.4
	energyWeight     = 0.3
	diversityWeight  = 0.2
	preferenceWeight = 0.1

	// openingTransitionScore stands in for the weighted transition score when
	// there is no previous track to mix from.
	openingTransitionScore = 40
	minSelectionScore      = 30
	neutralPreferenceScore = 70
	waveAmplitude          = 0.2
)

// QueueConfig tunes queue building. Modes maps a mode name to its profile.
type QueueConfig struct {
	MinQueueSize      int
	MaxQueueSize      int
	DiversityFactor   float64
	ArtistRepeatLimit int
	DiscoveryRatio    float64
	Modes             map[string]domain.ModeProfile
}

// DefaultQueueConfig returns the stock queue settings and built-in modes.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MinQueueSize:      5,
		MaxQueueSize:      20,
		DiversityFactor:   0.3,
		ArtistRepeatLimit: 3,
		DiscoveryRatio:    0.2,
		Modes:             domain.DefaultModeProfiles(),
	}
}

// Profile resolves a mode name, falling back to a neutral profile.
func (c QueueConfig) Profile(mode string) domain.ModeProfile {
	if mode == "" {
		mode = domain.DefaultMode
	}
	if p, ok := c.Modes[mode]; ok {
		if p.Name == "" {
			p.Name = mode
		}
		if !p.EnergyCurve.Valid() {
			p.EnergyCurve = domain.CurveSteady
		}
		return p
	}
	return domain.NeutralProfile(mode)
}

// PreferenceModel scores how much the listener is expected to like a track, 0-100.
type PreferenceModel interface {
	Score(t domain.Track) float64
}

// NeutralPreference scores every track the same.
type NeutralPreference struct{}

// Score implements PreferenceModel.
func (NeutralPreference) Score(domain.Track) float64 {
	return neutralPreferenceScore
}

// StopReason explains why a build ended.
type StopReason string

const (
	StopFilled        StopReason = "filled"
	StopNoCandidates  StopReason = "no_candidates"
	StopBelowFloor    StopReason = "below_floor"
	StopPoolExhausted StopReason = "pool_exhausted"
)

// BuildOptions controls a single Build call.
type BuildOptions struct {
	Size         int
	Mode         string
	CurrentTrack *domain.Track
	TargetEnergy *float64
	Preference   PreferenceModel
}

// BuildResult is the outcome of a Build call. A short queue is not an error;
// Stop says why building ended.
type BuildResult struct {
	Entries      []domain.QueueEntry `json:"entries"`
	Stop         StopReason          `json:"stop"`
	Mode         string              `json:"mode"`
	TargetEnergy float64             `json:"target_energy"`
	Requested    int                 `json:"requested"`
}

// Tracks returns the built tracks in playback order.
func (r BuildResult) Tracks() []domain.Track {
	out := make([]domain.Track, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Track
	}
	return out
}

// QueueBuilder grows a queue one slot at a time, always committing the best
// scoring candidate. It is deterministic and keeps no state between calls.
type QueueBuilder struct {
	analyzer CompatibilityAnalyzer
	cfg      QueueConfig
}

// NewQueueBuilder constructs a QueueBuilder.
func NewQueueBuilder(analyzer CompatibilityAnalyzer, cfg QueueConfig) *QueueBuilder {
	return &QueueBuilder{analyzer: analyzer, cfg: cfg}
}

// Config returns the configuration the builder was built with.
func (b *QueueBuilder) Config() QueueConfig {
	return b.cfg
}

type candidateScore struct {
	total      float64
	transition float64
	technique  domain.Technique
	energyFit  float64
	diversity  float64
	preference float64
}

// Build selects up to opts.Size tracks from pool. The pool and history are
// read but never modified.
func (b *QueueBuilder) Build(pool []domain.Track, history *domain.History, opts BuildOptions) BuildResult {
	profile := b.cfg.Profile(opts.Mode)
	size := b.resolveSize(opts.Size)
	target := profile.TargetEnergy
	if opts.TargetEnergy != nil {
		target = *opts.TargetEnergy
	}
	pref := opts.Preference
	if pref == nil {
		pref = NeutralPreference{}
	}

	res := BuildResult{Mode: profile.Name, TargetEnergy: target, Requested: size, Stop: StopFilled}
	if len(pool) == 0 {
		res.Stop = StopNoCandidates
		return res
	}

	remaining := slices.Clone(pool)
	last := opts.CurrentTrack
	for i := 0; i < size; i++ {
		if len(remaining) == 0 {
			res.Stop = StopPoolExhausted
			break
		}

		bestIdx := -1
		var best candidateScore
		for idx, candidate := range remaining {
			s := b.scoreCandidate(candidate, last, history, pref, profile, target, i, size)
			if bestIdx < 0 || s.total > best.total {
				bestIdx, best = idx, s
			}
		}
		if best.total < minSelectionScore {
			res.Stop = StopBelowFloor
			break
		}

		winner := remaining[bestIdx]
		res.Entries = append(res.Entries, domain.QueueEntry{
			Track:    winner,
			Position: i,
			Score:    best.total,
			Reason:   best.reason(last),
		})
		last = &winner
		remaining = slices.DeleteFunc(remaining, func(t domain.Track) bool { return t.ID == winner.ID })
	}

	return res
}

func (b *QueueBuilder) resolveSize(requested int) int {
	size := requested
	if size <= 0 {
		size = b.cfg.MinQueueSize
	}
	if b.cfg.MaxQueueSize > 0 && size > b.cfg.MaxQueueSize {
		size = b.cfg.MaxQueueSize
	}
	return size
}

func (b *QueueBuilder) scoreCandidate(
	candidate domain.Track,
	last *domain.Track,
	history *domain.History,
	pref PreferenceModel,
	profile domain.ModeProfile,
	target float64,
	position int,
	total int,
) candidateScore {
	var s candidateScore
	if last != nil {
		compat := b.analyzer.Analyze(*last, candidate)
		s.transition = compat.Score
		s.technique = compat.Technique
		s.total += compat.Score * transitionWeight
	} else {
		s.total += openingTransitionScore
	}

	s.energyFit = EnergyFitScore(candidate.Features.EnergyOr(domain.NeutralEnergy), profile, target, position, total)
	s.total += s.energyFit * energyWeight

	s.diversity = b.diversityScore(candidate, history)
	s.total += s.diversity * diversityWeight

	s.preference = pref.Score(candidate)
	s.total += s.preference * preferenceWeight

	return s
}

func (s candidateScore) reason(last *domain.Track) string {
	if last == nil {
		return fmt.Sprintf("opener: energy fit %.0f, diversity %.0f", s.energyFit, s.diversity)
	}
	return fmt.Sprintf("%s from %q (%.1f): energy fit %.0f, diversity %.0f", s.technique, last.Title, s.transition, s.energyFit, s.diversity)
}

// IdealEnergy is the energy the curve asks for at position of total slots.
func IdealEnergy(curve domain.EnergyCurve, target float64, position, total int) float64 {
	switch curve {
	case domain.CurveAscending:
		start, end := target*0.7, target*1.1
		return start + (end-start)*float64(position)/float64(max(1, total-1))
	case domain.CurveWave:
		if total < 1 {
			return target
		}
		return target * (1 + waveAmplitude*math.Sin(float64(position)*2*math.Pi/float64(total)))
	}
	return target
}

// EnergyFitScore is 100 inside the profile's variance around the ideal energy
// and falls off linearly outside it.
func EnergyFitScore(energy float64, profile domain.ModeProfile, target float64, position, total int) float64 {
	diff := math.Abs(energy - IdealEnergy(profile.EnergyCurve, target, position, total))
	if within(diff, profile.EnergyVariance) {
		return 100
	}
	return math.Max(0, 100-diff*200)
}

func (b *QueueBuilder) diversityScore(candidate domain.Track, history *domain.History) float64 {
	score := 100.0
	if n := history.ArtistCount(candidate.Artist); n > 0 {
		limit := max(1, b.cfg.ArtistRepeatLimit)
		penalty := math.Min(50, float64(n)/float64(limit)*50)
		score -= penalty * b.cfg.DiversityFactor
	}
	if !history.Contains(candidate.ID) {
		score += 20 * b.cfg.DiscoveryRatio
	}
	return math.Max(0, math.Min(100, score))
}
