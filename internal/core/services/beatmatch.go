// Package services holds the DJ engine: pairwise compatibility scoring,
// greedy queue building and queue re-sequencing, plus the session service
// that drives them from catalog, repository and event ports.
package services

import (
	"math"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// BeatMatchConfig tunes compatibility scoring. It is passed by value and never
// mutated after a BeatMatcher is built.
type BeatMatchConfig struct {
	BPMTolerance        float64
	AllowDoubleTempo    bool
	KeyCompatibility    bool
	CamelotStrict       bool
	AllowRelativeKeys   bool
	EnergyTransitionMax float64
	PreferHarmonic      bool
	CrossfadeDuration   int // seconds
	OutroDetection      bool
	IntroSkip           bool

	// LegacyModePairing scores the outgoing key with the incoming track's
	// mode, matching scores produced by older releases.
	LegacyModePairing bool
}

// DefaultBeatMatchConfig returns the stock mixing rules.
func DefaultBeatMatchConfig() BeatMatchConfig {
	return BeatMatchConfig{
		BPMTolerance:        0.16,
		AllowDoubleTempo:    true,
		KeyCompatibility:    true,
		CamelotStrict:       false,
		AllowRelativeKeys:   true,
		EnergyTransitionMax: 0.2,
		PreferHarmonic:      true,
		CrossfadeDuration:   8,
		OutroDetection:      true,
		IntroSkip:           true,
	}
}

// CompatibilityAnalyzer scores how well one track mixes into another.
type CompatibilityAnalyzer interface {
	Analyze(from, to domain.Track) domain.CompatibilityResult
}

const (
	tempoMultipleScore = 85
	outroMs            = 30000
	longOutroMs        = 45000
	introSeconds       = 10
	longIntroSeconds   = 15
	highEnergy         = 0.7
)

var relationshipScores = map[domain.KeyRelationship]float64{
	domain.RelationSame:         100,
	domain.RelationRelative:     95,
	domain.RelationUpFifth:      90,
	domain.RelationDownFifth:    90,
	domain.RelationUpTone:       80,
	domain.RelationDownTone:     75,
	domain.RelationOther:        50,
	domain.RelationIncompatible: 25,
	domain.RelationDisabled:     100,
}

// BeatMatcher is the pairwise compatibility model. It is stateless apart from
// its configuration and safe for concurrent use.
type BeatMatcher struct {
	cfg BeatMatchConfig
}

var _ CompatibilityAnalyzer = (*BeatMatcher)(nil)

// NewBeatMatcher constructs a BeatMatcher.
func NewBeatMatcher(cfg BeatMatchConfig) *BeatMatcher {
	return &BeatMatcher{cfg: cfg}
}

// Config returns the configuration the matcher was built with.
func (m *BeatMatcher) Config() BeatMatchConfig {
	return m.cfg
}

// Analyze scores mixing from into to.
func (m *BeatMatcher) Analyze(from, to domain.Track) domain.CompatibilityResult {
	fromMode := from.Features.ModeOr(domain.Minor)
	toMode := to.Features.ModeOr(domain.Minor)
	if m.cfg.LegacyModePairing {
		fromMode = toMode
	}

	res := domain.CompatibilityResult{
		Tempo:  m.matchTempo(from.Features, to.Features),
		Key:    m.matchKey(from.Features.PitchClass(), fromMode, to.Features.PitchClass(), toMode),
		Energy: m.energyTransition(from.Features.EnergyOr(domain.NeutralEnergy), to.Features.EnergyOr(domain.NeutralEnergy)),
	}
	res.Score = m.combine(res.Tempo, res.Key, res.Energy)
	res.RecommendedCrossfade = m.crossfadeFor(res.Score)
	res.Technique = chooseTechnique(res)
	return res
}

// FindTransitionPoint picks the mix window from duration and energy alone.
func (m *BeatMatcher) FindTransitionPoint(from, to domain.Track) domain.TransitionPoint {
	duration := float64(from.Duration())
	outro := float64(outroMs)
	if m.cfg.OutroDetection && from.Features.EnergyOr(domain.NeutralEnergy) > highEnergy {
		outro = longOutroMs
	}

	skip := 0.0
	if m.cfg.IntroSkip {
		skip = introSeconds
		if to.Features.EnergyOr(domain.NeutralEnergy) > highEnergy {
			skip = longIntroSeconds
		}
	}

	return domain.TransitionPoint{
		StartFade: math.Max(0, duration-outro) / 1000,
		EndFade:   duration / 1000,
		SkipTo:    skip,
		Technique: m.Analyze(from, to).Technique,
	}
}

func (m *BeatMatcher) matchTempo(from, to domain.AudioFeatures) domain.TempoMatch {
	a, okA := from.TempoBPM()
	b, okB := to.TempoBPM()
	if !okA || !okB {
		return domain.TempoMatch{Technique: domain.TechniqueUnknown}
	}

	diff := math.Abs(a - b)
	pct := diff / a
	if within(pct, m.cfg.BPMTolerance) {
		return domain.TempoMatch{
			Compatible: true,
			Difference: diff,
			Percentage: pct,
			Technique:  domain.TechniqueBeatmatch,
			Score:      100 - pct*100,
		}
	}

	if m.cfg.AllowDoubleTempo {
		if d := math.Abs(a - b*2); within(d/a, m.cfg.BPMTolerance) {
			return domain.TempoMatch{Compatible: true, Difference: d, Percentage: d / a, Technique: domain.TechniqueDoubleTempo, Score: tempoMultipleScore}
		}
		if d := math.Abs(a - b/2); within(d/a, m.cfg.BPMTolerance) {
			return domain.TempoMatch{Compatible: true, Difference: d, Percentage: d / a, Technique: domain.TechniqueHalfTempo, Score: tempoMultipleScore}
		}
	}

	return domain.TempoMatch{
		Difference: diff,
		Percentage: pct,
		Technique:  domain.TechniqueFade,
		Score:      math.Max(0, 50-pct*100),
	}
}

func (m *BeatMatcher) matchKey(keyA int, modeA domain.Mode, keyB int, modeB domain.Mode) domain.KeyMatch {
	if !m.cfg.KeyCompatibility {
		return domain.KeyMatch{Compatible: true, Relationship: domain.RelationDisabled, Score: relationshipScores[domain.RelationDisabled]}
	}

	from := domain.CamelotOf(keyA, modeA)
	to := domain.CamelotOf(keyB, modeB)
	rel := camelotRelationship(from, to)
	return domain.KeyMatch{
		Compatible:   m.harmonicallyCompatible(rel),
		From:         from,
		To:           to,
		Relationship: rel,
		Score:        relationshipScores[rel],
	}
}

func camelotRelationship(from, to domain.CamelotKey) domain.KeyRelationship {
	if from == to {
		return domain.RelationSame
	}
	if from.Number == to.Number {
		return domain.RelationRelative
	}
	if from.Letter != to.Letter {
		return domain.RelationIncompatible
	}
	switch from.Step(to) {
	case 1:
		return domain.RelationUpFifth
	case 11:
		return domain.RelationDownFifth
	case 2:
		return domain.RelationUpTone
	case 10:
		return domain.RelationDownTone
	}
	return domain.RelationOther
}

func (m *BeatMatcher) harmonicallyCompatible(rel domain.KeyRelationship) bool {
	switch rel {
	case domain.RelationSame, domain.RelationUpFifth, domain.RelationDownFifth:
		return true
	case domain.RelationRelative:
		return m.cfg.AllowRelativeKeys
	case domain.RelationUpTone, domain.RelationDownTone:
		return !m.cfg.CamelotStrict
	}
	return false
}

func (m *BeatMatcher) energyTransition(from, to float64) domain.EnergyTransition {
	diff := to - from
	dir := domain.EnergySteady
	switch {
	case diff > 0:
		dir = domain.EnergyUp
	case diff < 0:
		dir = domain.EnergyDown
	}
	return domain.EnergyTransition{
		Compatible: within(math.Abs(diff), m.cfg.EnergyTransitionMax),
		Difference: diff,
		Direction:  dir,
		Score:      math.Max(0, 100-math.Abs(diff)*200),
	}
}

// boundaryEpsilon absorbs float noise in differences such as 0.8-0.6, so
// inclusive limits hold for values that are equal on paper.
const boundaryEpsilon = 1e-9

func within(v, limit float64) bool {
	return v <= limit+boundaryEpsilon
}

func (m *BeatMatcher) combine(tempo domain.TempoMatch, key domain.KeyMatch, energy domain.EnergyTransition) float64 {
	tempoWeight, keyWeight := 0.5, 0.3
	if m.cfg.PreferHarmonic {
		tempoWeight, keyWeight = 0.3, 0.5
	}
	score := tempo.Score*tempoWeight + key.Score*keyWeight + energy.Score*0.2
	return math.Round(score*10) / 10
}

func (m *BeatMatcher) crossfadeFor(score float64) int {
	base := m.cfg.CrossfadeDuration
	switch {
	case score >= 90:
		return base + 4
	case score >= 75:
		return base
	case score >= 60:
		return base - 2
	}
	return max(2, base-4)
}

func chooseTechnique(res domain.CompatibilityResult) domain.Technique {
	switch {
	case res.Score >= 85:
		return domain.TechniqueBeatmatch
	case res.Key.Compatible:
		return domain.TechniqueHarmonicFade
	case res.Energy.Direction == domain.EnergyUp:
		return domain.TechniqueBuild
	}
	return domain.TechniqueFade
}
