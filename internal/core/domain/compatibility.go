package domain

// Technique names how one track should be mixed into the next.
type Technique string

const (
	TechniqueUnknown      Technique = "unknown"
	TechniqueBeatmatch    Technique = "beatmatch"
	TechniqueDoubleTempo  Technique = "double_tempo"
	TechniqueHalfTempo    Technique = "half_tempo"
	TechniqueFade         Technique = "fade"
	TechniqueHarmonicFade Technique = "harmonic_fade"
	TechniqueBuild        Technique = "build"
)

// KeyRelationship describes where the second key sits on the wheel relative to the first.
type KeyRelationship string

const (
	RelationSame         KeyRelationship = "same"
	RelationRelative     KeyRelationship = "relative"
	RelationUpFifth      KeyRelationship = "up_fifth"
	RelationDownFifth    KeyRelationship = "down_fifth"
	RelationUpTone       KeyRelationship = "up_tone"
	RelationDownTone     KeyRelationship = "down_tone"
	RelationOther        KeyRelationship = "other"
	RelationIncompatible KeyRelationship = "incompatible"
	RelationDisabled     KeyRelationship = "disabled"
)

// EnergyDirection is the sign of an energy change between two tracks.
type EnergyDirection string

const (
	EnergyUp     EnergyDirection = "up"
	EnergyDown   EnergyDirection = "down"
	EnergySteady EnergyDirection = "steady"
)

// TempoMatch is the tempo part of a compatibility analysis.
type TempoMatch struct {
	Compatible bool      `json:"compatible"`
	Difference float64   `json:"difference"`
	Percentage float64   `json:"percentage"`
	Technique  Technique `json:"technique"`
	Score      float64   `json:"score"`
}

// KeyMatch is the harmonic part of a compatibility analysis. From and To are
// zero when key checking is disabled.
type KeyMatch struct {
	Compatible   bool            `json:"compatible"`
	From         CamelotKey      `json:"from,omitzero"`
	To           CamelotKey      `json:"to,omitzero"`
	Relationship KeyRelationship `json:"relationship"`
	Score        float64         `json:"score"`
}

// EnergyTransition is the energy part of a compatibility analysis.
type EnergyTransition struct {
	Compatible bool            `json:"compatible"`
	Difference float64         `json:"difference"`
	Direction  EnergyDirection `json:"direction"`
	Score      float64         `json:"score"`
}

// CompatibilityResult is the full breakdown for mixing one track into another.
type CompatibilityResult struct {
	Tempo                TempoMatch       `json:"tempo"`
	Key                  KeyMatch         `json:"key"`
	Energy               EnergyTransition `json:"energy"`
	Score                float64          `json:"score"`
	RecommendedCrossfade int              `json:"recommended_crossfade"`
	Technique            Technique        `json:"technique"`
}

// TransitionPoint locates the mix window in seconds: fade the outgoing track
// between StartFade and EndFade and start the incoming track at SkipTo.
type TransitionPoint struct {
	StartFade float64   `json:"start_fade"`
	EndFade   float64   `json:"end_fade"`
	SkipTo    float64   `json:"skip_to"`
	Technique Technique `json:"technique"`
}
