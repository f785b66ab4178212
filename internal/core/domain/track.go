package domain

// Mode is the tonal mode of a track as reported by the catalog.
type Mode int

const (
	Minor Mode = 0
	Major Mode = 1
)

const (
	// NeutralEnergy is assumed wherever a track has no energy feature.
	NeutralEnergy = 0.5
	// DefaultDurationMs is assumed by transition heuristics for tracks without a duration.
	DefaultDurationMs = 180000
)

// AudioFeatures holds the analysis values for a track.
// A nil field means the catalog did not provide it; it is never the same as zero.
type AudioFeatures struct {
	Tempo        *float64 `json:"tempo,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	Danceability *float64 `json:"danceability,omitempty"`
	Valence      *float64 `json:"valence,omitempty"`
	Key          *int     `json:"key,omitempty"`
	Mode         *Mode    `json:"mode,omitempty"`
}

// Track represents a musical track in the domain layer.
type Track struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Artist     string        `json:"artist"`
	Album      string        `json:"album,omitempty"`
	DurationMs int           `json:"duration_ms,omitempty"`
	ISRC       string        `json:"isrc,omitempty"`
	Features   AudioFeatures `json:"audio_features"`
}

// Ptr returns a pointer to v. It keeps optional feature literals short.
func Ptr[T any](v T) *T {
	return &v
}

// TempoBPM reports the tempo and whether it is usable (present and positive).
func (f AudioFeatures) TempoBPM() (float64, bool) {
	if f.Tempo == nil || *f.Tempo <= 0 {
		return 0, false
	}
	return *f.Tempo, true
}

// EnergyOr returns the energy or fallback when absent.
func (f AudioFeatures) EnergyOr(fallback float64) float64 {
	if f.Energy == nil {
		return fallback
	}
	return *f.Energy
}

// PitchClass returns the key, or -1 when absent. -1 resolves to the
// fallback entry of the Camelot tables.
func (f AudioFeatures) PitchClass() int {
	if f.Key == nil {
		return -1
	}
	return *f.Key
}

// ModeOr returns the mode or fallback when absent.
func (f AudioFeatures) ModeOr(fallback Mode) Mode {
	if f.Mode == nil {
		return fallback
	}
	return *f.Mode
}

// HasAnalysis reports whether the catalog supplied the features the engine scores on.
func (f AudioFeatures) HasAnalysis() bool {
	return f.Tempo != nil && f.Energy != nil && f.Key != nil && f.Mode != nil
}

// Duration returns the duration in milliseconds, falling back to DefaultDurationMs.
func (t Track) Duration() int {
	if t.DurationMs <= 0 {
		return DefaultDurationMs
	}
	return t.DurationMs
}
