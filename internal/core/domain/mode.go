package domain

// EnergyCurve is the target energy trajectory across queue positions.
type EnergyCurve string

const (
	CurveSteady    EnergyCurve = "steady"
	CurveAscending EnergyCurve = "ascending"
	CurveWave      EnergyCurve = "wave"
)

// Valid reports whether c is a known curve.
func (c EnergyCurve) Valid() bool {
	switch c {
	case CurveSteady, CurveAscending, CurveWave:
		return true
	}
	return false
}

// ModeProfile is the per-mode tuning for queue building.
// TempoRange is advisory and is not enforced by the engine.
type ModeProfile struct {
	Name            string      `json:"name"`
	TargetEnergy    float64     `json:"target_energy"`
	EnergyVariance  float64     `json:"energy_variance"`
	EnergyCurve     EnergyCurve `json:"energy_curve"`
	TempoRange      [2]float64  `json:"tempo_range"`
	Genres          []string    `json:"genres,omitempty"`
	TransitionStyle string      `json:"transition_style,omitempty"`
}

// DefaultMode is used when a caller does not name one.
const DefaultMode = "party"

// NeutralProfile is what an unknown mode resolves to.
func NeutralProfile(name string) ModeProfile {
	return ModeProfile{
		Name:           name,
		TargetEnergy:   0.5,
		EnergyVariance: 0.1,
		EnergyCurve:    CurveSteady,
	}
}

// DefaultModeProfiles returns the built-in DJ modes.
func DefaultModeProfiles() map[string]ModeProfile {
	return map[string]ModeProfile{
		"party": {
			Name:            "party",
			TargetEnergy:    0.8,
			EnergyVariance:  0.2,
			EnergyCurve:     CurveSteady,
			TempoRange:      [2]float64{120, 140},
			Genres:          []string{"pop", "dance", "electronic"},
			TransitionStyle: "quick",
		},
		"focus": {
			Name:            "focus",
			TargetEnergy:    0.5,
			EnergyVariance:  0.1,
			EnergyCurve:     CurveSteady,
			TempoRange:      [2]float64{110, 130},
			Genres:          []string{"ambient", "chillstep", "lo-fi"},
			TransitionStyle: "smooth",
		},
		"chill": {
			Name:            "chill",
			TargetEnergy:    0.3,
			EnergyVariance:  0.1,
			EnergyCurve:     CurveSteady,
			TempoRange:      [2]float64{90, 115},
			Genres:          []string{"chillout", "downtempo", "jazz"},
			TransitionStyle: "smooth",
		},
		"workout": {
			Name:            "workout",
			TargetEnergy:    0.7,
			EnergyVariance:  0.3,
			EnergyCurve:     CurveAscending,
			TempoRange:      [2]float64{128, 150},
			Genres:          []string{"electronic", "hip-hop", "rock"},
			TransitionStyle: "quick",
		},
	}
}
