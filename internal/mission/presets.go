package mission

// Preset is the full set of default tunables for a difficulty.
type Preset struct {
	FallSpeed         float64
	SpawnIntervalMs   float64
	ItemCount         float64
	DistractorPercent float64
	TimeLimitSeconds  float64
	RequiredCorrect   float64
	CorrectPoints     float64
	WrongPenalty      float64
	MissPenalty       float64
	StreakBonus       float64
}

var presets = map[Difficulty]Preset{
	DifficultyEasy: {
		FallSpeed:         1.0,
		SpawnIntervalMs:   2000,
		ItemCount:         10,
		DistractorPercent: 20,
		TimeLimitSeconds:  120,
		CorrectPoints:     10,
		WrongPenalty:      -2,
		MissPenalty:       0,
		StreakBonus:       5,
	},
	DifficultyMedium: {
		FallSpeed:         1.5,
		SpawnIntervalMs:   1500,
		ItemCount:         15,
		DistractorPercent: 30,
		TimeLimitSeconds:  90,
		CorrectPoints:     10,
		WrongPenalty:      -5,
		MissPenalty:       0,
		StreakBonus:       5,
	},
	DifficultyHard: {
		FallSpeed:         2.2,
		SpawnIntervalMs:   1000,
		ItemCount:         20,
		DistractorPercent: 40,
		TimeLimitSeconds:  60,
		CorrectPoints:     10,
		WrongPenalty:      -8,
		MissPenalty:       -2,
		StreakBonus:       5,
	},
}

// PresetFor returns the preset of d, falling back to medium.
func PresetFor(d Difficulty) Preset {
	if p, ok := presets[d]; ok {
		return p
	}
	return presets[DifficultyMedium]
}

// Bound is an inclusive numeric range.
type Bound struct {
	Min, Max float64
}

// Bounds every resolved tunable is clamped to. RequiredCorrect is further
// capped at the resolved item count.
var (
	BoundFallSpeed         = Bound{0.5, 5.0}
	BoundSpawnIntervalMs   = Bound{400, 5000}
	BoundItemCount         = Bound{1, 50}
	BoundDistractorPercent = Bound{0, 90}
	BoundTimeLimitSeconds  = Bound{15, 600}
	BoundRequiredCorrect   = Bound{0, 50}
	BoundCorrectPoints     = Bound{1, 100}
	BoundWrongPenalty      = Bound{-100, 0}
	BoundMissPenalty       = Bound{-100, 0}
	BoundStreakBonus       = Bound{0, 100}
)
