// Package mission resolves instructor-authored mission configuration into a
// bounded, immutable configuration for a single game session.
package mission

import (
	"strings"
	"time"
)

// Difficulty selects a preset of tunables.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes s, defaulting to medium for empty or unknown values.
// ok is false when s was non-empty but not recognized.
func ParseDifficulty(s string) (d Difficulty, ok bool) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy, true
	case DifficultyHard:
		return DifficultyHard, true
	case DifficultyMedium:
		return DifficultyMedium, true
	case "":
		return DifficultyMedium, true
	}
	return DifficultyMedium, false
}

// Tunables holds the optional numeric settings an instructor may override.
// Nil means "not set". Values are float64 so that any numeric input,
// including NaN and out-of-range values, can be received and clamped.
type Tunables struct {
	FallSpeed         *float64 `json:"fallSpeed,omitempty"`
	SpawnIntervalMs   *float64 `json:"spawnIntervalMs,omitempty"`
	ItemCount         *float64 `json:"itemCount,omitempty"`
	DistractorPercent *float64 `json:"distractorPercent,omitempty"`
	TimeLimitSeconds  *float64 `json:"timeLimitSeconds,omitempty"`
	RequiredCorrect   *float64 `json:"requiredCorrect,omitempty"`
	CorrectPoints     *float64 `json:"correctPoints,omitempty"`
	WrongPenalty      *float64 `json:"wrongPenalty,omitempty"`
	MissPenalty       *float64 `json:"missPenalty,omitempty"`
	StreakBonus       *float64 `json:"streakBonus,omitempty"`
}

// MissionConfig is the configuration object authored by an instructor.
// The resolver reads it and never mutates it.
type MissionConfig struct {
	Difficulty string `json:"difficulty,omitempty"`
	Tunables
	AssetPack        string                `json:"assetPack,omitempty"`
	PerGameOverrides map[GameType]Tunables `json:"perGameOverrides,omitempty"`
}

// Scoring holds the per-interaction score deltas of a session.
type Scoring struct {
	CorrectPoints int // added on a correct interaction
	WrongPenalty  int // added on a wrong interaction, <= 0
	MissPenalty   int // added when a correct item expires unanswered, <= 0
	StreakBonus   int // added at every third consecutive correct answer; 0 disables
}

// ResolvedConfig is the fully bound, bounds-checked configuration of a session.
type ResolvedConfig struct {
	GameType          GameType
	Variant           Variant
	Difficulty        Difficulty
	FallSpeed         float64
	SpawnInterval     time.Duration
	ItemCount         int
	DistractorPercent int
	TimeLimit         time.Duration
	RequiredCorrect   int // 0 means no goal
	Scoring           Scoring
	AssetPack         string
}

// Float returns a pointer to v, for building Tunables literals.
func Float(v float64) *float64 {
	return &v
}
