package mission

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/abhisek/missionkit/internal/logging"
)

// DefaultAssetPack is used when the config names none.
const DefaultAssetPack = "default"

// Adjustment records an instructor value that could not be used as given.
type Adjustment struct {
	Field    string
	Input    float64
	Resolved float64
	Reason   string // "clamped" or "invalid"
}

// Resolver merges mission configs with presets and bounds.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger discards warnings.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logging.OrDiscard(logger)}
}

// Resolve produces the bounded configuration for gt. It never fails: absent
// or invalid values fall back to the difficulty preset, out-of-range values
// are clamped and logged as warnings.
func (r *Resolver) Resolve(cfg MissionConfig, gt GameType) ResolvedConfig {
	rc, _ := r.ResolveWithReport(cfg, gt)
	return rc
}

// ResolveWithReport is Resolve that also returns every adjustment made.
func (r *Resolver) ResolveWithReport(cfg MissionConfig, gt GameType) (ResolvedConfig, []Adjustment) {
	var adj []Adjustment

	variant, ok := LookupVariant(gt)
	if !ok {
		r.logger.Warn("unknown game type, using word-catcher", "game_type", string(gt))
		variant, _ = LookupVariant(GameWordCatcher)
	}
	variant.ItemTypes = append(variant.ItemTypes[:0:0], variant.ItemTypes...)

	difficulty, ok := ParseDifficulty(cfg.Difficulty)
	if !ok {
		r.logger.Warn("unknown difficulty, using medium", "difficulty", cfg.Difficulty, "game_type", string(variant.Type))
	}
	preset := PresetFor(difficulty)
	override := cfg.PerGameOverrides[variant.Type]

	pick := func(field string, game, top *float64, def float64, b Bound) float64 {
		raw := game
		if raw == nil {
			raw = top
		}
		if raw == nil {
			return def
		}
		v, a := clamp(field, *raw, def, b)
		if a != nil {
			adj = append(adj, *a)
			r.logger.Warn("mission config value adjusted",
				"field", a.Field,
				"value", a.Input,
				"resolved", a.Resolved,
				"reason", a.Reason,
				"min", b.Min,
				"max", b.Max,
				"game_type", string(variant.Type),
			)
		}
		return v
	}

	rc := ResolvedConfig{
		GameType:   variant.Type,
		Variant:    variant,
		Difficulty: difficulty,
		AssetPack:  DefaultAssetPack,
	}
	if ap := strings.TrimSpace(cfg.AssetPack); ap != "" {
		rc.AssetPack = ap
	}

	rc.FallSpeed = pick("fallSpeed", override.FallSpeed, cfg.FallSpeed, preset.FallSpeed, BoundFallSpeed)
	rc.SpawnInterval = time.Duration(math.Round(pick("spawnIntervalMs", override.SpawnIntervalMs, cfg.SpawnIntervalMs, preset.SpawnIntervalMs, BoundSpawnIntervalMs))) * time.Millisecond
	rc.ItemCount = roundInt(pick("itemCount", override.ItemCount, cfg.ItemCount, preset.ItemCount, BoundItemCount))
	rc.TimeLimit = time.Duration(roundInt(pick("timeLimitSeconds", override.TimeLimitSeconds, cfg.TimeLimitSeconds, preset.TimeLimitSeconds, BoundTimeLimitSeconds))) * time.Second

	if variant.UsesDistractors {
		rc.DistractorPercent = roundInt(pick("distractorPercent", override.DistractorPercent, cfg.DistractorPercent, preset.DistractorPercent, BoundDistractorPercent))
	}

	goalBound := BoundRequiredCorrect
	goalBound.Max = math.Min(goalBound.Max, float64(rc.ItemCount))
	rc.RequiredCorrect = roundInt(pick("requiredCorrect", override.RequiredCorrect, cfg.RequiredCorrect, math.Min(preset.RequiredCorrect, goalBound.Max), goalBound))

	rc.Scoring = Scoring{
		CorrectPoints: roundInt(pick("correctPoints", override.CorrectPoints, cfg.CorrectPoints, preset.CorrectPoints, BoundCorrectPoints)),
		WrongPenalty:  roundInt(pick("wrongPenalty", override.WrongPenalty, cfg.WrongPenalty, preset.WrongPenalty, BoundWrongPenalty)),
		MissPenalty:   roundInt(pick("missPenalty", override.MissPenalty, cfg.MissPenalty, preset.MissPenalty, BoundMissPenalty)),
		StreakBonus:   roundInt(pick("streakBonus", override.StreakBonus, cfg.StreakBonus, preset.StreakBonus, BoundStreakBonus)),
	}

	return rc, adj
}

// clamp bounds v to b. NaN falls back to def; infinities clamp to the
// nearest bound.
func clamp(field string, v, def float64, b Bound) (float64, *Adjustment) {
	if math.IsNaN(v) {
		return def, &Adjustment{Field: field, Input: v, Resolved: def, Reason: "invalid"}
	}
	switch {
	case v < b.Min:
		return b.Min, &Adjustment{Field: field, Input: v, Resolved: b.Min, Reason: "clamped"}
	case v > b.Max:
		return b.Max, &Adjustment{Field: field, Input: v, Resolved: b.Max, Reason: "clamped"}
	}
	return v, nil
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
