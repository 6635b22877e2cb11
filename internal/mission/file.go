package mission

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/abhisek/missionkit/internal/schema"
)

var tunableProperties = map[string]any{
	"fallSpeed":         map[string]any{"type": "number"},
	"spawnIntervalMs":   map[string]any{"type": "number"},
	"itemCount":         map[string]any{"type": "number"},
	"distractorPercent": map[string]any{"type": "number"},
	"timeLimitSeconds":  map[string]any{"type": "number"},
	"requiredCorrect":   map[string]any{"type": "number"},
	"correctPoints":     map[string]any{"type": "number"},
	"wrongPenalty":      map[string]any{"type": "number"},
	"missPenalty":       map[string]any{"type": "number"},
	"streakBonus":       map[string]any{"type": "number"},
}

// ConfigSchema checks the shape of a mission config document. Value ranges
// are not enforced here; the resolver clamps them.
var ConfigSchema = &schema.Definition{
	Name:        "mission-config",
	Description: "Instructor-authored mission configuration",
	Document: map[string]any{
		"type": "object",
		"properties": mergeProps(tunableProperties, map[string]any{
			"difficulty": map[string]any{"type": "string"},
			"assetPack":  map[string]any{"type": "string"},
			"perGameOverrides": map[string]any{
				"type": "object",
				"propertyNames": map[string]any{
					"enum": []any{"word-catcher", "grammar-gate", "image-match", "sentence-builder", "map-explorer"},
				},
				"additionalProperties": map[string]any{
					"type":       "object",
					"properties": tunableProperties,
				},
			},
		}),
	},
}

// ParseConfig validates and decodes a mission config document.
func ParseConfig(raw []byte) (MissionConfig, error) {
	var cfg MissionConfig
	if err := schema.Validate(ConfigSchema, raw); err != nil {
		return cfg, fmt.Errorf("validate mission config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("decode mission config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a mission config file.
func LoadConfig(path string) (MissionConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return MissionConfig{}, fmt.Errorf("read mission config: %w", err)
	}
	return ParseConfig(raw)
}

func mergeProps(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
