package content

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/abhisek/missionkit/internal/schema"
)

// BankSchema describes a content bank file: a JSON array of items.
var BankSchema = &schema.Definition{
	Name:        "content-bank",
	Description: "A topic's content bank as a list of challenge items",
	Document: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":        map[string]any{"type": "string", "minLength": 1},
				"text":      map[string]any{"type": "string", "minLength": 1},
				"isCorrect": map[string]any{"type": "boolean"},
				"imageUrl":  map[string]any{"type": "string"},
				"type": map[string]any{
					"type": "string",
					"enum": []any{"word", "sentence", "location", "imageWordPair"},
				},
				"ruleTag":  map[string]any{"type": "string"},
				"metadata": map[string]any{"type": "object"},
			},
			"required": []any{"id", "text", "isCorrect", "type"},
		},
	},
}

// ParseBank validates raw against BankSchema and decodes it.
func ParseBank(raw []byte) ([]Item, error) {
	if err := schema.Validate(BankSchema, raw); err != nil {
		return nil, fmt.Errorf("validate content bank: %w", err)
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode content bank: %w", err)
	}
	return items, nil
}

// LoadBank reads and parses a content bank file.
func LoadBank(path string) ([]Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content bank: %w", err)
	}
	return ParseBank(raw)
}
