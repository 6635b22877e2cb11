package coach

import "github.com/abhisek/missionkit/internal/schema"

// NoteSchema is the structured reply a provider must return.
var NoteSchema = &schema.Definition{
	Name:        "coach-note",
	Description: "A short, encouraging note for a young learner after a practice game",
	Document: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"note": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Exactly two short sentences addressed to the learner",
			},
		},
		"required":             []any{"note"},
		"additionalProperties": false,
	},
}

type noteOutput struct {
	Note string `json:"note"`
}
