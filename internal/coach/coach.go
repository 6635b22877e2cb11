// Package coach asks a language model for a two-sentence note to show the
// learner after a session has been evaluated.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/missionkit/internal/evaluator"
	"github.com/abhisek/missionkit/internal/llm"
	"github.com/abhisek/missionkit/internal/logging"
)

// Coach writes learner notes with an LLM provider.
type Coach struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
}

// New creates a Coach.
func New(provider llm.Provider, cfg Config, logger *slog.Logger) *Coach {
	return &Coach{provider: provider, cfg: cfg, logger: logging.OrDiscard(logger)}
}

// Note returns a note for the evaluated session. Fallback evaluations get
// no note.
func (c *Coach) Note(ctx context.Context, d evaluator.StandardizedDetails) (string, error) {
	if d.Fallback {
		return "", fmt.Errorf("evaluation fell back; no note")
	}
	ctx = llm.Tag(ctx, llm.RequestTag{Purpose: llm.PurposeCoachNote})

	req := llm.UserPrompt(systemPrompt, buildUserMessage(d, c.cfg.MaxMistakes), NoteSchema)
	req.MaxTokens = c.cfg.MaxTokens
	req.Temperature = c.cfg.Temperature

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("coach note: %w", err)
	}

	var out noteOutput
	if err := resp.Decode(&out); err != nil {
		return "", fmt.Errorf("parse coach note: %w", err)
	}
	note := clip(strings.Join(strings.Fields(out.Note), " "), c.cfg.MaxNoteLen)
	if note == "" {
		return "", fmt.Errorf("coach note: empty")
	}
	c.logger.Debug("coach note written", "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	return note, nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
