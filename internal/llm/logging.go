package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/missionkit/internal/logging"
	"github.com/abhisek/missionkit/internal/store"
)

// LoggingProvider records every request in the event log.
type LoggingProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
	logger   *slog.Logger
	now      func() time.Time
}

// WithLogging wraps p so that each Generate call is appended to events.
// name is the provider name stored with the event.
func WithLogging(p Provider, name string, events store.EventRepo, logger *slog.Logger) Provider {
	return &LoggingProvider{
		inner:    p,
		provider: name,
		events:   events,
		logger:   logging.OrDiscard(logger),
		now:      time.Now,
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := l.now()
	resp, err := l.inner.Generate(ctx, req)
	tag := TagFrom(ctx)

	data := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     tag.Purpose,
		LatencyMs:   l.now().Sub(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: formatRequest(req),
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = string(resp.Content)
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	// A failed write never fails the request.
	if logErr := l.events.AppendLLMRequest(context.WithoutCancel(ctx), data); logErr != nil {
		l.logger.Warn("failed to record LLM request", "error", logErr, "purpose", data.Purpose, "session_id", tag.SessionID)
	}
	l.logger.Debug("llm request",
		"provider", data.Provider,
		"model", data.Model,
		"purpose", data.Purpose,
		"session_id", tag.SessionID,
		"latency_ms", data.LatencyMs,
		"success", data.Success,
	)
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// formatRequest renders a request the way `missionkit llm view` shows it.
func formatRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if doc, err := json.Marshal(req.Schema.Document); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, doc)
		}
	}
	return b.String()
}
