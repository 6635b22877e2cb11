package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/missionkit/internal/schema"
	"github.com/abhisek/missionkit/internal/store"
)

var testNoteSchema = &schema.Definition{
	Name:        "test-note",
	Description: "a short note",
	Document: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"note": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []any{"note"},
		"additionalProperties": false,
	},
}

func TestMockProviderReplaysInOrder(t *testing.T) {
	m := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"note":"first"}`), Usage: usageOf(10, 5)},
		MockResponse{Err: &Error{Kind: KindRateLimited}},
	)
	ctx := context.Background()
	req := UserPrompt("sys", "hello", testNoteSchema)

	resp, err := m.Generate(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out struct{ Note string }
	if err := resp.Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Note != "first" {
		t.Errorf("note = %q, want first", out.Note)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("total tokens = %d, want 15", resp.Usage.TotalTokens)
	}

	if _, err := m.Generate(ctx, req); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second call err = %v, want rate limited", err)
	}
	if _, err := m.Generate(ctx, req); !errors.Is(err, ErrUnavailable) {
		t.Errorf("empty queue err = %v, want unavailable", err)
	}

	if m.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", m.CallCount())
	}
	if got := m.Calls()[0].Messages[0].Content; got != "hello" {
		t.Errorf("recorded message = %q", got)
	}
}

func TestMockProviderValidatesSchema(t *testing.T) {
	m := NewMockProvider(MockResponse{Content: json.RawMessage(`{"note":""}`)})
	_, err := m.Generate(context.Background(), UserPrompt("", "x", testNoteSchema))

	var e *Error
	if !errors.As(err, &e) || e.Kind != KindInvalid {
		t.Fatalf("expected invalid response error, got %v", err)
	}
	if string(e.Content) != `{"note":""}` {
		t.Errorf("rejected content = %s", e.Content)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limit", fromStatus(429, errors.New("slow down")), KindRateLimited},
		{"server", fromStatus(503, errors.New("overloaded")), KindUnavailable},
		{"network", unavailable(errors.New("dial tcp")), KindUnavailable},
		{"truncated", truncated(json.RawMessage(`{"note":"cut`)), KindTruncated},
		{"wrapped", errors.Join(errors.New("coach note"), invalid(nil, errors.New("bad"))), KindInvalid},
		{"foreign", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %q, want %q", got, tt.want)
			}
		})
	}

	err := fromStatus(429, errors.New("slow down"))
	if !strings.Contains(err.Error(), "status 429") {
		t.Errorf("message should carry the status: %q", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("rate limit should not match ErrUnavailable")
	}
}

func TestTag(t *testing.T) {
	if got := TagFrom(context.Background()); got.Purpose != "unknown" || got.SessionID != "" {
		t.Errorf("untagged = %+v", got)
	}

	ctx := Tag(context.Background(), RequestTag{SessionID: "sess-9"})
	ctx = Tag(ctx, RequestTag{Purpose: PurposeCoachNote})
	got := TagFrom(ctx)
	if got.Purpose != PurposeCoachNote || got.SessionID != "sess-9" {
		t.Errorf("layered tag = %+v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func() Config
		wantErr string
	}{
		{"disabled", func() Config { return DefaultConfig() }, ""},
		{"mock", func() Config { c := DefaultConfig(); c.Provider = ProviderMock; return c }, ""},
		{"missing key", func() Config { c := DefaultConfig(); c.Provider = ProviderOpenAI; return c }, "MISSIONKIT_OPENAI_API_KEY"},
		{"unknown", func() Config { c := DefaultConfig(); c.Provider = "llama"; return c }, "unknown LLM provider"},
		{"ok", func() Config {
			c := DefaultConfig()
			c.Provider = ProviderGemini
			c.Gemini.APIKey = "k"
			return c
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg().Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	t.Run("explicit provider", func(t *testing.T) {
		t.Setenv("MISSIONKIT_LLM_PROVIDER", "openai")
		t.Setenv("MISSIONKIT_OPENAI_API_KEY", "sk-test")
		t.Setenv("MISSIONKIT_OPENAI_MODEL", "gpt-4.1-nano")

		cfg := ConfigFromEnv()
		if cfg.Provider != ProviderOpenAI || cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Model != "gpt-4.1-nano" {
			t.Errorf("config = %+v", cfg)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("discovered", func(t *testing.T) {
		t.Setenv("MISSIONKIT_LLM_PROVIDER", "")
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg := ConfigFromEnv()
		if cfg.Provider != ProviderGemini || cfg.Gemini.APIKey != "g-key" {
			t.Errorf("config = %+v", cfg)
		}
	})

	t.Run("none", func(t *testing.T) {
		t.Setenv("MISSIONKIT_LLM_PROVIDER", "")
		if ConfigFromEnv().Enabled() {
			t.Error("expected no provider without keys")
		}
	})
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	p, err := NewProvider(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelID() != "mock" {
		t.Errorf("model = %q, want mock", p.ModelID())
	}

	cfg.Provider = ProviderOpenRouter
	cfg.OpenRouter.APIKey = "sk-or"
	p, err = NewProvider(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelID() != "google/gemini-2.0-flash-001" {
		t.Errorf("model = %q", p.ModelID())
	}
	if _, ok := p.(*RetryProvider); !ok {
		t.Errorf("expected *RetryProvider, got %T", p)
	}

	if _, err := NewProvider(ctx, DefaultConfig(), nil, nil); err == nil {
		t.Error("expected error for disabled config")
	}
}

func TestLoggingProviderRecordsEvents(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "llm.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"note":"Nice work."}`), Usage: usageOf(120, 12)},
		MockResponse{Err: errors.New("boom")},
	)
	p := WithLogging(mock, ProviderMock, st.EventRepo(), nil)
	ctx := Tag(context.Background(), RequestTag{Purpose: PurposeCoachNote, SessionID: "sess-1"})

	if _, err := p.Generate(ctx, UserPrompt("be kind", "score 7/10", testNoteSchema)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Generate(ctx, UserPrompt("be kind", "score 2/10", nil)); err == nil {
		t.Fatal("expected the second call to fail")
	}

	events, err := st.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	failed, ok := events[0], events[1]
	if failed.Success || failed.ErrorMessage != "boom" {
		t.Errorf("failed event = %+v", failed)
	}

	if !ok.Success || ok.Provider != "mock" || ok.Purpose != PurposeCoachNote {
		t.Errorf("ok event = %+v", ok)
	}
	if ok.InputTokens != 120 || ok.OutputTokens != 12 {
		t.Errorf("tokens = %d/%d, want 120/12", ok.InputTokens, ok.OutputTokens)
	}
	if !strings.Contains(ok.RequestBody, "[system]\nbe kind") || !strings.Contains(ok.RequestBody, "[schema: test-note]") {
		t.Errorf("request body = %q", ok.RequestBody)
	}
	if ok.ResponseBody != `{"note":"Nice work."}` {
		t.Errorf("response body = %q", ok.ResponseBody)
	}
}

func TestEstimateCost(t *testing.T) {
	usd, ok := EstimateCost("gpt-4o-mini", 1_000_000, 1_000_000)
	if !ok {
		t.Fatal("expected a price for gpt-4o-mini")
	}
	if math.Abs(usd-0.75) > 1e-9 {
		t.Errorf("cost = %v, want 0.75", usd)
	}

	if _, ok := EstimateCost("no-such-model", 1, 1); ok {
		t.Error("unknown model should have no price")
	}
}
