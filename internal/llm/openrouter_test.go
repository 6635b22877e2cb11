package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	p, err := NewOpenRouterProvider(ProviderConfig{APIKey: "sk-or-test", Model: "anthropic/claude-3-haiku"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelID() != "anthropic/claude-3-haiku" {
		t.Errorf("model = %q", p.ModelID())
	}

	_, err = NewOpenRouterProvider(ProviderConfig{Model: "anthropic/claude-3-haiku"})
	if err == nil || !strings.Contains(err.Error(), "openrouter API key is required") {
		t.Errorf("err = %v", err)
	}
}

func TestOpenRouterProvider_CustomBaseURL(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		openaiReply(`{"note":"Nice work."}`, "stop")(w, r)
	}))
	t.Cleanup(srv.Close)

	p, err := NewOpenRouterProvider(ProviderConfig{APIKey: "sk-or-test", Model: "meta-llama/llama-3-8b", BaseURL: srv.URL + "/api/v1"})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Generate(context.Background(), UserPrompt("system", "hi", testNoteSchema))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Content) != `{"note":"Nice work."}` {
		t.Errorf("content = %s", resp.Content)
	}
	if path != "/api/v1/chat/completions" {
		t.Errorf("path = %q", path)
	}
}
