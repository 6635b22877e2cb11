// Package llm talks to hosted language models. Every provider returns JSON
// validated against the caller's schema and is wrapped with retry and
// request-logging middleware by NewProvider.
package llm

import (
	"context"
	"encoding/json"

	"github.com/abhisek/missionkit/internal/schema"
)

// Provider generates one structured response per request.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model the provider sends requests to.
	ModelID() string
}

// Request describes a single-turn or short multi-turn generation.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, switches the provider to its native structured
	// output mode and the reply is validated before it is returned.
	Schema *schema.Definition

	MaxTokens   int
	Temperature float64 // 0 keeps the provider default
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserPrompt builds a request with one user message.
func UserPrompt(system, prompt string, def *schema.Definition) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
		Schema:   def,
	}
}

// Response holds the model output.
type Response struct {
	// Content is the validated JSON object, or the raw text when the
	// request had no schema.
	Content json.RawMessage

	Usage Usage
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Decode unmarshals Content into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Content, v)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func usageOf(in, out int) Usage {
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}

// checkContent validates content against the request schema.
func checkContent(req Request, content json.RawMessage) error {
	if req.Schema == nil {
		return nil
	}
	if err := schema.Validate(req.Schema, content); err != nil {
		return invalid(content, err)
	}
	return nil
}

// resolveModel maps a friendly model name to a provider model ID. Unknown
// names pass through so direct model IDs work.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
