package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config holds LLM provider configuration. The zero Provider disables the
// coach note entirely.
type Config struct {
	Provider string

	Anthropic  ProviderConfig
	OpenAI     ProviderConfig
	Gemini     ProviderConfig
	OpenRouter ProviderConfig
	Retry      RetryConfig

	// Timeout bounds a single request including retries.
	Timeout time.Duration
}

// ProviderConfig holds credentials and model for one provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string // OpenAI-compatible endpoints only
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with no provider selected.
func DefaultConfig() Config {
	return Config{
		Anthropic:  ProviderConfig{Model: "claude-haiku"},
		OpenAI:     ProviderConfig{Model: "gpt-4o-mini"},
		Gemini:     ProviderConfig{Model: "gemini-flash"},
		OpenRouter: ProviderConfig{Model: "google/gemini-2.0-flash-001", BaseURL: defaultOpenRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 15 * time.Second,
	}
}

// section returns the per-provider block for name, or nil.
func (c *Config) section(name string) *ProviderConfig {
	switch name {
	case ProviderAnthropic:
		return &c.Anthropic
	case ProviderOpenAI:
		return &c.OpenAI
	case ProviderGemini:
		return &c.Gemini
	case ProviderOpenRouter:
		return &c.OpenRouter
	}
	return nil
}

var envNames = map[string]string{
	ProviderAnthropic:  "ANTHROPIC",
	ProviderOpenAI:     "OPENAI",
	ProviderGemini:     "GEMINI",
	ProviderOpenRouter: "OPENROUTER",
}

// ConfigFromEnv reads MISSIONKIT_LLM_PROVIDER plus the
// MISSIONKIT_<PROVIDER>_API_KEY, _MODEL and _BASE_URL variables. When no
// provider is named it falls back to DiscoverConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	for name, env := range envNames {
		sec := cfg.section(name)
		if k := os.Getenv("MISSIONKIT_" + env + "_API_KEY"); k != "" {
			sec.APIKey = k
		}
		if m := os.Getenv("MISSIONKIT_" + env + "_MODEL"); m != "" {
			sec.Model = m
		}
		if u := os.Getenv("MISSIONKIT_" + env + "_BASE_URL"); u != "" {
			sec.BaseURL = u
		}
	}

	if p := os.Getenv("MISSIONKIT_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
		return cfg
	}
	if found, ok := DiscoverConfig(); ok {
		sec := cfg.section(found.Provider)
		if sec.APIKey == "" {
			sec.APIKey = found.section(found.Provider).APIKey
		}
		cfg.Provider = found.Provider
	}
	return cfg
}

// DiscoverConfig checks the vendors' standard API key variables in order
// Anthropic, OpenAI, Gemini, OpenRouter and selects the first one found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	candidates := []struct {
		provider string
		env      string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderGemini, "GEMINI_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
	}
	for _, p := range candidates {
		if k := os.Getenv(p.env); k != "" {
			cfg.Provider = p.provider
			cfg.section(p.provider).APIKey = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Enabled reports whether a provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != ""
}

// Validate checks that the selected provider has its API key.
func (c Config) Validate() error {
	if c.Provider == ProviderMock || c.Provider == "" {
		return nil
	}
	sec := c.section(c.Provider)
	if sec == nil {
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if sec.APIKey == "" {
		return fmt.Errorf("MISSIONKIT_%s_API_KEY is required for the %s provider", envNames[c.Provider], c.Provider)
	}
	return nil
}
