package llm

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a provider has no credentials configured.
var ErrMissingAPIKey = errors.New("llm api key not configured")

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// ProviderConfig holds the credentials and model of one provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// StaticProvider is a test double that returns a canned reply and records
// the last prompt it received.
type StaticProvider struct {
	Reply string
	Err   error

	LastPrompt       string
	LastSystemPrompt string
}

func (p *StaticProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	p.LastPrompt = prompt
	p.LastSystemPrompt = systemPrompt
	if p.Err != nil {
		return "", p.Err
	}
	return p.Reply, nil
}

func (p *StaticProvider) AdaptInstructions(raw string) string {
	return raw
}
