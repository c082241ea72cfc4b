package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"

	"intrinsic_valuation/pkg/core/llm"
)

// Config routes agent types to LLM providers.
type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
	Gemini         llm.ProviderConfig     `yaml:"gemini"`
	DeepSeek       llm.ProviderConfig     `yaml:"deepseek"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Description string `yaml:"description"`
}

// Manager picks the provider for an agent type. The active provider can be
// switched at runtime, so reads and writes are guarded.
type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
	logger    arbor.ILogger
}

// NewManager registers the configured providers.
func NewManager(config Config, logger arbor.ILogger) *Manager {
	return NewManagerWithProviders(config, map[string]llm.Provider{
		"gemini":   llm.NewGeminiProvider(config.Gemini),
		"deepseek": llm.NewDeepSeekProvider(config.DeepSeek),
	}, logger)
}

// NewManagerWithProviders uses an explicit provider set.
func NewManagerWithProviders(config Config, providers map[string]llm.Provider, logger arbor.ILogger) *Manager {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Manager{config: config, providers: providers, logger: logger}
}

func (m *Manager) GetProvider(agentType string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// 1. Check for agent-specific override
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
	}

	// 2. Use global active provider
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}

	// 3. Fallback
	return m.providers["gemini"]
}

// GetProviderByName retrieves a provider instance by its specific name (e.g. "deepseek", "gemini")
func (m *Manager) GetProviderByName(name string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[name]
}

// ExecutePrompt handles instruction adaptation before sending to the model
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.GetProvider(agentType)
	if provider == nil {
		return "", fmt.Errorf("no provider available for agent %s", agentType)
	}

	m.logger.Debug().
		Str("agent", agentType).
		Str("provider", fmt.Sprintf("%T", provider)).
		Msg("Executing prompt")

	adaptedSystemPrompt := provider.AdaptInstructions(rawSystemPrompt)
	return provider.GenerateResponse(ctx, rawPrompt, adaptedSystemPrompt, options)
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	m.logger.Info().Str("provider", newProvider).Msg("Global provider switched")
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// ProviderNames lists the registered providers, sorted.
func (m *Manager) ProviderNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
