// Package config loads the service configuration from config/valuation.yaml,
// an optional .env file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"intrinsic_valuation/pkg/core/agent"
	"intrinsic_valuation/pkg/core/common"
	"intrinsic_valuation/pkg/core/valuation"
)

// DefaultPath is where the service looks for its yaml file.
const DefaultPath = "config/valuation.yaml"

type ServerConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type FMPConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	RateLimit      int    `yaml:"rate_limit"` // requests per second
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	HistoryYears   int    `yaml:"history_years"`
	// Fetched histories are kept in financial_history_cache this long.
	// Zero disables the cache.
	CacheTTLHours int `yaml:"cache_ttl_hours"`
}

// BondYieldConfig controls where the Graham bond yield comes from.
// When Live is false the valuation.graham.bond_yield constant is used as is.
type BondYieldConfig struct {
	Live           bool   `yaml:"live"`
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// NarrativeConfig selects the narration prompt. An empty path uses the
// built-in template.
type NarrativeConfig struct {
	TemplatePath string `yaml:"template_path"`
}

type PortfolioConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig          `yaml:"server"`
	Database    DatabaseConfig        `yaml:"database"`
	FMP         FMPConfig             `yaml:"fmp"`
	BondYield   BondYieldConfig       `yaml:"bond_yield"`
	Portfolio   PortfolioConfig       `yaml:"portfolio"`
	LLM         agent.Config          `yaml:"llm"`
	Narrative   NarrativeConfig       `yaml:"narrative"`
	Logging     common.LoggingConfig  `yaml:"logging"`
	Valuation   valuation.Params      `yaml:"valuation"`
	Assumptions valuation.Assumptions `yaml:"assumptions"`
}

// Default returns a configuration that works without any file.
func Default() Config {
	return Config{
		Server:   ServerConfig{Address: ":8080"},
		Database: DatabaseConfig{MaxConns: 10},
		FMP: FMPConfig{
			BaseURL:        "https://financialmodelingprep.com/api/v3",
			RateLimit:      5,
			TimeoutSeconds: 30,
			HistoryYears:   5,
			CacheTTLHours:  24,
		},
		BondYield: BondYieldConfig{
			URL:            "https://fred.stlouisfed.org/series/AAA",
			TimeoutSeconds: 10,
		},
		Portfolio:   PortfolioConfig{Concurrency: 4},
		LLM:         agent.Config{ActiveProvider: "gemini"},
		Logging:     common.DefaultLoggingConfig(),
		Valuation:   valuation.DefaultParams(),
		Assumptions: valuation.DefaultAssumptions(),
	}
}

// Load reads .env (if present), then the yaml file at path (if present), then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// defaults only
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	applyEnv(&cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.FMP.APIKey, "FMP_API_KEY")
	set(&cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	set(&cfg.LLM.DeepSeek.APIKey, "DEEPSEEK_API_KEY")
	set(&cfg.Server.Address, "VALUATION_ADDR")
	set(&cfg.Logging.Level, "VALUATION_LOG_LEVEL")
}

// Validate checks the engine params and default assumptions.
func (c *Config) Validate() error {
	if err := c.Valuation.Validate(); err != nil {
		return fmt.Errorf("valuation params: %w", err)
	}
	if err := c.Assumptions.Validate(); err != nil {
		return fmt.Errorf("default assumptions: %w", err)
	}
	if c.Portfolio.Concurrency < 1 {
		return fmt.Errorf("portfolio.concurrency must be at least 1")
	}
	if c.FMP.RateLimit < 1 {
		return fmt.Errorf("fmp.rate_limit must be at least 1")
	}
	return nil
}
