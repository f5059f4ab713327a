// Package config resolves assistant configuration from the environment.
// The composition root loads .env via godotenv before calling Load, so a
// checked-in .env file and real environment variables behave the same way.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zuru-melon/assistant/internal/store"
)

// Config carries every tunable the assistant binary understands.
type Config struct {
	// LLM access (OpenRouter-compatible endpoint).
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	GeneratorModel    string
	OrchestratorModel string
	SearchModel       string

	// Web search fallback.
	SerperAPIKey string

	// Knowledge base.
	KnowledgeDir string

	// Response cache.
	CacheEnabled bool
	CacheTTL     time.Duration
	DatabasePath string

	// Schema migrations.
	MigrationsDir string

	// SQLite pool tuning.
	MaxOpenConns int
	MaxIdleConns int
	BusyTimeout  time.Duration
}

// Load reads configuration from the environment and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		OpenRouterAPIKey:  strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		OpenRouterBaseURL: strings.TrimSpace(os.Getenv("OPENROUTER_BASE_URL")),
		GeneratorModel:    strings.TrimSpace(os.Getenv("GENERATOR_MODEL_NAME")),
		OrchestratorModel: strings.TrimSpace(os.Getenv("ORCHESTRATOR_MODEL_NAME")),
		SearchModel:       strings.TrimSpace(os.Getenv("SEARCH_MODEL_NAME")),
		SerperAPIKey:      strings.TrimSpace(os.Getenv("SERPER_API_KEY")),
		KnowledgeDir:      strings.TrimSpace(os.Getenv("KNOWLEDGE_BASE_DIR")),
		DatabasePath:      strings.TrimSpace(os.Getenv("ASSISTANT_DB_PATH")),
		MigrationsDir:     strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")),
		CacheEnabled:      true,
	}

	if raw := strings.TrimSpace(os.Getenv("CACHE_ENABLED")); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
		}
		cfg.CacheEnabled = enabled
	}
	if raw := strings.TrimSpace(os.Getenv("CACHE_TTL_DAYS")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse CACHE_TTL_DAYS: %w", err)
		}
		if days > 0 {
			cfg.CacheTTL = time.Duration(days) * 24 * time.Hour
		}
	}
	if raw := strings.TrimSpace(os.Getenv("ASSISTANT_MAX_OPEN_CONNS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse ASSISTANT_MAX_OPEN_CONNS: %w", err)
		}
		if value > 0 {
			cfg.MaxOpenConns = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("ASSISTANT_MAX_IDLE_CONNS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse ASSISTANT_MAX_IDLE_CONNS: %w", err)
		}
		if value > 0 {
			cfg.MaxIdleConns = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("ASSISTANT_BUSY_TIMEOUT")); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse ASSISTANT_BUSY_TIMEOUT: %w", err)
		}
		if timeout > 0 {
			cfg.BusyTimeout = timeout
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GeneratorModel == "" {
		c.GeneratorModel = "openai/gpt-4.1-mini"
	}
	if c.OrchestratorModel == "" {
		c.OrchestratorModel = c.GeneratorModel
	}
	if c.SearchModel == "" {
		c.SearchModel = "perplexity/sonar"
	}
	if c.KnowledgeDir == "" {
		c.KnowledgeDir = "knowledge_base"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * 24 * time.Hour
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "assistant.db"
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = "migrations"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 8
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
}

// Store returns the SQLite pool settings portion of the configuration.
func (c Config) Store() store.Config {
	return store.Config{
		Path:         c.DatabasePath,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
		BusyTimeout:  c.BusyTimeout,
	}
}
