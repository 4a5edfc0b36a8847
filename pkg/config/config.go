package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for sqless-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// LogLevel controls zap logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// Resolution engine tuning
	Engine EngineConfig `yaml:"engine"`

	// Catalog storage backend selection
	Catalog CatalogConfig `yaml:"catalog"`

	// Database configuration (PostgreSQL, only used for the postgres catalog backend)
	Database DatabaseConfig `yaml:"database"`
}

// EngineConfig holds the resolution engine's decision thresholds.
type EngineConfig struct {
	// HighConfThreshold is the minimum top-1 score for auto-selection.
	HighConfThreshold float64 `yaml:"high_conf_threshold" env:"ENGINE_HIGH_CONF_THRESHOLD" env-default:"0.85"`

	// ClarifyingThreshold is the minimum top-1 score for the clarification
	// path; below it the session is routed to an expert.
	ClarifyingThreshold float64 `yaml:"clarifying_threshold" env:"ENGINE_CLARIFYING_THRESHOLD" env-default:"0.65"`

	// ScoreMargin is the required top-1 / top-2 gap for auto-selection.
	ScoreMargin float64 `yaml:"score_margin" env:"ENGINE_SCORE_MARGIN" env-default:"0.15"`

	// TopK bounds the retrieved candidate list.
	TopK int `yaml:"top_k" env:"ENGINE_TOP_K" env-default:"5"`

	// MaxQuestions bounds clarification questions returned per request.
	MaxQuestions int `yaml:"max_questions" env:"ENGINE_MAX_QUESTIONS" env-default:"3"`

	// ReviewersStr is a comma-separated list of reviewer identities for
	// expert escalation.
	ReviewersStr string `yaml:"reviewers" env:"ENGINE_REVIEWERS" env-default:"owner@datateam.com,lead@datateam.com,governance@datateam.com"`

	// Reviewers is the parsed form of ReviewersStr (not from config file).
	Reviewers []string `yaml:"-"`
}

// CatalogConfig selects the catalog storage backend.
type CatalogConfig struct {
	// Backend is "memory" (default, process-lifetime) or "postgres".
	Backend string `yaml:"backend" env:"CATALOG_BACKEND" env-default:"memory"`

	// Seed loads the default sample specifications at startup.
	Seed bool `yaml:"seed" env:"CATALOG_SEED" env-default:"true"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"sqless"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"sqless_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL returns the postgres connection string for this configuration.
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password),
		d.Host, d.Port, d.Database, d.SSLMode)
}

// Load reads configuration from config.yaml (if present) and the
// environment, then post-processes derived fields.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Engine.Reviewers = parseReviewers(cfg.Engine.ReviewersStr)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.HighConfThreshold < c.Engine.ClarifyingThreshold {
		return fmt.Errorf("high_conf_threshold (%.2f) must be >= clarifying_threshold (%.2f)",
			c.Engine.HighConfThreshold, c.Engine.ClarifyingThreshold)
	}
	if c.Engine.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Engine.TopK)
	}
	switch c.Catalog.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown catalog backend %q", c.Catalog.Backend)
	}
	return nil
}

// parseReviewers splits a comma-separated reviewer list, dropping empty
// entries.
func parseReviewers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
