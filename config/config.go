// Package config loads the document chat settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Memory backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Environment variables read by Load.
const (
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvBaseURL  = "OPENAI_BASE_URL"
	EnvLogLevel = "DOCCHAT_LOG_LEVEL"
)

// PipelineConfig holds the three pipeline switches.
type PipelineConfig struct {
	Compression    bool `yaml:"compression"`
	ForwardLooking bool `yaml:"forward_looking"`
	Moderation     bool `yaml:"moderation"`
}

// MemoryConfig selects where conversation history is kept.
type MemoryConfig struct {
	Backend     string        `yaml:"backend" validate:"oneof=memory redis sqlite postgres"`
	RedisAddr   string        `yaml:"redis_addr" validate:"required_if=Backend redis"`
	SQLitePath  string        `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
	PostgresDSN string        `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	TTL         time.Duration `yaml:"ttl" validate:"gte=0"`
}

// Config is the root configuration.
type Config struct {
	// APIKey comes from the environment only and is never written out.
	APIKey          string         `yaml:"-" validate:"required"`
	BaseURL         string         `yaml:"base_url" validate:"omitempty,url"`
	Model           string         `yaml:"model" validate:"required"`
	EmbeddingModel  string         `yaml:"embedding_model" validate:"required"`
	ModerationModel string         `yaml:"moderation_model"`
	Temperature     float64        `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens       int            `yaml:"max_tokens" validate:"gte=0"`
	Pipeline        PipelineConfig `yaml:"pipeline"`
	Memory          MemoryConfig   `yaml:"memory"`
	LogLevel        string         `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error none off disable"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		MaxTokens:      4000,
		Memory:         MemoryConfig{Backend: BackendMemory},
		LogLevel:       "info",
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. Variables already set in the process win over envFiles,
// which default to ".env". Missing files are skipped. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	applyDefaults(cfg)

	env, err := readEnv(envFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return env[key]
	}
	cfg.APIKey = lookup(EnvAPIKey)
	if v := lookup(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := lookup(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readEnv(files []string) (map[string]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	env := map[string]string{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := env[k]; !ok {
				env[k] = v
			}
		}
	}
	return env, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = BackendMemory
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
