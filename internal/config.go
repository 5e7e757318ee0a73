package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Engine modes.
const (
	EngineHeuristic  = "heuristic"
	EngineGenerative = "generative"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Engine EngineConfig      `yaml:"engine"`
	Spool  SpoolConfig       `yaml:"spool"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return c.Spool.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// EngineConfig selects the rewrite engine at construction time.
//
// Mode controls which engine the orchestrator is built with:
//   - "heuristic" (default): the conservative tree-rewriting passes.
//   - "generative": the external provider; Generative.APIKey must be set
//     for rewrites to succeed, but startup does not require it.
type EngineConfig struct {
	Mode       string           `yaml:"mode"`
	Generative GenerativeConfig `yaml:"generative"`
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = EngineHeuristic
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(EngineHeuristic, EngineGenerative)),
	)
}

// GenerativeConfig holds the external rewrite provider settings.
type GenerativeConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the provider call timeout.
func (c *GenerativeConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SpoolConfig holds the snapshot spool directory settings.
type SpoolConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the spool configuration.
func (c *SpoolConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./semantify.db",
		},
		Engine: EngineConfig{
			Mode: EngineHeuristic,
			Generative: GenerativeConfig{
				BaseURL: "http://localhost:11434",
				Model:   "gpt-oss:120b",
			},
		},
		Spool: SpoolConfig{
			Enabled: false,
			Path:    "./spool",
		},
	}
}
