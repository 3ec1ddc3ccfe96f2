// Package config provides configuration loading for convoscan.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then CONVOSCAN_* environment variables. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete convoscan configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	LLM           LLMConfig           `koanf:"llm"`
	Analysis      AnalysisConfig      `koanf:"analysis"`
	Lexicon       LexiconConfig       `koanf:"lexicon"`
	Events        EventsConfig        `koanf:"events"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// LLMConfig selects and configures the reasoning backend.
//
// Provider is one of "disabled", "anthropic", "openai" or "langchain".
// With "disabled" every analysis pass runs its heuristic.
type LLMConfig struct {
	Provider  string        `koanf:"provider"`
	Model     string        `koanf:"model"`
	APIKey    Secret        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"` // requests per second
	Burst     int           `koanf:"burst"`
	MaxTokens int           `koanf:"max_tokens"`
}

// AnalysisConfig holds thresholds for the normalization and scoring stages.
type AnalysisConfig struct {
	CallThreshold  int  `koanf:"call_threshold"`
	RiskFloor      int  `koanf:"risk_floor"`
	ForceHeuristic bool `koanf:"force_heuristic"`
}

// LexiconConfig points at an optional TOML keyword pack for heuristic detection.
type LexiconConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

// EventsConfig controls publishing of completed analyses to NATS.
type EventsConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"nats_url"`
	SubjectPrefix string        `koanf:"subject_prefix"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
	MaxReconnects int           `koanf:"max_reconnects"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	Protocol        string `koanf:"protocol"`
	Insecure        bool   `koanf:"insecure"`
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Timeouts are not positive
//   - The LLM provider is unknown or lacks credentials
//   - Analysis thresholds are out of range
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}

	switch c.LLM.Provider {
	case "disabled":
	case "anthropic", "openai", "langchain":
		if !c.LLM.APIKey.IsSet() {
			return fmt.Errorf("llm provider %q requires api_key", c.LLM.Provider)
		}
		if c.LLM.RateLimit <= 0 {
			return errors.New("llm rate_limit must be positive")
		}
	default:
		return fmt.Errorf("unknown llm provider %q (must be disabled, anthropic, openai or langchain)", c.LLM.Provider)
	}

	if c.Analysis.CallThreshold < 1 {
		return fmt.Errorf("call_threshold must be >= 1, got %d", c.Analysis.CallThreshold)
	}
	if c.Analysis.RiskFloor < 0 || c.Analysis.RiskFloor > 100 {
		return fmt.Errorf("risk_floor must be 0-100, got %d", c.Analysis.RiskFloor)
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return errors.New("events.nats_url required when events are enabled")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}
