// Package config loads coverbot configuration from YAML with environment
// variable overrides for API credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all coverbot configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Refinement loop settings
	Loop LoopConfig `yaml:"loop"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the completion service client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// LoopConfig configures the coverage refinement loop.
type LoopConfig struct {
	// Maximum prompt/response/measure cycles per target unit.
	MaxAttempts int `yaml:"max_attempts"`

	// When a response yields no test functions the loop normally discards
	// the previous test code and reverts to the initial prompt form. Set
	// true to keep the last good test code and re-issue the follow-up
	// prompt instead.
	KeepTestOnParseFailure bool `yaml:"keep_test_on_parse_failure"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // debug, info, warn, error
	Dir     string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "120s",
		},
		Loop: LoopConfig{
			MaxAttempts: 5,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
			Dir:     ".coverbot/logs",
		},
	}
}

// Load reads configuration from the given path, falling back to defaults
// when the file does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides fills credentials from the environment. A key matching
// the configured provider wins; otherwise the first available key selects
// the provider, GEMINI_API_KEY before OPENAI_API_KEY. COVERBOT_MODEL
// overrides the model name regardless of provider.
func (c *Config) applyEnvOverrides() {
	if model := os.Getenv("COVERBOT_MODEL"); model != "" {
		c.LLM.Model = model
	}

	switch c.LLM.Provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.LLM.APIKey = key
			return
		}
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.LLM.APIKey = key
			return
		}
	}

	if c.LLM.APIKey != "" {
		return
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider != "gemini" {
			// The configured model belongs to the old provider.
			c.LLM.Provider = "gemini"
			c.LLM.Model = ""
		}
		return
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider != "openai" {
			c.LLM.Provider = "openai"
			c.LLM.Model = ""
		}
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Loop.MaxAttempts < 1 {
		return fmt.Errorf("loop.max_attempts must be positive, got %d", c.Loop.MaxAttempts)
	}
	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("llm.timeout is not a valid duration: %w", err)
		}
	}
	return nil
}

// LLMTimeout returns the parsed LLM timeout, or a sensible default.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}
