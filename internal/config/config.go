// Package config holds explicit configuration for goalforge. The API
// credential lives here and is passed into the gateway constructor; there
// is no process-wide credential cache.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"goalforge/internal/gateway"
)

// Duration is a time.Duration that unmarshals from yaml strings like "4s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// APIConfig configures the Gemini gateway.
type APIConfig struct {
	APIKey          string   `yaml:"api_key"`
	Model           string   `yaml:"model"`
	BaseURL         string   `yaml:"base_url"`
	MaxAttempts     int      `yaml:"max_attempts"`
	RetryBackoff    Duration `yaml:"retry_backoff"`
	AttemptTimeout  Duration `yaml:"attempt_timeout"`
	Temperature     float64  `yaml:"temperature"`
	TopK            int      `yaml:"top_k"`
	TopP            float64  `yaml:"top_p"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	API     APIConfig    `yaml:"api"`
	Server  ServerConfig `yaml:"server"`
	DataDir string       `yaml:"data_dir"`
}

// Default returns the built-in configuration. The API key has no
// default; it must come from the config file or GEMINI_API_KEY.
func Default() Config {
	return Config{
		API: APIConfig{
			Model:           "gemini-2.0-flash",
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			MaxAttempts:     3,
			RetryBackoff:    Duration(4 * time.Second),
			AttemptTimeout:  Duration(60 * time.Second),
			Temperature:     0.2,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		DataDir: ".goalforge",
	}
}

// Load reads configuration from path, layered over defaults, then
// applies environment overrides. An empty path or a missing file is not
// an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}

// applyEnvOverrides lets the environment win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv("GOALFORGE_MODEL"); v != "" {
		c.API.Model = v
	}
	if v := os.Getenv("GOALFORGE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("GOALFORGE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("GOALFORGE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.API.MaxAttempts = n
		}
	}
}

// GatewayConfig converts the API section into the gateway's config.
func (c *Config) GatewayConfig() gateway.Config {
	return gateway.Config{
		APIKey:          c.API.APIKey,
		BaseURL:         c.API.BaseURL,
		Model:           c.API.Model,
		AttemptTimeout:  c.API.AttemptTimeout.Std(),
		MaxAttempts:     c.API.MaxAttempts,
		RetryBackoff:    c.API.RetryBackoff.Std(),
		Temperature:     c.API.Temperature,
		TopK:            c.API.TopK,
		TopP:            c.API.TopP,
		MaxOutputTokens: c.API.MaxOutputTokens,
	}
}
