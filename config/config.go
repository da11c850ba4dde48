// Package config provides YAML configuration parsing for JobWatch.
//
// This package enables running JobWatch as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	status_url: https://api.example.com/api/jobs
//	auth_token: ${API_TOKEN}
//	poll_interval: 3s
//	request_timeout: 10s
//	max_retries: 5
//	port: 8080
//
//	jobs:
//	  - 7c9e6679-7425-40de-944b-e07fc1f90ae7
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval is the minimum allowed polling interval for production
// configs. This prevents accidental DoS of the status endpoint with overly
// aggressive polling.
const minPollInterval = 1 * time.Second

// Config is the root configuration structure for JobWatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// StatusURL is the base URL of the job-status endpoint; the job id
	// is appended per request. Required.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	StatusURL string `yaml:"status_url"`

	// AuthToken is the bearer token sent with every poll request.
	// Values support environment variable substitution. Optional.
	AuthToken string `yaml:"auth_token"`

	// PollInterval is the time between status polls for each job.
	// Accepts duration strings like "3s", "1m", "500ms". Defaults to 3s.
	PollInterval Duration `yaml:"poll_interval"`

	// RequestTimeout is the per-request timeout. Defaults to 10s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// MaxRetries is how many consecutive transient failures a job's
	// session tolerates before giving up. Defaults to 5.
	MaxRetries *int `yaml:"max_retries"`

	// BaseRetryDelay is the backoff delay after the first transient
	// failure; each further failure doubles it. Defaults to 1s.
	BaseRetryDelay Duration `yaml:"base_retry_delay"`

	// MaxRetryDelay caps the exponential retry backoff. Defaults to 10s.
	MaxRetryDelay Duration `yaml:"max_retry_delay"`

	// Port is the status API port. Defaults to 8080.
	Port int `yaml:"port"`

	// Jobs lists job ids to watch at startup.
	Jobs []string `yaml:"jobs"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in StatusURL and AuthToken. Defaults
// are applied for Port (8080), PollInterval (3s), RequestTimeout (10s),
// MaxRetries (5), BaseRetryDelay (1s), and MaxRetryDelay (10s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(3 * time.Second)
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = Duration(10 * time.Second)
	}
	if cfg.MaxRetries == nil {
		n := 5
		cfg.MaxRetries = &n
	}
	if cfg.BaseRetryDelay == 0 {
		cfg.BaseRetryDelay = Duration(1 * time.Second)
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = Duration(10 * time.Second)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates all fields.
func (c *Config) expandAndValidate() error {
	expanded, err := expandEnvVars(c.StatusURL)
	if err != nil {
		return fmt.Errorf("status_url: %w", err)
	}
	c.StatusURL = expanded

	expanded, err = expandEnvVars(c.AuthToken)
	if err != nil {
		return fmt.Errorf("auth_token: %w", err)
	}
	c.AuthToken = expanded

	if c.StatusURL == "" {
		return errors.New("status_url is required")
	}
	parsed, err := url.Parse(c.StatusURL)
	if err != nil {
		return fmt.Errorf("invalid status_url: %w", err)
	}
	if parsed.Scheme == "" {
		return errors.New("status_url must have a scheme (http:// or https://)")
	}

	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s",
			minPollInterval, c.PollInterval.Duration())
	}
	if c.RequestTimeout.Duration() <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if *c.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}
	if c.BaseRetryDelay.Duration() <= 0 {
		return errors.New("base_retry_delay must be positive")
	}
	if c.MaxRetryDelay.Duration() < c.BaseRetryDelay.Duration() {
		return fmt.Errorf("max_retry_delay must be at least base_retry_delay (%s), got %s",
			c.BaseRetryDelay.Duration(), c.MaxRetryDelay.Duration())
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	for _, id := range c.Jobs {
		if id == "" || id == "undefined" || id == "null" {
			return fmt.Errorf("invalid job id in jobs list: %q", id)
		}
	}

	return nil
}
