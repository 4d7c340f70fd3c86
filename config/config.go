// Package config provides YAML configuration parsing for pulsecheck.
//
// This package enables running pulsecheck as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	port: 3000
//	secret_key: ${PULSECHECK_SECRET:-dev-secret}
//	poll_interval: 15s
//
//	store:
//	  driver: bolt
//	  path: .data/pulsecheck.db
//
//	notifier:
//	  driver: twilio
//	  twilio:
//	    account_sid: ${TWILIO_SID}
//	    auth_token: ${TWILIO_TOKEN}
//	    from_phone: "+15005550006"
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/pulsecheck/internal/notify"
)

// minPollInterval is the minimum allowed polling interval.
const minPollInterval = 1 * time.Second

// minIDLength is the minimum length of token and check ids.
const minIDLength = 8

// Store drivers.
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
)

// Notifier drivers.
const (
	NotifierLog    = "log"
	NotifierTwilio = "twilio"
	NotifierNATS   = "nats"
)

// Config is the root configuration structure for pulsecheck.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Env names the deployment environment. Informational only.
	Env string `yaml:"env"`

	// Port is the HTTP server port. Defaults to 3000.
	Port int `yaml:"port"`

	// SecretKey peppers password hashes. Required.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	SecretKey string `yaml:"secret_key"`

	// TokenLength is the length of token ids. Defaults to 26.
	TokenLength int `yaml:"token_length"`

	// CheckLength is the length of check ids. Defaults to 25.
	CheckLength int `yaml:"check_length"`

	// MaxChecks is the number of checks a user may own. Defaults to 5.
	MaxChecks int `yaml:"max_checks"`

	// TokenTTL is how long a token stays valid. Defaults to 1h.
	TokenTTL Duration `yaml:"token_ttl"`

	// PollInterval is the time between probe cycles.
	// Accepts duration strings like "10s", "1m". Defaults to 15s.
	PollInterval Duration `yaml:"poll_interval"`

	Store     StoreConfig     `yaml:"store"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	// Driver is "memory", "bolt" or "sqlite". Defaults to "memory".
	Driver string `yaml:"driver"`

	// Path is the database file for bolt and sqlite.
	Path string `yaml:"path"`
}

// NotifierConfig selects the alert gateway.
type NotifierConfig struct {
	// Driver is "log", "twilio" or "nats". Defaults to "log".
	Driver string `yaml:"driver"`

	Twilio TwilioConfig `yaml:"twilio"`
	NATS   NATSConfig   `yaml:"nats"`
}

// TwilioConfig holds Twilio REST API credentials.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromPhone  string `yaml:"from_phone"`

	// CountryPrefix is prepended to the 11-digit phone. Defaults to "+88".
	CountryPrefix string `yaml:"country_prefix"`

	// BaseURL overrides the API host, for tests.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each request. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`
}

// NATSConfig holds the NATS connection settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// RateLimitConfig throttles login attempts.
type RateLimitConfig struct {
	// LoginPerMinute is the per-IP limit on POST /token. Zero disables it.
	LoginPerMinute int `yaml:"login_per_minute"`
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

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
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
// Environment variables in string fields are expanded after parsing.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Port == 0 {
		c.Port = 3000
	}
	if c.TokenLength == 0 {
		c.TokenLength = 26
	}
	if c.CheckLength == 0 {
		c.CheckLength = 25
	}
	if c.MaxChecks == 0 {
		c.MaxChecks = 5
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = Duration(time.Hour)
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(15 * time.Second)
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
	}
	if c.Notifier.Driver == "" {
		c.Notifier.Driver = NotifierLog
	}
	if c.Notifier.Twilio.CountryPrefix == "" {
		c.Notifier.Twilio.CountryPrefix = notify.DefaultCountryPrefix
	}
	if c.Notifier.Twilio.Timeout == 0 {
		c.Notifier.Twilio.Timeout = Duration(10 * time.Second)
	}
	if c.Notifier.NATS.Subject == "" {
		c.Notifier.NATS.Subject = notify.DefaultSubject
	}
}

// expandEnv expands environment variables in every string field that may
// carry credentials or paths.
func (c *Config) expandEnv() error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"secret_key", &c.SecretKey},
		{"store.path", &c.Store.Path},
		{"notifier.twilio.account_sid", &c.Notifier.Twilio.AccountSID},
		{"notifier.twilio.auth_token", &c.Notifier.Twilio.AuthToken},
		{"notifier.twilio.from_phone", &c.Notifier.Twilio.FromPhone},
		{"notifier.twilio.base_url", &c.Notifier.Twilio.BaseURL},
		{"notifier.nats.url", &c.Notifier.NATS.URL},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.ptr)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = expanded
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret_key is required")
	}
	if c.TokenLength < minIDLength || c.CheckLength < minIDLength {
		return fmt.Errorf("token_length and check_length must be at least %d", minIDLength)
	}
	if c.TokenLength == c.CheckLength {
		return fmt.Errorf("token_length and check_length must differ, both are %d", c.TokenLength)
	}
	if c.MaxChecks < 1 {
		return fmt.Errorf("max_checks must be positive, got %d", c.MaxChecks)
	}
	if c.TokenTTL.Duration() <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL.Duration())
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.RateLimit.LoginPerMinute < 0 {
		return fmt.Errorf("rate_limit.login_per_minute cannot be negative, got %d", c.RateLimit.LoginPerMinute)
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreBolt, StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be memory, bolt or sqlite, got %q", c.Store.Driver)
	}

	switch c.Notifier.Driver {
	case NotifierLog:
	case NotifierTwilio:
		tw := c.Notifier.Twilio
		if tw.AccountSID == "" || tw.AuthToken == "" || tw.FromPhone == "" {
			return fmt.Errorf("notifier.twilio requires account_sid, auth_token and from_phone")
		}
		if tw.Timeout.Duration() <= 0 {
			return fmt.Errorf("notifier.twilio.timeout must be positive, got %s", tw.Timeout.Duration())
		}
	case NotifierNATS:
		if c.Notifier.NATS.URL == "" {
			return fmt.Errorf("notifier.nats.url is required")
		}
	default:
		return fmt.Errorf("notifier.driver must be log, twilio or nats, got %q", c.Notifier.Driver)
	}

	return nil
}
