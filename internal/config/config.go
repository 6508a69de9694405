// Package config loads the worker settings from the environment.
//
// Settings are read once at startup and passed by pointer to the components
// that need them. Nothing mutates a Config after Load returns.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/infogrid-io/tfworker/internal/logging"
)

// SignatureName is the serving signature every predict request targets.
const SignatureName = "serving_default"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the worker settings.
type Config struct {
	// Model served by TensorFlow Serving.
	ModelName string `envconfig:"MODEL_NAME" desc:"served model name (required)"`

	// Host and Port of the TensorFlow Serving REST API.
	Host string `envconfig:"TENSORFLOW_DNS" default:"localhost" desc:"serving host or DNS name"`
	Port int    `envconfig:"TENSORFLOW_PORT" default:"8501" desc:"serving REST port"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO" desc:"DEBUG, INFO, NOTICE, WARNING, ERROR or CRITICAL"`

	Timeout     time.Duration `envconfig:"PREDICT_TIMEOUT" default:"10s" desc:"timeout of one predict call"`
	Interval    time.Duration `envconfig:"PREDICT_INTERVAL" default:"1s" desc:"pause after a successful iteration"`
	InputLength int           `envconfig:"INPUT_LENGTH" default:"2" desc:"number of generated input rows"`

	// BackoffInitial is the first pause after a failed iteration. Zero retries
	// immediately.
	BackoffInitial time.Duration `envconfig:"BACKOFF_INITIAL" default:"1s" desc:"first pause after a failure, 0 retries immediately"`
	BackoffMax     time.Duration `envconfig:"BACKOFF_MAX" default:"30s" desc:"cap on the failure pause"`

	MetricsAddr string `envconfig:"METRICS_ADDR" desc:"listen address for /metrics and /healthz, empty disables"`

	SentryDSN         string `envconfig:"SENTRY_DSN" desc:"report loop errors to Sentry, empty disables"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" desc:"Sentry environment tag"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read applies defaults and the environment without validating, so callers
// can layer overrides on top before calling Validate.
func Read() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// Usage writes a table of the recognised environment variables to w.
func Usage(w io.Writer) error {
	return envconfig.Usagef("", &Config{}, w, envconfig.DefaultTableFormat)
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	switch {
	case c.ModelName == "":
		return fmt.Errorf("%w: MODEL_NAME is required", ErrInvalid)
	case c.Host == "":
		return fmt.Errorf("%w: TENSORFLOW_DNS is required", ErrInvalid)
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("%w: TENSORFLOW_PORT %d out of range 1-65535", ErrInvalid, c.Port)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: PREDICT_TIMEOUT must be positive, got %s", ErrInvalid, c.Timeout)
	case c.Interval < 0:
		return fmt.Errorf("%w: PREDICT_INTERVAL must not be negative, got %s", ErrInvalid, c.Interval)
	case c.BackoffInitial < 0:
		return fmt.Errorf("%w: BACKOFF_INITIAL must not be negative, got %s", ErrInvalid, c.BackoffInitial)
	case c.BackoffMax < c.BackoffInitial:
		return fmt.Errorf("%w: BACKOFF_MAX %s is below BACKOFF_INITIAL %s", ErrInvalid, c.BackoffMax, c.BackoffInitial)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: LOG_LEVEL: %v", ErrInvalid, err)
	}
	return nil
}

// BaseURL returns the serving root, e.g. "http://localhost:8501".
func (c *Config) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ModelURL returns the model status endpoint.
func (c *Config) ModelURL() string {
	return c.BaseURL() + "/v1/models/" + url.PathEscape(c.ModelName)
}

// PredictURL returns the predict endpoint for the configured model.
func (c *Config) PredictURL() string {
	return c.ModelURL() + ":predict"
}
