package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/infogrid-io/tfworker/internal/config"
	"github.com/infogrid-io/tfworker/internal/logging"
)

// resolveConfig reads the environment, applies any persistent flags the
// user set explicitly, and validates the result.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.ModelName, _ = flags.GetString("model")
	}
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("interval") { // run only
		cfg.Interval, _ = flags.GetDuration("interval")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns a logger for module honoring cfg.LogLevel. The level
// has already been checked by Validate.
func newLogger(cfg *config.Config, w io.Writer, module string) *logging.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level, _ = logging.ParseLevel("INFO")
	}
	return logging.New(w, level, module)
}
