package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/infogrid-io/tfworker/internal/config"
	"github.com/infogrid-io/tfworker/internal/style"
)

func newConfigCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Long: `Print the settings tfworker would run with, after applying the
environment and any flags.

Use 'tfworker config env' to list every recognised variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, stdout, stderr)
		},
	}

	cmd.AddCommand(newConfigEnvCmd(stdout))

	return cmd
}

func newConfigEnvCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables tfworker reads",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return config.Usage(stdout)
		},
	}
}

func runConfigShow(cmd *cobra.Command, stdout, _ io.Writer) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return hintWrap(err)
	}

	rows := [][2]string{
		{"MODEL_NAME", cfg.ModelName},
		{"TENSORFLOW_DNS", cfg.Host},
		{"TENSORFLOW_PORT", fmt.Sprint(cfg.Port)},
		{"LOG_LEVEL", strings.ToUpper(cfg.LogLevel)},
		{"PREDICT_TIMEOUT", cfg.Timeout.String()},
		{"PREDICT_INTERVAL", cfg.Interval.String()},
		{"INPUT_LENGTH", fmt.Sprint(cfg.InputLength)},
		{"BACKOFF_INITIAL", cfg.BackoffInitial.String()},
		{"BACKOFF_MAX", cfg.BackoffMax.String()},
		{"METRICS_ADDR", orNone(cfg.MetricsAddr)},
		{"SENTRY_DSN", orNone(maskDSN(cfg.SentryDSN))},
		{"SENTRY_ENVIRONMENT", orNone(cfg.SentryEnvironment)},
	}
	for _, r := range rows {
		fmt.Fprintf(stdout, "%s %s\n", style.Bold.Render(fmt.Sprintf("%-18s", r[0])), r[1])
	}
	fmt.Fprintf(stdout, "\n  %s\n", style.Dim.Render("predict "+cfg.PredictURL()))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return style.Dim.Render("(unset)")
	}
	return s
}

// maskDSN hides the key part of a Sentry DSN, which precedes the '@'.
func maskDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	_, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	return scheme + "://***@" + host
}
