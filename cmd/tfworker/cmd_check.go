package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/infogrid-io/tfworker/internal/prediction"
	"github.com/infogrid-io/tfworker/internal/style"
)

func newCheckCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Show the serving state of the configured model",
		Long: `Query the model status endpoint and list every loaded version.

Exits non-zero when no version is AVAILABLE, so it can serve as a
startup probe before 'tfworker run'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, stdout, stderr)
		},
	}
}

func runCheck(cmd *cobra.Command, stdout, stderr io.Writer) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return hintWrap(err)
	}

	client := prediction.New(cfg, newLogger(cfg, stderr, "prediction"))
	status, err := client.ModelStatus(cmd.Context())
	if err != nil {
		return hintWrap(err)
	}

	fmt.Fprintf(stdout, "%s %s\n", style.Bold.Render(cfg.ModelName), style.Dim.Render(cfg.ModelURL()))
	if len(status.Versions) == 0 {
		fmt.Fprintf(stdout, "  %s\n", style.Dim.Render("(no versions loaded)"))
	}
	for _, v := range status.Versions {
		fmt.Fprintf(stdout, "  version %-6s %s", v.Version, style.ModelState(v.State))
		if v.Status.ErrorMessage != "" {
			fmt.Fprintf(stdout, "  %s", style.Dim.Render(v.Status.ErrorMessage))
		}
		fmt.Fprintln(stdout)
	}

	if !status.Available() {
		fmt.Fprintf(stderr, "%s model %s has no AVAILABLE version\n",
			style.Error.Render(style.IconFail), cfg.ModelName)
		return errExit
	}
	return nil
}
