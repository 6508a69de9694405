// tfworker feeds synthetic input to a TensorFlow Serving model and logs the
// predictions it gets back.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/infogrid-io/tfworker/internal/style"
)

// Version metadata injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errExit is a sentinel error returned by cobra RunE functions to signal
// non-zero exit. The command has already written its own error to stderr.
var errExit = errors.New("exit")

// run executes the tfworker CLI with the given args.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "tfworker: %v\n", err)
			var h *HintedError
			if errors.As(err, &h) && h.Hint != "" {
				fmt.Fprintf(stderr, "  %s\n", style.Dim.Render(h.Hint))
			}
		}
		return 1
	}
	return 0
}

// newRootCmd creates the root cobra command with all subcommands.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "tfworker",
		Short: "Send synthetic input to a TensorFlow Serving model",
		Long: `tfworker generates random input, posts it to a TensorFlow Serving
REST endpoint, and logs the probability the model returns.

Settings come from the environment (see 'tfworker config env');
the persistent flags below override them.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			fmt.Fprintf(stderr, "tfworker: unknown command %q\n", args[0]) //nolint:errcheck // best-effort stderr
			return errExit
		},
	}
	flags := root.PersistentFlags()
	flags.String("model", "", "Model name (overrides MODEL_NAME)")
	flags.String("host", "", "Serving host (overrides TENSORFLOW_DNS)")
	flags.Int("port", 0, "Serving REST port (overrides TENSORFLOW_PORT)")
	flags.String("log-level", "", "Log level (overrides LOG_LEVEL)")
	flags.Duration("timeout", 0, "Predict call timeout (overrides PREDICT_TIMEOUT)")
	flags.String("color", "auto", "Color output: always, auto, never")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		colorMode, _ := cmd.Flags().GetString("color")
		return style.SetColorMode(colorMode)
	}
	root.AddCommand(
		newRunCmd(stdout, stderr),
		newPredictCmd(stdout, stderr),
		newCheckCmd(stdout, stderr),
		newConfigCmd(stdout, stderr),
		newVersionCmd(stdout),
	)
	return root
}
