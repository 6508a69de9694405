package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/infogrid-io/tfworker/internal/config"
	"github.com/infogrid-io/tfworker/internal/prediction"
	"github.com/infogrid-io/tfworker/internal/style"
	"github.com/infogrid-io/tfworker/internal/tensor"
	"github.com/infogrid-io/tfworker/internal/worker"
)

func newPredictCmd(stdout, stderr io.Writer) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Send one random input and print the probability",
		Long: `Run a single iteration of the loop and print its result.

Unlike 'tfworker run', a failure is returned as a non-zero exit status.

Examples:
  tfworker predict --model toxicity
  tfworker predict --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, stdout, stderr, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")

	return cmd
}

// predictResult is the --json form of one iteration.
type predictResult struct {
	ID          string        `json:"id"`
	Model       string        `json:"model"`
	Input       tensor.Tensor `json:"input"`
	Probability float64       `json:"probability"`
	TookMillis  int64         `json:"took_ms"`
}

func runPredict(cmd *cobra.Command, stdout, stderr io.Writer, jsonOut bool) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return hintWrap(err)
	}

	w := worker.New(
		tensor.NewGenerator(nil),
		prediction.New(cfg, newLogger(cfg, stderr, "prediction")),
		newLogger(cfg, stderr, "worker"),
		worker.Options{InputLength: cfg.InputLength},
	)

	spin := style.StartSpinner(stderr, "Predicting with "+cfg.ModelName+"...")
	res, err := w.RunOnce(cmd.Context())
	spin.Stop()
	if err != nil {
		return hintWrap(err)
	}

	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(predictResult{
			ID:          res.ID,
			Model:       cfg.ModelName,
			Input:       res.Input,
			Probability: res.Probability,
			TookMillis:  res.Took.Milliseconds(),
		})
	}
	renderPrediction(stdout, cfg, res)
	return nil
}

func renderPrediction(w io.Writer, cfg *config.Config, res worker.Result) {
	fmt.Fprintf(w, "%s %s\n", style.Success.Render(style.IconPass), style.Bold.Render(cfg.ModelName))
	fmt.Fprintf(w, "  Probability: %s\n", style.Probability(res.Probability))
	fmt.Fprintf(w, "  Input:       %v\n", res.Input)
	fmt.Fprintf(w, "  Took:        %s\n", res.Took.Round(time.Millisecond))
	fmt.Fprintf(w, "  %s\n", style.Dim.Render("request "+res.ID))
}
