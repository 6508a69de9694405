package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/infogrid-io/tfworker/internal/config"
	"github.com/infogrid-io/tfworker/internal/metrics"
	"github.com/infogrid-io/tfworker/internal/prediction"
	"github.com/infogrid-io/tfworker/internal/report"
	"github.com/infogrid-io/tfworker/internal/tensor"
	"github.com/infogrid-io/tfworker/internal/worker"
)

const flushTimeout = 2 * time.Second

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	var iterations int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the predict loop until interrupted",
		Long: `Generate random input, send it to the model, and log the returned
probability, over and over.

Failed iterations are logged with their stack trace and retried after a
growing pause (BACKOFF_INITIAL doubling up to BACKOFF_MAX). SIGINT or
SIGTERM stops the loop cleanly.

When METRICS_ADDR is set, Prometheus metrics are served on /metrics with
liveness and readiness probes on /healthz and /readyz.

Examples:
  MODEL_NAME=toxicity tfworker run
  tfworker run --model toxicity --iterations 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, stdout, stderr, iterations)
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", 0, "Stop after N iterations (0 runs forever)")
	cmd.Flags().Duration("interval", 0, "Pause after a successful iteration (overrides PREDICT_INTERVAL)")

	return cmd
}

func runRun(cmd *cobra.Command, _, stderr io.Writer, iterations int) error {
	if iterations < 0 {
		return fmt.Errorf("--iterations must not be negative, got %d", iterations)
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return hintWrap(err)
	}

	rep, err := report.New(cfg.SentryDSN, cfg.SentryEnvironment, version)
	if err != nil {
		return err
	}
	defer rep.Flush(flushTimeout)

	var ln net.Listener
	if cfg.MetricsAddr != "" {
		ln, err = net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveWorker(ctx, cfg, stderr, rep, ln, iterations)
}

// serveWorker runs the loop and, when ln is non-nil, the metrics endpoint
// alongside it. The endpoint stops when the loop returns.
func serveWorker(ctx context.Context, cfg *config.Config, stderr io.Writer, rep report.Reporter, ln net.Listener, iterations int) error {
	log := newLogger(cfg, stderr, "worker")
	m := metrics.New(cfg.ModelName)
	w := worker.New(
		tensor.NewGenerator(nil),
		prediction.New(cfg, newLogger(cfg, stderr, "prediction")),
		log,
		worker.Options{
			InputLength: cfg.InputLength,
			Interval:    cfg.Interval,
			Backoff:     worker.Backoff{Initial: cfg.BackoffInitial, Max: cfg.BackoffMax},
			Iterations:  iterations,
			Metrics:     m,
			Reporter:    rep,
		},
	)

	log.Noticef("predicting with %s (signature %s)", cfg.PredictURL(), config.SignatureName)

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	g.Go(func() error {
		defer stopServing()
		return w.Run(gctx)
	})
	if ln != nil {
		log.Infof("serving metrics on %s", ln.Addr())
		g.Go(func() error {
			if err := metrics.ServeListener(serveCtx, ln, m.Handler(w.Ready)); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Notice("worker stopped")
		return nil
	}
	return err
}
