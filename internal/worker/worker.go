// Package worker runs the generate → predict → log loop.
//
// The loop is the only place errors are recovered. Every failure of an
// iteration is logged with its stack trace and the loop carries on; only
// cancelling the context stops it.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/infogrid-io/tfworker/internal/logging"
	"github.com/infogrid-io/tfworker/internal/metrics"
	"github.com/infogrid-io/tfworker/internal/prediction"
	"github.com/infogrid-io/tfworker/internal/report"
	"github.com/infogrid-io/tfworker/internal/tensor"
)

// Generator produces model input.
type Generator interface {
	Generate(length int) tensor.Tensor
}

// Predictor sends input to the model and returns a probability.
type Predictor interface {
	Predict(ctx context.Context, t tensor.Tensor) (float64, error)
}

// Options tune the loop. The zero value runs forever with no pauses.
type Options struct {
	InputLength int
	// Interval is the pause after a successful iteration.
	Interval time.Duration
	// Backoff paces retries after failures.
	Backoff Backoff
	// Iterations stops the loop after that many iterations; 0 runs forever.
	Iterations int

	Metrics  *metrics.Metrics // optional
	Reporter report.Reporter  // optional
}

// Worker drives one Generator and one Predictor.
type Worker struct {
	gen  Generator
	pred Predictor
	log  *logging.Logger
	opts Options

	backoff     Backoff
	consecutive int
	ready       atomic.Bool
}

// New returns a Worker. It is not safe for concurrent use.
func New(gen Generator, pred Predictor, log *logging.Logger, opts Options) *Worker {
	if opts.Reporter == nil {
		opts.Reporter = report.Nop{}
	}
	return &Worker{
		gen:     gen,
		pred:    pred,
		log:     log,
		opts:    opts,
		backoff: opts.Backoff,
	}
}

// Result describes one iteration. Probability is set only on success.
type Result struct {
	ID          string
	Input       tensor.Tensor
	Probability float64
	Took        time.Duration
}

// RunOnce generates input, predicts, and logs the outcome. Panics raised
// by the generator or predictor are returned as errors.
func (w *Worker) RunOnce(ctx context.Context) (res Result, err error) {
	res.ID = uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.Errorf("iteration %s panicked: %v", res.ID, r)
		}
	}()

	res.Input = w.gen.Generate(w.opts.InputLength)

	start := time.Now()
	p, err := w.pred.Predict(prediction.WithRequestID(ctx, res.ID), res.Input)
	res.Took = time.Since(start)
	if err != nil {
		return res, err
	}
	res.Probability = p

	w.log.Infof("iteration %s: input %v -> probability %v", res.ID, res.Input, p)
	return res, nil
}

// Run loops until ctx is done or the iteration limit is reached. It returns
// ctx.Err() when cancelled and nil when the limit is reached.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Noticef("worker started: input length %d, interval %s, backoff %s..%s",
		w.opts.InputLength, w.opts.Interval, w.opts.Backoff.Initial, w.opts.Backoff.Max)

	for i := 1; w.opts.Iterations == 0 || i <= w.opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := w.RunOnce(ctx)
		var pause time.Duration
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			pause = w.failed(res, err)
		} else {
			w.succeeded(res)
			pause = w.opts.Interval
		}

		if i == w.opts.Iterations {
			break
		}
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// Ready reports whether the last iteration succeeded. It may be called from
// any goroutine.
func (w *Worker) Ready() bool { return w.ready.Load() }

func (w *Worker) succeeded(res Result) {
	if w.consecutive > 0 {
		w.log.Noticef("recovered after %d failed iterations", w.consecutive)
	}
	w.consecutive = 0
	w.ready.Store(true)
	w.backoff.Reset()
	if w.opts.Metrics != nil {
		w.opts.Metrics.ObserveSuccess(res.Took, res.Probability)
	}
}

func (w *Worker) failed(res Result, err error) time.Duration {
	w.consecutive++
	w.ready.Store(false)
	kind := prediction.KindOf(err)

	w.log.Errorf("iteration %s failed (%s, %d in a row): %+v", res.ID, kind, w.consecutive, err)
	w.opts.Reporter.Capture(err, map[string]string{"kind": kind.String(), "iteration": res.ID})
	if w.opts.Metrics != nil {
		w.opts.Metrics.ObserveFailure(kind.String(), res.Took, w.consecutive)
	}

	pause := w.backoff.Next()
	if pause > 0 {
		w.log.Warningf("retrying in %s", pause)
	}
	return pause
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
