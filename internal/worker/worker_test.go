package worker

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gologging "gopkg.in/op/go-logging.v1"

	"github.com/infogrid-io/tfworker/internal/logging"
	"github.com/infogrid-io/tfworker/internal/metrics"
	"github.com/infogrid-io/tfworker/internal/prediction"
	"github.com/infogrid-io/tfworker/internal/servingtest"
	"github.com/infogrid-io/tfworker/internal/tensor"
)

// scriptedPredictor returns errs in order, then probability forever.
type scriptedPredictor struct {
	mu          sync.Mutex
	errs        []error
	probability float64
	calls       int
	lengths     []int
}

func (p *scriptedPredictor) Predict(_ context.Context, t tensor.Tensor) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lengths = append(p.lengths, t.Shape()[1])
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return 0, err
	}
	return p.probability, nil
}

type panicGenerator struct{}

func (panicGenerator) Generate(int) tensor.Tensor { panic("shape exploded") }

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (r *recordingReporter) Capture(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *recordingReporter) Flush(time.Duration) bool { return true }

func newLogger() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.New(&buf, gologging.DEBUG, "worker"), &buf
}

func TestRun_RecoversAfterFailures(t *testing.T) {
	t.Parallel()
	pred := &scriptedPredictor{
		errs: []error{
			pkgerrors.WithStack(&prediction.Error{Kind: prediction.KindConnection, Op: "predict", URL: "u"}),
			pkgerrors.WithStack(&prediction.Error{Kind: prediction.KindTimeout, Op: "predict", URL: "u"}),
			pkgerrors.WithStack(&prediction.Error{Kind: prediction.KindServer, Op: "predict", URL: "u", StatusCode: 500}),
		},
		probability: 0.73,
	}
	log, buf := newLogger()
	m := metrics.New("m")
	rep := &recordingReporter{}
	w := New(tensor.NewGenerator(nil), pred, log, Options{
		InputLength: 2,
		Backoff:     Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond},
		Iterations:  4,
		Metrics:     m,
		Reporter:    rep,
	})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if pred.calls != 4 {
		t.Errorf("predictor called %d times, want 4", pred.calls)
	}
	for i, n := range pred.lengths {
		if n != 2 {
			t.Errorf("call %d got input length %d, want 2", i, n)
		}
	}
	out := buf.String()
	if got := strings.Count(out, "ERROR"); got != 3 {
		t.Errorf("logged %d errors, want 3:\n%s", got, out)
	}
	if !strings.Contains(out, "probability 0.73") {
		t.Errorf("success not logged:\n%s", out)
	}
	if !strings.Contains(out, "recovered after 3 failed iterations") {
		t.Errorf("recovery not logged:\n%s", out)
	}
	if !strings.Contains(out, "worker_test.go") {
		t.Errorf("error log has no stack trace:\n%s", out)
	}
	if !w.Ready() {
		t.Error("Ready() = false after a success")
	}

	if len(rep.errs) != 3 {
		t.Fatalf("reported %d errors, want 3", len(rep.errs))
	}
	if rep.tags[1]["kind"] != "timeout" {
		t.Errorf("second report kind = %q, want timeout", rep.tags[1]["kind"])
	}

	for kind, want := range map[string]float64{"connection": 1, "timeout": 1, "server": 1, metrics.OutcomeSuccess: 1} {
		if got := testutil.ToFloat64(m.Iterations.WithLabelValues(kind)); got != want {
			t.Errorf("iterations{%s} = %v, want %v", kind, got, want)
		}
	}
	if got := testutil.ToFloat64(m.LastProbability); got != 0.73 {
		t.Errorf("last_probability = %v, want 0.73", got)
	}
}

func TestRun_AgainstServingEndpoint(t *testing.T) {
	t.Parallel()
	srv := servingtest.New(t, "churn")
	srv.Enqueue(
		servingtest.JSON(http.StatusInternalServerError, `{"error": "overloaded"}`),
		servingtest.JSON(http.StatusOK, `not json`),
		servingtest.JSON(http.StatusOK, `{"outputs": []}`),
		servingtest.Probability(0.73),
	)
	cfg := srv.Config()
	log, buf := newLogger()
	w := New(tensor.NewGenerator(nil), prediction.New(cfg, log), log, Options{
		InputLength: cfg.InputLength,
		Interval:    cfg.Interval,
		Backoff:     Backoff{Initial: cfg.BackoffInitial, Max: cfg.BackoffMax},
		Iterations:  4,
	})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if n := len(srv.Requests()); n != 4 {
		t.Errorf("server saw %d requests, want 4", n)
	}
	out := buf.String()
	for _, want := range []string{"(server, 1 in a row)", "(decode, 2 in a row)", "(schema, 3 in a row)", "probability 0.73"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	for i, req := range srv.Requests() {
		if req.Header.Get("X-Request-Id") == "" {
			t.Errorf("request %d has no X-Request-Id", i)
		}
	}
}

func TestRun_RecoversPanics(t *testing.T) {
	t.Parallel()
	log, buf := newLogger()
	w := New(panicGenerator{}, &scriptedPredictor{}, log, Options{Iterations: 2})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := strings.Count(buf.String(), "shape exploded"); got != 2 {
		t.Errorf("panic logged %d times, want 2:\n%s", got, buf.String())
	}
	if w.Ready() {
		t.Error("Ready() = true after only failures")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()
	pred := &scriptedPredictor{probability: 0.5}
	w := New(tensor.NewGenerator(nil), pred, logging.Discard(), Options{
		InputLength: 2,
		Interval:    time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	pred.mu.Lock()
	defer pred.mu.Unlock()
	if pred.calls != 1 {
		t.Errorf("predictor called %d times during a 1h interval, want 1", pred.calls)
	}
}

func TestRun_NoBackoffRetriesImmediately(t *testing.T) {
	t.Parallel()
	fail := errors.New("down")
	pred := &scriptedPredictor{errs: []error{fail, fail, fail, fail, fail}, probability: 0.1}
	w := New(tensor.NewGenerator(nil), pred, logging.Discard(), Options{
		InputLength: 2,
		Interval:    time.Hour, // only paid after a success, which is the last iteration
		Iterations:  6,
	})

	start := time.Now()
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run took %s, want failures retried without pausing", elapsed)
	}
	if pred.calls != 6 {
		t.Errorf("predictor called %d times, want 6", pred.calls)
	}
}

func TestRunOnce(t *testing.T) {
	t.Parallel()
	log, buf := newLogger()
	w := New(tensor.NewGenerator(nil), &scriptedPredictor{probability: 0.42}, log, Options{InputLength: 3})

	res, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if res.Probability != 0.42 {
		t.Errorf("Probability = %v, want 0.42", res.Probability)
	}
	if res.Input.Shape() != [3]int{1, 3, 1} {
		t.Errorf("Input shape = %v, want [1 3 1]", res.Input.Shape())
	}
	if res.ID == "" {
		t.Error("ID is empty")
	}
	if !strings.Contains(buf.String(), "INFO") {
		t.Errorf("outcome not logged at INFO:\n%s", buf.String())
	}
}
