package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/resty.v1"

	"github.com/infogrid-io/tfworker/internal/config"
	"github.com/infogrid-io/tfworker/internal/logging"
	"github.com/infogrid-io/tfworker/internal/tensor"
)

// maxBodyExcerpt bounds how much of an error body is kept on *Error.
const maxBodyExcerpt = 512

// Client talks to one model on one TensorFlow Serving instance. It holds no
// per-call state and performs no retries.
type Client struct {
	http       *resty.Client
	log        *logging.Logger
	predictURL string
	modelURL   string
}

// New returns a Client for the model and endpoint in cfg.
func New(cfg *config.Config, log *logging.Logger) *Client {
	http := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:       http,
		log:        log,
		predictURL: cfg.PredictURL(),
		modelURL:   cfg.ModelURL(),
	}
}

type requestIDKey struct{}

// WithRequestID attaches an id sent as X-Request-Id on calls made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		req.SetHeader("X-Request-Id", id)
	}
	return req
}

// Predict sends t to the predict endpoint and returns outputs[0][0].
//
// Failures are *Error values matching one of ErrConnection, ErrTimeout,
// ErrCanceled, ErrServer, ErrDecode or ErrSchema, wrapped with a stack trace.
func (c *Client) Predict(ctx context.Context, t tensor.Tensor) (float64, error) {
	const op = "predict"

	body, err := json.Marshal(Request{SignatureName: config.SignatureName, Inputs: t})
	if err != nil {
		return 0, pkgerrors.Wrap(err, "marshaling predict request")
	}
	c.log.Debugf("POST %s payload=%s", c.predictURL, body)

	start := time.Now()
	resp, err := c.request(ctx).SetBody(body).Post(c.predictURL)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Debugf("POST %s failed after %s: %v", c.predictURL, elapsed, err)
		return 0, c.fail(op, c.predictURL, transportKind(err), nil, err)
	}
	c.log.Debugf("POST %s status=%d elapsed=%s", c.predictURL, resp.StatusCode(), elapsed)

	if !resp.IsSuccess() {
		return 0, c.fail(op, c.predictURL, KindServer, resp, nil)
	}

	if !json.Valid(resp.Body()) {
		return 0, c.fail(op, c.predictURL, KindDecode, resp, fmt.Errorf("response is not valid JSON"))
	}
	var out Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return 0, c.fail(op, c.predictURL, KindSchema, resp, err)
	}
	p, err := out.Probability()
	if err != nil {
		return 0, c.fail(op, c.predictURL, KindSchema, resp, err)
	}
	return p, nil
}

// ModelStatus fetches the version states of the configured model.
func (c *Client) ModelStatus(ctx context.Context) (*ModelStatus, error) {
	const op = "model status"

	resp, err := c.request(ctx).Get(c.modelURL)
	if err != nil {
		return nil, c.fail(op, c.modelURL, transportKind(err), nil, err)
	}
	c.log.Debugf("GET %s status=%d", c.modelURL, resp.StatusCode())

	if !resp.IsSuccess() {
		return nil, c.fail(op, c.modelURL, KindServer, resp, nil)
	}
	if !json.Valid(resp.Body()) {
		return nil, c.fail(op, c.modelURL, KindDecode, resp, fmt.Errorf("response is not valid JSON"))
	}
	var status ModelStatus
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		return nil, c.fail(op, c.modelURL, KindSchema, resp, err)
	}
	return &status, nil
}

func (c *Client) fail(op, url string, kind Kind, resp *resty.Response, cause error) error {
	e := &Error{Kind: kind, Op: op, URL: url, Err: cause}
	if resp != nil && resp.RawResponse != nil {
		e.StatusCode = resp.StatusCode()
		e.Body = excerpt(resp.Body())
		var eb errorBody
		if json.Unmarshal(resp.Body(), &eb) == nil {
			e.Message = eb.Error
		}
	}
	return pkgerrors.WithStack(e)
}

func excerpt(b []byte) string {
	if len(b) <= maxBodyExcerpt {
		return string(b)
	}
	return string(b[:maxBodyExcerpt]) + "..."
}
