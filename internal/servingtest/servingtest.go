// Package servingtest provides a fake TensorFlow Serving REST server for tests.
package servingtest

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/infogrid-io/tfworker/internal/config"
)

// Reply writes one response.
type Reply func(w http.ResponseWriter, r *http.Request)

// JSON replies with status and a raw body.
func JSON(status int, body string) Reply {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// Probability replies 200 with {"outputs": [[p]]}.
func Probability(p float64) Reply {
	return JSON(http.StatusOK, `{"outputs": [[`+strconv.FormatFloat(p, 'g', -1, 64)+`]]}`)
}

// Hang blocks until the client goes away or d elapses, then replies 200.
func Hang(d time.Duration) Reply {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(d):
		}
		Probability(0.5)(w, r)
	}
}

// Request is one recorded predict call.
type Request struct {
	Method    string
	Path      string
	Header    http.Header
	Body      []byte
	Signature string
	Inputs    [][][]float64
}

// Server is a fake TF Serving instance for a single model.
type Server struct {
	*httptest.Server

	model string

	mu       sync.Mutex
	queue    []Reply
	fallback Reply
	status   Reply
	requests []Request
}

// New starts a Server for model and closes it when t finishes. Until told
// otherwise it answers every predict call with probability 0.5.
func New(t testing.TB, model string) *Server {
	t.Helper()
	s := &Server{
		model:    model,
		fallback: Probability(0.5),
		status: JSON(http.StatusOK,
			`{"model_version_status":[{"version":"1","state":"AVAILABLE","status":{"error_code":"OK","error_message":""}}]}`),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Enqueue queues replies for the next predict calls, in order.
func (s *Server) Enqueue(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, replies...)
}

// SetDefault sets the reply used once the queue is empty.
func (s *Server) SetDefault(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = r
}

// SetStatus sets the reply for GET /v1/models/{model}.
func (s *Server) SetStatus(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = r
}

// Requests returns the predict calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Config returns a valid configuration pointing at s.
func (s *Server) Config() *config.Config {
	host, port, _ := net.SplitHostPort(s.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return &config.Config{
		ModelName:      s.model,
		Host:           host,
		Port:           p,
		LogLevel:       "DEBUG",
		Timeout:        2 * time.Second,
		Interval:       time.Millisecond,
		InputLength:    2,
		BackoffInitial: time.Millisecond,
		BackoffMax:     4 * time.Millisecond,
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutPrefix(r.URL.Path, "/v1/models/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodGet && name == s.model {
		s.mu.Lock()
		reply := s.status
		s.mu.Unlock()
		reply(w, r)
		return
	}

	if r.Method != http.MethodPost || name != s.model+":predict" {
		JSON(http.StatusNotFound, `{"error": "Servable not found for request"}`)(w, r)
		return
	}

	body, _ := io.ReadAll(r.Body)
	rec := Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body}
	var decoded struct {
		SignatureName string        `json:"signature_name"`
		Inputs        [][][]float64 `json:"inputs"`
	}
	if json.Unmarshal(body, &decoded) == nil {
		rec.Signature = decoded.SignatureName
		rec.Inputs = decoded.Inputs
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	reply := s.fallback
	if len(s.queue) > 0 {
		reply = s.queue[0]
		s.queue = s.queue[1:]
	}
	s.mu.Unlock()

	reply(w, r)
}
