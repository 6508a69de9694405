// Package report forwards errors swallowed by the worker loop to Sentry.
package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter receives errors the caller recovered from.
type Reporter interface {
	Capture(err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// Nop discards everything.
type Nop struct{}

func (Nop) Capture(error, map[string]string) {}
func (Nop) Flush(time.Duration) bool        { return true }

// Sentry reports to a Sentry project through its own hub.
type Sentry struct {
	hub *sentry.Hub
}

// New returns a Sentry reporter for dsn, or Nop when dsn is empty.
func New(dsn, environment, release string) (Reporter, error) {
	if dsn == "" {
		return Nop{}, nil
	}
	return NewSentry(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
}

// NewSentry builds a reporter from explicit client options.
func NewSentry(opts sentry.ClientOptions) (*Sentry, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("creating sentry client: %w", err)
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Capture sends err with the given tags.
func (s *Sentry) Capture(err error, tags map[string]string) {
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.CaptureException(err)
	})
}

// Flush waits for queued events to be sent.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
