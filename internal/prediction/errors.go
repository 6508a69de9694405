package prediction

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a failed call.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnection
	KindTimeout
	KindCanceled
	KindServer
	KindDecode
	KindSchema
)

var kindNames = [...]string{
	KindUnknown:    "unknown",
	KindConnection: "connection",
	KindTimeout:    "timeout",
	KindCanceled:   "canceled",
	KindServer:     "server",
	KindDecode:     "decode",
	KindSchema:     "schema",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Sentinels for errors.Is. Every *Error matches exactly one of them.
var (
	ErrConnection = errors.New("connection error")
	ErrTimeout    = errors.New("timeout")
	ErrCanceled   = errors.New("canceled")
	ErrServer     = errors.New("server error")
	ErrDecode     = errors.New("decode error")
	ErrSchema     = errors.New("schema error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConnection:
		return ErrConnection
	case KindTimeout:
		return ErrTimeout
	case KindCanceled:
		return ErrCanceled
	case KindServer:
		return ErrServer
	case KindDecode:
		return ErrDecode
	case KindSchema:
		return ErrSchema
	}
	return nil
}

// Error describes a failed call to the serving endpoint.
type Error struct {
	Kind Kind
	Op   string // "predict" or "model status"
	URL  string

	// StatusCode and Body are set once a response arrived.
	StatusCode int
	Body       string
	// Message is the "error" field of a TF Serving error body, if any.
	Message string

	Err error
}

func (e *Error) Error() string {
	label := "failed"
	if s := e.Kind.sentinel(); s != nil {
		label = s.Error()
	}
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.URL, label)
	if e.StatusCode != 0 && e.Kind == KindServer {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
		switch {
		case e.Message != "":
			msg += ": " + e.Message
		case e.Body != "":
			msg += ": " + e.Body
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// transportKind classifies an error returned before any response arrived.
func transportKind(err error) Kind {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindConnection
}
