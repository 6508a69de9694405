package main

import (
	"errors"

	"github.com/infogrid-io/tfworker/internal/config"
	"github.com/infogrid-io/tfworker/internal/prediction"
)

// HintedError wraps an error with a user-facing recovery hint.
type HintedError struct {
	Err  error
	Hint string
}

func (h *HintedError) Error() string { return h.Err.Error() }
func (h *HintedError) Unwrap() error { return h.Err }

// hintWrap attaches a recovery hint matching the kind of failure.
func hintWrap(err error) error {
	if err == nil {
		return nil
	}
	var hint string
	switch {
	case errors.Is(err, config.ErrInvalid):
		hint = "Run 'tfworker config env' to list the settings and their defaults."
	case errors.Is(err, prediction.ErrConnection):
		hint = "Is TensorFlow Serving running? Check TENSORFLOW_DNS and TENSORFLOW_PORT (the REST port, 8501 by default)."
	case errors.Is(err, prediction.ErrTimeout):
		hint = "The server did not answer in time. Raise PREDICT_TIMEOUT or check the server load."
	case errors.Is(err, prediction.ErrServer):
		hint = "Run 'tfworker check' to see whether the model is loaded."
	case errors.Is(err, prediction.ErrDecode), errors.Is(err, prediction.ErrSchema):
		hint = "The server did not return a predict response with \"outputs\"; check the model signature."
	default:
		return err
	}
	return &HintedError{Err: err, Hint: hint}
}
