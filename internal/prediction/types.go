// Package prediction calls the TensorFlow Serving REST API.
package prediction

import (
	"errors"
	"fmt"

	"github.com/infogrid-io/tfworker/internal/tensor"
)

// Request is the body of a predict call in the row-independent "inputs" format.
type Request struct {
	SignatureName string        `json:"signature_name"`
	Inputs        tensor.Tensor `json:"inputs"`
}

// Response is the decoded body of a successful predict call. Only the first
// value of the first output row is used.
type Response struct {
	Outputs [][]float64 `json:"outputs"`
}

var (
	errNoOutputs  = errors.New(`response has no "outputs" field`)
	errEmptyBatch = errors.New(`"outputs" is empty`)
)

// Probability returns outputs[0][0].
func (r *Response) Probability() (float64, error) {
	switch {
	case r.Outputs == nil:
		return 0, errNoOutputs
	case len(r.Outputs) == 0:
		return 0, errEmptyBatch
	case len(r.Outputs[0]) == 0:
		return 0, fmt.Errorf(`"outputs[0]" is empty`)
	}
	return r.Outputs[0][0], nil
}

// ModelStatus is the body of GET /v1/models/{model}.
type ModelStatus struct {
	Versions []VersionStatus `json:"model_version_status"`
}

// VersionStatus reports the state of one loaded model version.
type VersionStatus struct {
	Version string `json:"version"`
	State   string `json:"state"` // START, LOADING, AVAILABLE, UNLOADING, END
	Status  struct {
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

// Available reports whether any version is serving.
func (s *ModelStatus) Available() bool {
	for _, v := range s.Versions {
		if v.State == "AVAILABLE" {
			return true
		}
	}
	return false
}

// errorBody is the JSON body TF Serving returns on failure.
type errorBody struct {
	Error string `json:"error"`
}
