package main

import (
	"bytes"
	"os"
	"strconv"
	"testing"

	"github.com/infogrid-io/tfworker/internal/servingtest"
)

// setEnv replaces the worker environment with kv for the test.
func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range []string{
		"MODEL_NAME", "TENSORFLOW_DNS", "TENSORFLOW_PORT", "LOG_LEVEL",
		"PREDICT_TIMEOUT", "PREDICT_INTERVAL", "INPUT_LENGTH",
		"BACKOFF_INITIAL", "BACKOFF_MAX", "METRICS_ADDR",
		"SENTRY_DSN", "SENTRY_ENVIRONMENT",
	} {
		if v, ok := kv[k]; ok {
			t.Setenv(k, v)
			continue
		}
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

// fastEnv is an environment with millisecond pauses.
func fastEnv() map[string]string {
	return map[string]string{
		"PREDICT_INTERVAL": "1ms",
		"BACKOFF_INITIAL":  "1ms",
		"BACKOFF_MAX":      "4ms",
	}
}

// serverArgs returns the flags pointing a command at srv, uncolored.
func serverArgs(srv *servingtest.Server) []string {
	cfg := srv.Config()
	return []string{
		"--color", "never",
		"--model", cfg.ModelName,
		"--host", cfg.Host,
		"--port", strconv.Itoa(cfg.Port),
	}
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}
