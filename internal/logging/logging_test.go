package logging

import (
	"bytes"
	"strings"
	"testing"

	gologging "gopkg.in/op/go-logging.v1"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Level
	}{
		{"DEBUG", gologging.DEBUG},
		{"info", gologging.INFO},
		{"Notice", gologging.NOTICE},
		{"WARNING", gologging.WARNING},
		{"warn", gologging.WARNING},
		{"ERROR", gologging.ERROR},
		{"CRITICAL", gologging.CRITICAL},
		{"fatal", gologging.CRITICAL},
		{" INFO ", gologging.INFO},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	t.Parallel()
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("ParseLevel(verbose) expected error")
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(&buf, gologging.INFO, "worker")

	log.Debugf("payload %d", 1)
	log.Infof("outcome %d", 2)
	log.Errorf("failure %d", 3)

	out := buf.String()
	if strings.Contains(out, "payload 1") {
		t.Errorf("debug line should be filtered at INFO:\n%s", out)
	}
	if !strings.Contains(out, "outcome 2") {
		t.Errorf("missing info line:\n%s", out)
	}
	if !strings.Contains(out, "failure 3") {
		t.Errorf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "worker:") {
		t.Errorf("missing module name:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("buffer output should not be colored:\n%s", out)
	}
}

func TestNew_Independent(t *testing.T) {
	t.Parallel()
	var quiet, loud bytes.Buffer
	q := New(&quiet, gologging.ERROR, "a")
	l := New(&loud, gologging.DEBUG, "b")

	q.Infof("hidden")
	l.Debugf("shown")

	if quiet.Len() != 0 {
		t.Errorf("ERROR logger wrote an info line: %q", quiet.String())
	}
	if !strings.Contains(loud.String(), "shown") {
		t.Errorf("DEBUG logger dropped a debug line: %q", loud.String())
	}
}
