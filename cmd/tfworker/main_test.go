package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, &stdout, &stderr)
	if code != 0 {
		t.Errorf("run(nil) exit code = %d, want 0", code)
	}
	if stdout.Len() == 0 {
		t.Error("expected help output on stdout")
	}
}

func TestRootCommand_UnknownCommand(t *testing.T) {
	code, _, stderr := runCLI("nonexistent")
	if code != 1 {
		t.Errorf("run(nonexistent) exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, `unknown command "nonexistent"`) {
		t.Errorf("stderr = %q, want unknown command message", stderr)
	}
}

func TestSubcommandRegistration(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)

	for _, name := range []string{"run", "predict", "check", "config", "version"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not found on root command", name)
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)

	for _, name := range []string{"model", "host", "port", "log-level", "timeout", "color"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag --%s not registered", name)
		}
	}
}

func TestInvalidColorMode(t *testing.T) {
	code, _, stderr := runCLI("version", "--color", "sometimes")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "invalid --color value") {
		t.Errorf("stderr = %q, want color error", stderr)
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI("version")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(stdout, "tfworker dev (commit: unknown") {
		t.Errorf("stdout = %q", stdout)
	}
}
