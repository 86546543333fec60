package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, LevelInfo, true).WithComponent("gateway")

	l.Info("security_deny", map[string]interface{}{"tool": "fs.read"})

	out := buf.String()
	if !strings.Contains(out, "security_deny") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "component=gateway") {
		t.Errorf("expected component attr, got %q", out)
	}
	if !strings.Contains(out, "tool=fs.read") {
		t.Errorf("expected tool attr, got %q", out)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, LevelWarn, true)

	l.Debug("hidden-debug")
	l.Info("hidden-info")
	l.Warn("shown-warn")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown-warn") {
		t.Errorf("expected warn line, got %q", out)
	}
}

func TestLogger_SetLevelSharedWithDerived(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithOutput(&buf, LevelInfo, true)
	child := root.WithComponent("loop").WithTraceID("run-1")

	root.SetLevel(LevelDebug)
	child.Debug("now-visible")

	out := buf.String()
	if !strings.Contains(out, "now-visible") {
		t.Errorf("expected derived logger to follow level change, got %q", out)
	}
	if !strings.Contains(out, "trace_id=run-1") {
		t.Errorf("expected trace id attr, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %s, got %s", in, want, got)
		}
	}
}
