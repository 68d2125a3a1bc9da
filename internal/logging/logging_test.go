package logging

import (
	"strings"
	"testing"
)

func TestLogfmtOutput(t *testing.T) {
	var buf strings.Builder
	logger := New(&buf, Info)
	logger.Info("agent_start", F("bin", "opencode"), F("cwd", "/tmp/my project"))

	line := buf.String()
	if !strings.Contains(line, "level=info") {
		t.Fatalf("missing level in %q", line)
	}
	if !strings.Contains(line, "msg=agent_start") {
		t.Fatalf("missing msg in %q", line)
	}
	if !strings.Contains(line, "bin=opencode") {
		t.Fatalf("missing plain field in %q", line)
	}
	if !strings.Contains(line, `cwd="/tmp/my project"`) {
		t.Fatalf("value with spaces should be quoted in %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("line not newline terminated: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf strings.Builder
	logger := New(&buf, Warn)
	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", got, buf.String())
	}
	if logger.Enabled(Debug) {
		t.Fatalf("debug should be disabled at warn level")
	}
	if !logger.Enabled(Error) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestWithFields(t *testing.T) {
	var buf strings.Builder
	logger := New(&buf, Info).With(F("workspace", "ws1"))
	logger.Info("tick")

	if !strings.Contains(buf.String(), "workspace=ws1") {
		t.Fatalf("bound field missing from %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		"DEBUG":   Debug,
		"warn":    Warn,
		"warning": Warn,
		"error":   Error,
		"info":    Info,
		"":        Info,
		"bogus":   Info,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
