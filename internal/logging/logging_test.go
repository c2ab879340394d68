package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %q, expected %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		ok       bool
	}{
		{"debug", LevelDebug, true},
		{"DEBUG", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"WARN", LevelWarn, true},
		{"error", LevelError, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = (%v, %v), expected (%v, %v)", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf, Prefix: "test"})

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	output := buf.String()
	if strings.Contains(output, "[DEBUG]") || strings.Contains(output, "[INFO]") {
		t.Errorf("expected debug and info to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "[WARN]") || !strings.Contains(output, "[ERROR]") {
		t.Errorf("expected warn and error in output, got: %s", output)
	}
	if !strings.Contains(output, "test: warn") {
		t.Errorf("expected prefix in output, got: %s", output)
	}
}

func TestLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	logger.Info("formatted %s %d", "test", 42)

	if !strings.Contains(buf.String(), "formatted test 42") {
		t.Errorf("expected formatted message, got: %s", buf.String())
	}
}

func TestLogger_FieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	logger.WithFields(map[string]any{"zeta": 1, "alpha": "a"}).WithComponent("bus").Info("msg")

	output := buf.String()
	if !strings.Contains(output, "{alpha=a, component=bus, zeta=1}") {
		t.Errorf("expected sorted fields, got: %s", output)
	}
}

func TestLogger_DerivedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})
	child := logger.WithComponent("pipeline")

	logger.SetLevel(LevelError)
	child.Warn("suppressed")

	if buf.Len() != 0 {
		t.Errorf("expected derived logger to follow parent level, got: %s", buf.String())
	}
}

func TestLogger_WithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})
	_ = logger.WithField("plugin", "notes")

	logger.Info("plain")
	if strings.Contains(buf.String(), "plugin=notes") {
		t.Errorf("parent logger should not carry child fields: %s", buf.String())
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("nothing %d", 1)
	logger.WithField("a", 1).Warn("still nothing")

	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	real := New(Config{Output: &bytes.Buffer{}})
	if OrNop(real) != real {
		t.Error("OrNop should return the given logger")
	}
}

func TestLogger_DisableEnable(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf})

	logger.Disable()
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output while disabled, got: %s", buf.String())
	}

	logger.Enable()
	logger.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected output after enable, got: %s", buf.String())
	}
}
