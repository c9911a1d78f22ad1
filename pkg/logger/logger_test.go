/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"},
	}

	for _, test := range tests {
		if result := test.level.String(); result != test.expected {
			t.Errorf("Level.String() = %v, expected %v", result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace":   TraceLevel,
		"DEBUG":   DebugLevel,
		" warn ":  WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"info":    InfoLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerPrettyFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Component: "twproj"}, &buf)

	l.Log(InfoLevel, "discovered", String("zeta", "z"), Int("alpha", 1))

	out := buf.String()
	if !strings.Contains(out, "[INFO] twproj: discovered") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "{alpha=1, zeta=z}") {
		t.Fatalf("fields not sorted: %q", out)
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, JSON: true}, &buf)

	l.Log(WarnLevel, "fallback", String("config", "/a/app.css"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry.Level != "WARN" || entry.Message != "fallback" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Fields["config"] != "/a/app.css" {
		t.Fatalf("missing field: %+v", entry.Fields)
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WarnLevel}, &buf)

	l.Log(InfoLevel, "hidden")
	l.Log(DebugLevel, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestDefaultLoggerSetLevel(t *testing.T) {
	if err := Initialize(Config{Level: ErrorLevel}); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)

	Warn("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected warn to be suppressed, got %q", buf.String())
	}

	SetLevel(WarnLevel)
	Warn("visible", Err(nil))
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected warn after SetLevel, got %q", buf.String())
	}
}
