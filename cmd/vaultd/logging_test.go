package main

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want slog.Level
		ok   bool
	}{
		{"", slog.LevelInfo, true},
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{" Error ", slog.LevelError, true},
		{"loud", 0, false},
		{"-4", 0, false},
	}
	for _, tc := range cases {
		got, err := parseLogLevel(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: expected %v, got %v err %v", tc.raw, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.raw)
		}
	}
}

func TestInitLoggingPrecedence(t *testing.T) {
	t.Setenv(logLevelEnvKey, "")

	// Flag beats config.
	if warning, err := initLogging("debug", "error"); err != nil || warning != "" {
		t.Fatalf("flag level: warning %q err %v", warning, err)
	}

	// Env beats config when the flag is empty.
	t.Setenv(logLevelEnvKey, "warn")
	if warning, err := initLogging("", "error"); err != nil || warning != "" {
		t.Fatalf("env level: warning %q err %v", warning, err)
	}

	// Config applies when flag and env are empty.
	t.Setenv(logLevelEnvKey, "")
	if warning, err := initLogging("", "error"); err != nil || warning != "" {
		t.Fatalf("config level: warning %q err %v", warning, err)
	}
}

func TestInitLoggingInvalidValues(t *testing.T) {
	t.Setenv(logLevelEnvKey, "")

	if _, err := initLogging("loud", ""); err == nil {
		t.Fatal("invalid flag level must be an error")
	}

	t.Setenv(logLevelEnvKey, "loud")
	warning, err := initLogging("", "")
	if err != nil {
		t.Fatalf("invalid env level must not be an error: %v", err)
	}
	if !strings.Contains(warning, "env") {
		t.Fatalf("expected a warning naming the env source, got %q", warning)
	}

	t.Setenv(logLevelEnvKey, "")
	warning, err = initLogging("", "loud")
	if err != nil {
		t.Fatalf("invalid config level must not be an error: %v", err)
	}
	if !strings.Contains(warning, "config") {
		t.Fatalf("expected a warning naming the config source, got %q", warning)
	}
}
