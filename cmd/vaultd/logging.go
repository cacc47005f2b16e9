package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"vaultd/internal/config"
)

const logLevelEnvKey = "VAULTD_LOG_LEVEL"

// initLogging installs the default slog logger. The level comes from the
// first non-empty source in order: --log-level flag, VAULTD_LOG_LEVEL,
// config file. An invalid flag value is an error; an invalid env or
// config value falls back to the default level with a warning.
func initLogging(flagLevel, configLevel string) (string, error) {
	level := slog.LevelInfo
	warning := ""

	sources := []struct {
		value  string
		origin string
	}{
		{flagLevel, "flag"},
		{os.Getenv(logLevelEnvKey), "env"},
		{configLevel, "config"},
	}
	for _, src := range sources {
		if strings.TrimSpace(src.value) == "" {
			continue
		}
		parsed, err := parseLogLevel(src.value)
		if err != nil {
			if src.origin == "flag" {
				return "", fmt.Errorf("invalid --log-level %q", src.value)
			}
			warning = fmt.Sprintf("warning: ignoring invalid %s log level %q; using %s",
				src.origin, src.value, config.DefaultLogLevel)
		} else {
			level = parsed
		}
		break
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return warning, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", raw)
}
