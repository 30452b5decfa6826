package cli

import (
	"log/slog"
	"testing"

	"github.com/vietddude/genie/internal/core/config"
)

func TestInstallLogger_Format(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	installLogger(config.LoggingConfig{Level: "warn", Format: config.LogFormatJSON}, false)
	if _, ok := slog.Default().Handler().(*slog.JSONHandler); !ok {
		t.Errorf("expected JSON handler, got %T", slog.Default().Handler())
	}
	if slog.Default().Enabled(t.Context(), slog.LevelInfo) {
		t.Error("expected info to be filtered at warn level")
	}

	installLogger(config.LoggingConfig{Level: "info", Format: config.LogFormatText}, false)
	if _, ok := slog.Default().Handler().(*slog.JSONHandler); ok {
		t.Error("expected text handler for text format")
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		want  slog.Level
	}{
		{"info", false, slog.LevelInfo},
		{"warn", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"debug", false, slog.LevelDebug},
		{"error", true, slog.LevelDebug},
		{"", false, slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := logLevel(tt.name, tt.debug); got != tt.want {
			t.Errorf("logLevel(%q, %v) = %v, want %v", tt.name, tt.debug, got, tt.want)
		}
	}
}
