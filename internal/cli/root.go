package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/genie/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:          "genie",
	Short:        "Genie lead email lookup",
	Long:         `Genie resolves leads to work emails in throttled, retried batches and keeps a dead-letter queue for replays.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// setup loads .env and the config file, then installs the logger.
func setup() (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		return nil, err
	}

	installLogger(cfg.Logging, isDebug)
	return cfg, nil
}

// installLogger sets the default logger: tint for text, slog's JSON handler for json.
func installLogger(cfg config.LoggingConfig, debug bool) {
	level := logLevel(cfg.Level, debug)
	if cfg.Format == config.LogFormatJSON {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return
	}
	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

func logLevel(name string, debug bool) slog.Level {
	switch {
	case debug || name == "debug":
		return slog.LevelDebug
	case name == "warn":
		return slog.LevelWarn
	case name == "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
