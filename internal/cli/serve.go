package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/genie/internal/control"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the health and metrics server with periodic dead-letter replay",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		return err
	}

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start app", "error", err)
		return err
	}
	slog.Info("Genie started", "config", cfgPath)

	<-ctx.Done()
	slog.Info("Received signal, shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		return err
	}
	return nil
}
