package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/genie/internal/control"
)

var replayLimit int

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay failed lookups from the dead-letter queue",
	Args:  cobra.NoArgs,
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().IntVar(&replayLimit, "limit", 100, "maximum number of leads to replay")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
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
	defer app.Close()

	summary, err := app.Replay(ctx, replayLimit)
	if summary != nil {
		printSummary(os.Stdout, summary)
	}
	if err != nil {
		slog.Error("Replay failed", "error", err)
		return err
	}
	return nil
}
