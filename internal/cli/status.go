package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/genie/internal/control"
	"github.com/vietddude/genie/internal/infra/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status [batch_id]",
	Short: "Show the stored outcome of a lookup batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&showJobs, "jobs", false, "print every job after the summary")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("status needs database.url; the memory store does not outlive a run")
	}

	ctx := context.Background()
	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		return err
	}
	defer app.Close()

	batchID := args[0]
	summary, err := app.Service().Status(ctx, batchID)
	if errors.Is(err, storage.ErrJobNotFound) {
		return fmt.Errorf("batch %s not found", batchID)
	}
	if err != nil {
		slog.Error("Failed to load batch", "error", err)
		return err
	}

	printSummary(os.Stdout, summary)
	if showJobs {
		jobs, err := app.Service().Jobs(ctx, batchID)
		if err != nil {
			return err
		}
		printJobs(os.Stdout, jobs)
	}
	return nil
}
