package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/genie/internal/control"
)

var (
	inputPath string
	showJobs  bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up emails for every lead in an input file",
	Args:  cobra.NoArgs,
	RunE:  runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&inputPath, "input", "leads.yaml", "YAML file with a top-level leads list")
	lookupCmd.Flags().BoolVar(&showJobs, "jobs", false, "print every job after the summary")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return err
	}

	leads, err := loadLeads(inputPath)
	if err != nil {
		slog.Error("Failed to load leads", "error", err)
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

	summary, runErr := app.Service().Run(ctx, leads)
	if summary != nil {
		printSummary(os.Stdout, summary)
		if showJobs {
			listCtx, listCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer listCancel()
			if jobs, err := app.Service().Jobs(listCtx, summary.BatchID); err == nil {
				printJobs(os.Stdout, jobs)
			}
		}
	}
	if runErr != nil {
		slog.Error("Lookup finished with errors", "error", runErr)
		return runErr
	}
	return nil
}
