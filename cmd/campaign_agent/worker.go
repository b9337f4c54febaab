package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/campaign-studio/internal/db"
	"github.com/jonathan/campaign-studio/internal/dispatch"
	"github.com/jonathan/campaign-studio/internal/pipeline"
)

var (
	workerCount      int
	workerUseBrowser bool
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the worker pool against the shared job store",
	Long:  `Run the campaign worker pool without the HTTP API. Useful for scaling job execution horizontally behind one API instance: stale jobs abandoned by a crashed worker are reclaimed by any live pool.`,
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerCount, "workers", 0, "Worker pool size (0 = default)")
	workerCmd.Flags().BoolVar(&workerUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(_ *cobra.Command, _ []string) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	providers, closeProviders, err := buildProviders(ctx, apiKey, workerUseBrowser)
	if err != nil {
		return err
	}
	defer closeProviders()

	engine := pipeline.New(database, providers, pipeline.DefaultConfig(), log)

	cfg := dispatch.DefaultConfig()
	if workerCount > 0 {
		cfg.Workers = workerCount
	}
	return dispatch.New(database, engine, cfg, log).Run(ctx)
}
