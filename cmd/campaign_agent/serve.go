package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/campaign-studio/internal/content"
	"github.com/jonathan/campaign-studio/internal/db"
	"github.com/jonathan/campaign-studio/internal/dispatch"
	"github.com/jonathan/campaign-studio/internal/llm"
	"github.com/jonathan/campaign-studio/internal/pipeline"
	"github.com/jonathan/campaign-studio/internal/profile"
	"github.com/jonathan/campaign-studio/internal/provider"
	"github.com/jonathan/campaign-studio/internal/quality"
	"github.com/jonathan/campaign-studio/internal/server"
	"github.com/jonathan/campaign-studio/internal/trends"
)

var (
	servePort       int
	serveWorkers    int
	serveUseBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server and worker pool",
	Long:  `Start an HTTP server that accepts campaign jobs and an in-process worker pool that executes them.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "Worker pool size (0 = default)")
	serveCmd.Flags().BoolVar(&serveUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	// Get database URL from environment
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Get API key from environment
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

	providers, closeProviders, err := buildProviders(ctx, apiKey, serveUseBrowser)
	if err != nil {
		return err
	}
	defer closeProviders()

	engine := pipeline.New(database, providers, pipeline.DefaultConfig(), log)

	dispatchCfg := dispatch.DefaultConfig()
	if serveWorkers > 0 {
		dispatchCfg.Workers = serveWorkers
	}
	dispatcher := dispatch.New(database, engine, dispatchCfg, log)

	srv, err := server.New(server.Config{Port: servePort}, server.Deps{
		Store:      database,
		Dispatcher: dispatcher,
		Engine:     engine,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	return g.Wait()
}

// buildProviders assembles the four pipeline providers over a shared Gemini
// client. The returned closer releases the client connection.
func buildProviders(ctx context.Context, apiKey string, useBrowser bool) (provider.Set, func(), error) {
	client, err := llm.NewClient(ctx, llm.DefaultConfig(), apiKey)
	if err != nil {
		return provider.Set{}, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	analyzer := profile.NewAnalyzer(client)
	analyzer.UseBrowser = useBrowser

	set := provider.Set{
		Profile: analyzer,
		Trends:  trends.NewResearcher(client),
		Content: content.NewGenerator(client),
		Quality: quality.NewAssessor(client),
	}
	return set, func() { _ = client.Close() }, nil
}
