package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/campaign-studio/internal/config"
	"github.com/jonathan/campaign-studio/internal/db"
	"github.com/jonathan/campaign-studio/internal/dispatch"
	"github.com/jonathan/campaign-studio/internal/observability"
	"github.com/jonathan/campaign-studio/internal/pipeline"
	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one campaign job end-to-end from the CLI",
	Long: `Runs the full campaign pipeline synchronously: profile analysis -> trend research -> content generation -> quality assessment -> finalize.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values. Without --db-url the job runs against an in-memory store and nothing is persisted.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath  string
	runURL         string
	runAudience    string
	runGoal        string
	runVoice       string
	runTitle       string
	runTier        string
	runAPIKey      string
	runUseBrowser  bool
	runVerbose     bool
	runDatabaseURL string
	runUserID      string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runURL, "url", "u", "", "Business website URL")
	runCommand.Flags().StringVarP(&runAudience, "audience", "a", "", "Target audience description (optional)")
	runCommand.Flags().StringVarP(&runGoal, "goal", "g", "", "Campaign goal (optional)")
	runCommand.Flags().StringVar(&runVoice, "voice", "", "Brand voice hint (optional)")
	runCommand.Flags().StringVar(&runTitle, "title", "", "Campaign title (optional)")
	runCommand.Flags().StringVarP(&runTier, "tier", "t", "", "Subscription tier: basic, plus, pro, enterprise")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed pipeline artifacts")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for job persistence; in-memory when absent
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	runCommand.Flags().StringVar(&runUserID, "user-id", "", "Owner user ID (required with --db-url)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := loadedCfg.Validate(); err != nil {
			return err
		}

		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("url") {
		cfg.BusinessURL = runURL
	}
	if cmd.Flags().Changed("audience") {
		cfg.TargetAudience = runAudience
	}
	if cmd.Flags().Changed("goal") {
		cfg.CampaignGoal = runGoal
	}
	if cmd.Flags().Changed("voice") {
		cfg.BrandVoice = runVoice
	}
	if cmd.Flags().Changed("title") {
		cfg.Title = runTitle
	}
	if cmd.Flags().Changed("tier") {
		cfg.Tier = runTier
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Config{Tier: string(types.TierBasic)})

	// Step 4: Validate required fields
	if cfg.BusinessURL == "" {
		return fmt.Errorf("--url must be provided (via flag or config)")
	}
	jobTier := types.Tier(cfg.Tier)
	if _, err := tier.Lookup(jobTier); err != nil {
		return err
	}

	// Step 5: API key handling
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	// Step 6: Pick the job store. With a database URL the job is persisted
	// under a real account; otherwise everything stays in memory.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	var (
		jobs   store.JobStore
		userID uuid.UUID
	)
	if cfg.DatabaseURL != "" {
		if runUserID == "" {
			return fmt.Errorf("--user-id is required when using a database")
		}
		uid, err := uuid.Parse(runUserID)
		if err != nil {
			return fmt.Errorf("invalid user-id format: %w", err)
		}
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		jobs = database
		userID = uid
	} else {
		jobs = store.NewMemory()
		userID = uuid.New()
	}

	log := zap.NewNop()
	if cfg.Verbose {
		devLog, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		log = devLog
	}
	defer func() { _ = log.Sync() }()

	providers, closeProviders, err := buildProviders(ctx, cfg.APIKey, cfg.UseBrowser)
	if err != nil {
		return err
	}
	defer closeProviders()

	engine := pipeline.New(jobs, providers, pipeline.DefaultConfig(), log)
	dispatcher := dispatch.New(jobs, engine, dispatch.DefaultConfig(), log)

	input := types.CampaignInput{
		BusinessURL:    cfg.BusinessURL,
		TargetAudience: cfg.TargetAudience,
		CampaignGoal:   cfg.CampaignGoal,
		BrandVoice:     cfg.BrandVoice,
		Title:          cfg.Title,
	}
	job, err := dispatcher.Submit(ctx, userID, input, jobTier)
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}

	// Execute synchronously instead of through the worker pool.
	claimed, err := jobs.ClaimJob(ctx, "cli", time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		return fmt.Errorf("job %s was claimed by another worker", job.ID)
	}
	if err := engine.Run(ctx, claimed); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	final, err := jobs.GetJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load job result: %w", err)
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintProfile(final.Profile)
		printer.PrintResearch(final.Research)
		for _, ct := range tier.MustLookup(jobTier).ContentTypes {
			printer.PrintItem(final.Item(ct))
		}
	}

	switch final.Status {
	case types.JobCompleted:
		printer.PrintPackage(final.Package)
		fmt.Printf("Campaign %s completed\n", final.ID)
		return nil
	case types.JobFailed:
		if final.Error != nil {
			return fmt.Errorf("campaign failed during %s: %s", final.Error.Stage, final.Error.Message)
		}
		return fmt.Errorf("campaign failed")
	default:
		return fmt.Errorf("campaign ended in unexpected status %q", final.Status)
	}
}
