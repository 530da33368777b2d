package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"twscraper/internal/tweetstore"
	"twscraper/pkg/auth"
	"twscraper/pkg/batch"
	"twscraper/pkg/collector"
	"twscraper/pkg/config"
	"twscraper/pkg/logger"
	"twscraper/pkg/queue"
	"twscraper/pkg/session"
	"twscraper/pkg/twitter"
	"twscraper/pkg/ui"
)

var (
	// Run command flags
	accountName string
	batchSize   int
	maxRetries  int
	dbPath      string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one collection pass over the configured targets",
	Long: `Run one collection pass: establish (or restore) a login session,
search each configured target account for recent tweets, and store the
results in the local database.

Credentials are resolved from, in order:
  - A stored account (use 'twscraper auth login' to store one)
  - Environment variables (TWITTER_USERNAME, TWITTER_PASSWORD,
    TWITTER_EMAIL, optionally TWITTER_2FA_SECRET)
  - The configuration file

The pass is best effort: individual account failures are logged and
skipped, and the process exits zero as long as the pass itself ran.`,
	Example: `  # Run with targets from the config file
  twscraper run

  # Use a specific stored account and a larger batch
  twscraper run --account myaccount --batch-size 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runPass(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 0, "accounts searched concurrently per batch")
	runCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "maximum retry attempts per search")
	runCmd.Flags().StringVar(&dbPath, "database", "", "path to the tweet database")
}

func runPass(cmd *cobra.Command, args []string) {
	cfg := loadRunConfig()

	// Initialize logger
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.InfoWithFields("twscraper starting", map[string]interface{}{
		"version": version,
	})

	resolveCredentials(cfg)

	// Missing credentials are a fatal configuration error, before any
	// session or queue work begins.
	if err := cfg.Validate(); err != nil {
		log.ErrorWithFields("configuration invalid", map[string]interface{}{
			"error": err.Error(),
		})
		ui.PrintError("Configuration invalid", err.Error())
		os.Exit(1)
	}

	targets := buildTargets(cfg)
	if len(targets) == 0 {
		ui.PrintWarning("No target accounts configured", "nothing to do")
		return
	}

	store, err := tweetstore.Open(cfg.Storage.DatabasePath)
	if err != nil {
		ui.PrintError("Failed to open tweet database", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := queue.New(ctx, queue.Config{
		MinInterval:  cfg.Queue.MinInterval,
		MaxJitter:    cfg.Queue.MaxJitter,
		BackoffBase:  cfg.Queue.BackoffBase,
		MaxBackoff:   cfg.Queue.MaxBackoff,
		Cooldown:     cfg.Queue.Cooldown,
		FailureRatio: cfg.Queue.FailureRatio,
	}, log)
	defer q.Close()

	factory := func() (twitter.Capability, error) {
		return twitter.NewClient(twitter.ClientOptions{
			BaseURL:   cfg.Twitter.BaseURL,
			UserAgent: cfg.Twitter.UserAgent,
		}, log)
	}

	sessions := session.NewManager(cfg.Session, session.Credentials{
		Username:        cfg.Twitter.Username,
		Password:        cfg.Twitter.Password,
		Email:           cfg.Twitter.Email,
		TwoFactorSecret: cfg.Twitter.TwoFactorSecret,
	}, factory, q, log)
	defer sessions.Close()

	sink := collector.New(store, cfg.Storage.RecencyWindow, log)

	batchCfg := cfg.Batch
	batchCfg.MaxRetries = cfg.Twitter.RetryLimit

	orch := batch.New(batchCfg, cfg.Twitter.Username, sessions, q, sink, log)

	summary, err := orch.Run(ctx, targets)
	if err != nil {
		// A failed pass is not a process failure: scheduled runs must
		// stay resilient to upstream flakiness.
		log.ErrorWithFields("collection pass failed", map[string]interface{}{
			"error": err.Error(),
		})
		ui.PrintError("Collection pass failed", err.Error())
		return
	}

	log.InfoWithFields("collection pass finished", map[string]interface{}{
		"attempted":    summary.Attempted,
		"succeeded":    summary.Succeeded,
		"failed":       summary.Failed,
		"tweets_saved": summary.TweetsSaved,
	})
	ui.PrintSuccess(fmt.Sprintf("Pass complete: %d/%d accounts, %d tweets saved",
		summary.Succeeded, summary.Attempted, summary.TweetsSaved))
}

// loadRunConfig loads configuration with run command flags merged in
func loadRunConfig() *config.Config {
	flags := make(map[string]interface{})
	if batchSize > 0 {
		flags["batch-size"] = batchSize
	}
	if maxRetries > 0 {
		flags["max-retries"] = maxRetries
	}
	if dbPath != "" {
		flags["database"] = dbPath
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	return cfg
}

// resolveCredentials fills the Twitter credential fields from the stored
// account manager when the config and environment did not provide them
func resolveCredentials(cfg *config.Config) {
	credManager, err := auth.NewManager()
	if err != nil {
		return
	}

	var account *auth.Account
	if accountName != "" {
		account, err = credManager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "Use 'twscraper auth list' to see stored accounts")
			os.Exit(1)
		}
	} else if cfg.Twitter.Username == "" || cfg.Twitter.Password == "" {
		account, _ = credManager.RetrieveDefault()
	}

	if account != nil {
		cfg.Twitter.Username = account.Username
		cfg.Twitter.Password = account.Password
		cfg.Twitter.Email = account.Email
		if account.TwoFactorSecret != "" {
			cfg.Twitter.TwoFactorSecret = account.TwoFactorSecret
		}
		logger.WithField("account", account.Username).Info("Using stored credentials")
	}
}

// buildTargets expands the configured target lists into batch targets
func buildTargets(cfg *config.Config) []batch.Target {
	var targets []batch.Target
	for _, account := range cfg.Targets.KOLs {
		targets = append(targets, batch.Target{Account: account, Category: cfg.Targets.KOLCategory})
	}
	for _, account := range cfg.Targets.Projects {
		targets = append(targets, batch.Target{Account: account, Category: cfg.Targets.ProjectCategory})
	}
	return targets
}
