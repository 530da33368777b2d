package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"twscraper/pkg/config"
	"twscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage twscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'twscraper.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources.

Sensitive values like credentials will be masked for security.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate a configuration file for syntax errors and invalid values.`,
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "twscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# twscraper configuration file
#
# Credentials can also come from environment variables
# (TWITTER_USERNAME, TWITTER_PASSWORD, TWITTER_EMAIL,
# TWITTER_2FA_SECRET) or from 'twscraper auth login'.

# Twitter account used to issue searches
twitter:
  username: ""
  password: ""
  email: ""
  two_factor_secret: ""

  # Retry attempts per search (1-5)
  retry_limit: 3

# Request pacing (durations are in nanoseconds when set here;
# prefer the defaults)
queue: {}

# Session lifecycle
session:
  # Directory for persisted session cookies
  # Default: platform cache directory
  cache_directory: ""

# Batch orchestration
batch:
  # Accounts searched concurrently per batch
  batch_size: 3

  # Tweets requested per search
  search_limit: 50

# Target accounts to collect
targets:
  kols:
    - "some_kol_handle"
  projects:
    - "some_project_handle"
  kol_category: "KOLs"
  project_category: "Projects"

# Tweet persistence
storage:
  database_path: "./data/tweets.db"
  export_path: "./data/tweets.json"

# Logging
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional, stdout when empty)
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file and add your target accounts")
	fmt.Println("2. Store credentials with 'twscraper auth login'")
	fmt.Println("3. Run 'twscraper config validate' to check the configuration")
	fmt.Println("4. Start collecting with 'twscraper run'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Mask sensitive values for display
	displayCfg := *cfg
	displayCfg.Twitter.Password = maskValue(displayCfg.Twitter.Password)
	displayCfg.Twitter.TwoFactorSecret = maskValue(displayCfg.Twitter.TwoFactorSecret)

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	var warnings []string
	if cfg.Twitter.Username == "" || cfg.Twitter.Password == "" || cfg.Twitter.Email == "" {
		warnings = append(warnings, "Twitter credentials not configured; 'twscraper run' will need a stored account")
	}
	if len(cfg.Targets.KOLs) == 0 && len(cfg.Targets.Projects) == 0 {
		warnings = append(warnings, "no target accounts configured")
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:", "")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Targets: %d KOLs, %d projects\n", len(cfg.Targets.KOLs), len(cfg.Targets.Projects))
	fmt.Printf("  Batch size: %d\n", cfg.Batch.BatchSize)
	fmt.Printf("  Retry limit: %d\n", cfg.Twitter.RetryLimit)
	fmt.Printf("  Database: %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

// maskValue masks a sensitive configuration value for display
func maskValue(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > 8 {
		return s[:4] + "..." + s[len(s)-4:]
	}
	return "***"
}
