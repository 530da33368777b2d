package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"twscraper/internal/tweetstore"
	"twscraper/pkg/ui"
)

var (
	// Export command flags
	exportOutput string
	exportWindow time.Duration
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recently collected tweets as JSON",
	Long: `Export tweets collected within the recency window to a JSON file.

The export contains the stored tweets newest first, suitable for feeding
downstream analysis jobs.`,
	Example: `  # Export the last 12 hours to the configured path
  twscraper export

  # Export the last 24 hours to a specific file
  twscraper export --window 24h --output ./tweets.json`,
	Args: cobra.NoArgs,
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: configured export path)")
	exportCmd.Flags().DurationVar(&exportWindow, "window", 0, "recency window (default: configured window)")
	exportCmd.Flags().StringVar(&dbPath, "database", "", "path to the tweet database")
}

func runExport(cmd *cobra.Command, args []string) {
	cfg := loadRunConfig()

	window := exportWindow
	if window <= 0 {
		window = cfg.Storage.RecencyWindow
	}

	output := exportOutput
	if output == "" {
		output = cfg.Storage.ExportPath
	}

	store, err := tweetstore.Open(cfg.Storage.DatabasePath)
	if err != nil {
		ui.PrintError("Failed to open tweet database", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	tweets, err := store.Recent(cmd.Context(), window)
	if err != nil {
		ui.PrintError("Failed to read tweets", err.Error())
		os.Exit(1)
	}

	export := struct {
		ExportedAt time.Time                `json:"exported_at"`
		Window     string                   `json:"window"`
		Count      int                      `json:"count"`
		Tweets     []tweetstore.StoredTweet `json:"tweets"`
	}{
		ExportedAt: time.Now(),
		Window:     window.String(),
		Count:      len(tweets),
		Tweets:     tweets,
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			ui.PrintError("Failed to create export directory", err.Error())
			os.Exit(1)
		}
	}

	file, err := os.Create(output)
	if err != nil {
		ui.PrintError("Failed to create export file", err.Error())
		os.Exit(1)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&export); err != nil {
		ui.PrintError("Failed to write export", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Exported %d tweets to %s", len(tweets), output))
}
