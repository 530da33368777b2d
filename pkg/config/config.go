package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Twitter scraper
type Config struct {
	// Twitter account credentials
	Twitter TwitterConfig `yaml:"twitter" json:"twitter"`

	// Request queue pacing and circuit breaker configuration
	Queue QueueConfig `yaml:"queue" json:"queue"`

	// Session lifecycle configuration
	Session SessionConfig `yaml:"session" json:"session"`

	// Batch orchestration settings
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Target accounts to collect from
	Targets TargetsConfig `yaml:"targets" json:"targets"`

	// Tweet storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TwitterConfig holds the scraping account credentials and client settings
type TwitterConfig struct {
	Username        string `yaml:"username" json:"username"`
	Password        string `yaml:"password" json:"password"`
	Email           string `yaml:"email" json:"email"`
	TwoFactorSecret string `yaml:"two_factor_secret" json:"two_factor_secret"`
	RetryLimit      int    `yaml:"retry_limit" json:"retry_limit"`
	BaseURL         string `yaml:"base_url" json:"base_url"`
	UserAgent       string `yaml:"user_agent" json:"user_agent"`
}

// QueueConfig holds request queue pacing configuration
type QueueConfig struct {
	MinInterval  time.Duration `yaml:"min_interval" json:"min_interval"`
	MaxJitter    time.Duration `yaml:"max_jitter" json:"max_jitter"`
	BackoffBase  time.Duration `yaml:"backoff_base" json:"backoff_base"`
	MaxBackoff   time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Cooldown     time.Duration `yaml:"cooldown" json:"cooldown"`
	FailureRatio float64       `yaml:"failure_ratio" json:"failure_ratio"`
}

// SessionConfig holds session lifecycle configuration
type SessionConfig struct {
	MaxAge             time.Duration `yaml:"max_age" json:"max_age"`
	ValidationAttempts int           `yaml:"validation_attempts" json:"validation_attempts"`
	ValidationDelay    time.Duration `yaml:"validation_delay" json:"validation_delay"`
	CookieBatchSize    int           `yaml:"cookie_batch_size" json:"cookie_batch_size"`
	CacheDirectory     string        `yaml:"cache_directory" json:"cache_directory"`
	RootDomain         string        `yaml:"root_domain" json:"root_domain"`
}

// BatchConfig holds batch orchestration configuration
type BatchConfig struct {
	BatchSize     int           `yaml:"batch_size" json:"batch_size"`
	SearchTimeout time.Duration `yaml:"search_timeout" json:"search_timeout"`
	BatchDelay    time.Duration `yaml:"batch_delay" json:"batch_delay"`
	SearchLimit   int           `yaml:"search_limit" json:"search_limit"`
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
}

// TargetsConfig holds the account lists to collect from, grouped by category
type TargetsConfig struct {
	KOLs            []string `yaml:"kols" json:"kols"`
	Projects        []string `yaml:"projects" json:"projects"`
	KOLCategory     string   `yaml:"kol_category" json:"kol_category"`
	ProjectCategory string   `yaml:"project_category" json:"project_category"`
}

// StorageConfig holds tweet persistence configuration
type StorageConfig struct {
	DatabasePath  string        `yaml:"database_path" json:"database_path"`
	ExportPath    string        `yaml:"export_path" json:"export_path"`
	RecencyWindow time.Duration `yaml:"recency_window" json:"recency_window"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			RetryLimit: 3,
			BaseURL:    "https://twitter.com",
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		},
		Queue: QueueConfig{
			MinInterval:  2 * time.Second,
			MaxJitter:    time.Second,
			BackoffBase:  2 * time.Second,
			MaxBackoff:   30 * time.Second,
			Cooldown:     15 * time.Minute,
			FailureRatio: 0.2,
		},
		Session: SessionConfig{
			MaxAge:             4 * time.Hour,
			ValidationAttempts: 3,
			ValidationDelay:    time.Second,
			CookieBatchSize:    10,
			RootDomain:         "twitter.com",
		},
		Batch: BatchConfig{
			BatchSize:     3,
			SearchTimeout: 10 * time.Second,
			BatchDelay:    2 * time.Second,
			SearchLimit:   50,
			MaxRetries:    3,
		},
		Targets: TargetsConfig{
			KOLCategory:     "KOLs",
			ProjectCategory: "Projects",
		},
		Storage: StorageConfig{
			DatabasePath:  "./data/tweets.db",
			ExportPath:    "./data/tweets.json",
			RecencyWindow: 12 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Twitter credentials keep their historical variable names
	if username := os.Getenv("TWITTER_USERNAME"); username != "" {
		c.Twitter.Username = username
	}
	if password := os.Getenv("TWITTER_PASSWORD"); password != "" {
		c.Twitter.Password = password
	}
	if email := os.Getenv("TWITTER_EMAIL"); email != "" {
		c.Twitter.Email = email
	}
	if secret := os.Getenv("TWITTER_2FA_SECRET"); secret != "" {
		c.Twitter.TwoFactorSecret = secret
	}
	if limit := os.Getenv("TWITTER_RETRY_LIMIT"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil && val > 0 {
			c.Twitter.RetryLimit = val
		}
	}

	// Category overrides
	if cat := os.Getenv("TWITTER_PROJECT_CATEGORY"); cat != "" {
		c.Targets.ProjectCategory = cat
	}
	if cat := os.Getenv("TWITTER_PROJECT_CATEGORY_KOL"); cat != "" {
		c.Targets.KOLCategory = cat
	}

	// Application overrides
	if dbPath := os.Getenv("TWSCRAPER_DB_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if cacheDir := os.Getenv("TWSCRAPER_CACHE_DIR"); cacheDir != "" {
		c.Session.CacheDirectory = cacheDir
	}
	if batchSize := os.Getenv("TWSCRAPER_BATCH_SIZE"); batchSize != "" {
		if val, err := strconv.Atoi(batchSize); err == nil && val > 0 {
			c.Batch.BatchSize = val
		}
	}
	if logLevel := os.Getenv("TWSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".twscraper.yaml",
		".twscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "twscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "twscraper", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".twscraper.yaml"),
		filepath.Join(os.Getenv("HOME"), ".twscraper.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Missing account credentials
// are a fatal configuration error: no session or queue work may begin.
func (c *Config) Validate() error {
	var errs []error

	if c.Twitter.Username == "" {
		errs = append(errs, errors.New("twitter username is required"))
	}
	if c.Twitter.Password == "" {
		errs = append(errs, errors.New("twitter password is required"))
	}
	if c.Twitter.Email == "" {
		errs = append(errs, errors.New("twitter email is required"))
	}

	if err := c.ValidateSettings(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateSettings checks everything except credentials. Credentials may
// still arrive from the stored-account manager after loading.
func (c *Config) ValidateSettings() error {
	var errs []error

	if c.Twitter.RetryLimit < 1 || c.Twitter.RetryLimit > 5 {
		errs = append(errs, errors.New("retry limit must be between 1 and 5"))
	}

	if c.Queue.MinInterval <= 0 {
		errs = append(errs, errors.New("queue min interval must be positive"))
	}
	if c.Queue.MaxJitter < 0 {
		errs = append(errs, errors.New("queue max jitter cannot be negative"))
	}
	if c.Queue.FailureRatio <= 0 || c.Queue.FailureRatio > 1 {
		errs = append(errs, errors.New("queue failure ratio must be in (0, 1]"))
	}

	if c.Session.MaxAge <= 0 {
		errs = append(errs, errors.New("session max age must be positive"))
	}
	if c.Session.ValidationAttempts <= 0 {
		errs = append(errs, errors.New("session validation attempts must be positive"))
	}
	if c.Session.CookieBatchSize <= 0 {
		errs = append(errs, errors.New("cookie batch size must be positive"))
	}
	if c.Session.RootDomain == "" {
		errs = append(errs, errors.New("session root domain is required"))
	}

	if c.Batch.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Batch.SearchTimeout <= 0 {
		errs = append(errs, errors.New("search timeout must be positive"))
	}
	if c.Batch.SearchLimit <= 0 {
		errs = append(errs, errors.New("search limit must be positive"))
	}

	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Twitter.Username = username
	}
	if batchSize, ok := flags["batch-size"].(int); ok && batchSize > 0 {
		c.Batch.BatchSize = batchSize
	}
	// The retry limit is a single knob: the run command copies it into the
	// orchestrator's config, so the flag must land on Twitter.RetryLimit or
	// that copy would silently discard it.
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries > 0 {
		c.Twitter.RetryLimit = maxRetries
	}
	if dbPath, ok := flags["database"].(string); ok && dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".twscraper.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate settings; credential presence is checked by the caller
	// once every credential source has been consulted
	if err := config.ValidateSettings(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
