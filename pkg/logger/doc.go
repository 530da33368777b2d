// Package logger provides structured logging for the Twitter scraper.
//
// The package wraps zerolog behind a Logger interface so components can be
// tested with the in-memory TestLogger. A global logger is initialized once
// from the logging configuration; packages obtain it with GetLogger or accept
// a Logger explicitly for testability.
//
// Usage:
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger()
//
//	log.InfoWithFields("search completed", map[string]interface{}{
//	    "account":     "SuiNetwork",
//	    "tweet_count": 42,
//	})
//
// Helpers such as LogSearch, LogCooldown and LogSessionEvent standardize the
// field names used for recurring events.
package logger
