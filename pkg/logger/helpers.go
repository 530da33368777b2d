package logger

// LogSearch logs the outcome of a per-account search
func LogSearch(account string, count int, success bool, err error) {
	fields := map[string]interface{}{
		"account":     account,
		"tweet_count": count,
		"success":     success,
	}

	logger := GetLogger().WithFields(fields)

	if err != nil {
		logger.WithError(err).Error("Search failed")
	} else if success {
		logger.Info("Search completed")
	} else {
		logger.Warn("Search skipped")
	}
}

// LogCooldown logs a circuit breaker cooldown event
func LogCooldown(failures, successes int, cooldownSeconds int) {
	GetLogger().WithFields(map[string]interface{}{
		"failures":         failures,
		"successes":        successes,
		"cooldown_seconds": cooldownSeconds,
		"action":           "cooldown",
	}).Warn("High failure rate detected, entering cooldown")
}

// LogSessionEvent logs session lifecycle transitions
func LogSessionEvent(identity, event string) {
	GetLogger().WithFields(map[string]interface{}{
		"identity": identity,
		"event":    event,
	}).Info("Session lifecycle event")
}

// LogBatchProgress logs batch orchestration progress
func LogBatchProgress(batch, totalBatches, accounts int) {
	GetLogger().WithFields(map[string]interface{}{
		"batch":         batch,
		"total_batches": totalBatches,
		"accounts":      accounts,
	}).Info("Processing batch")
}
