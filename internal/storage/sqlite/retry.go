package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// retryWithBackoff retries operation on SQLITE_BUSY/"database is locked"
// errors with exponential backoff; any other error returns immediately.
func retryWithBackoff(ctx context.Context, logger arbor.ILogger, operation func() error) error {
	const maxAttempts = 5
	delay := 20 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		msg := lastErr.Error()
		if !strings.Contains(msg, "database is locked") && !strings.Contains(msg, "SQLITE_BUSY") {
			return lastErr
		}

		if attempt == maxAttempts {
			break
		}

		logger.Warn().Int("attempt", attempt).Str("delay", delay.String()).Err(lastErr).Msg("database locked, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	logger.Error().Err(lastErr).Msg("retry attempts exhausted")
	return lastErr
}
