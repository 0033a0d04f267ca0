package onlinedb

import (
	"context"
	"fmt"
	"time"

	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/log"
)

// ConnectWithRetry connects with exponential backoff, capped at 60 seconds.
// This rides out a PostgreSQL server that is still starting up.
//
// Parameters:
//   - cfg: Database configuration
//   - maxRetries: Maximum number of connection attempts (0 = until ctx is done)
//   - initialDelay: Initial wait time between retries
func ConnectWithRetry(ctx context.Context, cfg config.DatabaseConfig, maxRetries int,
	initialDelay time.Duration, lg *log.Logger) (*DB, error) {
	delay := initialDelay
	attempt := 0

	for {
		attempt++
		lg.Debugf("Database connection attempt %d", attempt)

		db, err := Connect(cfg)
		if err == nil {
			if attempt > 1 {
				lg.Info("Database connected", "attempts", attempt)
			}
			return db, nil
		}

		if maxRetries > 0 && attempt >= maxRetries {
			return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempt, err)
		}

		lg.Warn("Database connection failed", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
	}
}

// HealthCheck reports whether the database answers a trivial query.
func HealthCheck(db *DB) bool {
	if db == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return false
	}
	return result == 1
}
