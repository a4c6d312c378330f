package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// allowQuery starts a new window when the existing one has expired,
// otherwise increments the current count, in a single statement. Two
// concurrent requests from the same client can never both observe an
// empty window; the database serializes the upsert. Works on both
// Postgres and SQLite.
const allowQuery = `
INSERT INTO rate_limit_counters (client_key, count, window_start, expires_at)
VALUES (?, 1, ?, ?)
ON CONFLICT (client_key) DO UPDATE SET
	count = CASE WHEN rate_limit_counters.expires_at <= excluded.window_start
		THEN 1 ELSE rate_limit_counters.count + 1 END,
	window_start = CASE WHEN rate_limit_counters.expires_at <= excluded.window_start
		THEN excluded.window_start ELSE rate_limit_counters.window_start END,
	expires_at = CASE WHEN rate_limit_counters.expires_at <= excluded.window_start
		THEN excluded.expires_at ELSE rate_limit_counters.expires_at END
RETURNING count`

// Limiter is a fixed-window write throttle keyed by client identity and
// backed by the durable counter table, so the window survives restarts
// and is shared between replicas pointing at the same database.
type Limiter struct {
	db     *gorm.DB
	max    int
	window time.Duration
	log    *logrus.Entry
	now    func() time.Time
}

func New(logger *logrus.Logger, db *gorm.DB, max int, window time.Duration) *Limiter {
	return &Limiter{
		db:     db,
		max:    max,
		window: window,
		log:    logger.WithField("component", "rate_limiter"),
		now:    time.Now,
	}
}

// Allow records one write attempt for key and reports whether it fits in
// the current window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now().UTC()
	var count int

	err := l.db.WithContext(ctx).
		Raw(allowQuery, key, now, now.Add(l.window)).
		Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("rate limit counter update failed: %w", err)
	}

	if count > l.max {
		l.log.WithFields(logrus.Fields{
			"client_key": key,
			"count":      count,
		}).Info("Write rate limited")
		return false, nil
	}
	return true, nil
}

// StartPurger periodically deletes expired counter rows. Expiry is
// already enforced by the window reset in Allow; the purger only keeps
// the table from accumulating dead rows.
func (l *Limiter) StartPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.log.Info("Starting rate limit purger")

	for {
		select {
		case <-ticker.C:
			l.purgeExpired(ctx)
		case <-ctx.Done():
			l.log.Info("Stopping rate limit purger")
			return
		}
	}
}

func (l *Limiter) purgeExpired(ctx context.Context) {
	result := l.db.WithContext(ctx).
		Exec("DELETE FROM rate_limit_counters WHERE expires_at <= ?", l.now().UTC())
	if result.Error != nil {
		l.log.WithError(result.Error).Error("Rate limit purge failed")
		return
	}
	if result.RowsAffected > 0 {
		l.log.WithField("count", result.RowsAffected).Info("Purged expired rate limit counters")
	}
}
