package ratelimit

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelog-app/server/internal/database"
	"github.com/travelog-app/server/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestAllowSecondWriteInWindowRejected(t *testing.T) {
	db := newTestDB(t)
	limiter := New(newTestLogger(), db, 1, 10*time.Second)

	allowed, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllowIndependentClients(t *testing.T) {
	db := newTestDB(t)
	limiter := New(newTestLogger(), db, 1, 10*time.Second)

	allowed, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(context.Background(), "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllowWindowExpiryResets(t *testing.T) {
	db := newTestDB(t)
	limiter := New(newTestLogger(), db, 1, 10*time.Second)

	now := time.Now()
	limiter.now = func() time.Time { return now }

	allowed, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	limiter.now = func() time.Time { return now.Add(11 * time.Second) }

	allowed, err = limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "a fresh window starts once the old one expired")
}

func TestAllowConcurrentSameClient(t *testing.T) {
	db := newTestDB(t)
	limiter := New(newTestLogger(), db, 1, 10*time.Second)

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := limiter.Allow(context.Background(), "10.0.0.1")
			assert.NoError(t, err)
			results <- allowed
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for allowed := range results {
		if allowed {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted, "exactly one concurrent write may start the window")
}

func TestPurgeExpiredCounters(t *testing.T) {
	db := newTestDB(t)
	limiter := New(newTestLogger(), db, 1, 10*time.Second)

	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.RateLimitCounter{
		ClientKey:   "stale",
		Count:       3,
		WindowStart: now.Add(-time.Minute),
		ExpiresAt:   now.Add(-50 * time.Second),
	}).Error)
	require.NoError(t, db.Create(&models.RateLimitCounter{
		ClientKey:   "live",
		Count:       1,
		WindowStart: now,
		ExpiresAt:   now.Add(10 * time.Second),
	}).Error)

	limiter.purgeExpired(context.Background())

	var count int64
	require.NoError(t, db.Model(&models.RateLimitCounter{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var remaining models.RateLimitCounter
	require.NoError(t, db.First(&remaining).Error)
	assert.Equal(t, "live", remaining.ClientKey)
}
