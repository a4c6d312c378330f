package store_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelog-app/server/internal/database"
	"github.com/travelog-app/server/internal/models"
	"github.com/travelog-app/server/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *store.EntryStore {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return store.NewEntryStore(logger, db)
}

func TestInsertAssignsIdentifierAndTimestamp(t *testing.T) {
	entries := newTestStore(t)

	entry := &models.LogEntry{
		Title:     "Paris",
		Latitude:  48.85,
		Longitude: 2.35,
		VisitDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, entries.Insert(context.Background(), entry))

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestInsertThenListRoundTrip(t *testing.T) {
	entries := newTestStore(t)

	entry := &models.LogEntry{
		Title:       "Kyoto",
		Comments:    "cherry blossoms",
		Description: "spring trip",
		Rating:      5,
		Latitude:    35.01,
		Longitude:   135.77,
		VisitDate:   time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC),
		Image:       "/uploads/abc.jpg",
	}
	require.NoError(t, entries.Insert(context.Background(), entry))

	stored, err := entries.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)

	got := stored[0]
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "Kyoto", got.Title)
	assert.Equal(t, "cherry blossoms", got.Comments)
	assert.Equal(t, "spring trip", got.Description)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, 35.01, got.Latitude)
	assert.Equal(t, 135.77, got.Longitude)
	assert.Equal(t, "/uploads/abc.jpg", got.Image)
	assert.True(t, got.VisitDate.Equal(entry.VisitDate))
}

func TestInsertGeneratesUniqueIdentifiers(t *testing.T) {
	entries := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		entry := &models.LogEntry{
			Title:     "stop",
			Latitude:  1,
			Longitude: 1,
			VisitDate: time.Now(),
		}
		require.NoError(t, entries.Insert(context.Background(), entry))
		assert.False(t, seen[entry.ID])
		seen[entry.ID] = true
	}
}

func TestListEmpty(t *testing.T) {
	entries := newTestStore(t)

	stored, err := entries.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}
