package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/travelog-app/server/internal/apperr"
	"github.com/travelog-app/server/internal/models"
	"gorm.io/gorm"
)

// EntryStore is the persistence gateway for log entries. Writes are
// always fresh inserts with a generated identifier; there is no update
// or delete path.
type EntryStore struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewEntryStore(logger *logrus.Logger, db *gorm.DB) *EntryStore {
	return &EntryStore{
		db:  db,
		log: logger.WithField("component", "entry_store"),
	}
}

// Insert assigns the identifier and creation timestamp and writes the
// entry. The entry is mutated in place so the caller can return the
// stored record verbatim.
func (s *EntryStore) Insert(ctx context.Context, entry *models.LogEntry) error {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.log.WithError(err).Error("Log entry insert failed")
		if isSchemaRejection(err) {
			return apperr.Validation("", "log entry was rejected by the data store")
		}
		return apperr.Persistence(err)
	}

	s.log.WithFields(logrus.Fields{
		"id":    entry.ID,
		"title": entry.Title,
	}).Info("Stored log entry")
	return nil
}

func (s *EntryStore) List(ctx context.Context) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	if err := s.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	return entries, nil
}

// isSchemaRejection distinguishes a row the schema refused (a client
// input defect, surfaced as 422) from an unavailable or failing store.
// gorm does not normalize constraint errors across drivers, so this
// matches the driver message.
func isSchemaRejection(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint") ||
		strings.Contains(msg, "invalid input") ||
		strings.Contains(msg, "value too long")
}
