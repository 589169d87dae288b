package history

import (
	"time"

	"github.com/pkg/errors"
)

// Repository reads and writes journal events
type Repository struct {
	db  *DB
	now func() time.Time
}

// NewRepository creates a repository on db
func NewRepository(db *DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Record inserts an event, stamping it with the current time when unset
func (r *Repository) Record(event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}
	if err := r.db.Create(event).Error; err != nil {
		return errors.Wrap(err, "failed to insert history event")
	}
	return nil
}

// Recent returns up to limit events, newest first. limit <= 0 returns all.
func (r *Repository) Recent(limit int) ([]*Event, error) {
	var events []*Event
	q := r.db.Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query history events")
	}
	return events, nil
}

// ForFile returns every event for fileName in folder, oldest first
func (r *Repository) ForFile(folder, fileName string) ([]*Event, error) {
	var events []*Event
	err := r.db.Where("folder = ? AND file_name = ?", folder, fileName).
		Order("timestamp ASC").Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query file history")
	}
	return events, nil
}

// Clear removes every event and returns how many were removed
func (r *Repository) Clear() (int64, error) {
	result := r.db.Where("1 = 1").Delete(&Event{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to clear history")
	}
	return result.RowsAffected, nil
}
