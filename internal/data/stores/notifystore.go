package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/hay-kot/marktimer/internal/core/notify"
	"github.com/hay-kot/marktimer/internal/data/db"
)

// NotifyStore keeps a history of notifications in SQLite.
type NotifyStore struct {
	db *db.DB
}

// NewNotifyStore creates a new SQLite-backed notification store.
func NewNotifyStore(db *db.DB) *NotifyStore {
	return &NotifyStore{db: db}
}

// Save persists a notification and returns its auto-generated ID.
func (s *NotifyStore) Save(ctx context.Context, n notify.Notification) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx,
		"INSERT INTO notifications (level, timer_id, message, created_at) VALUES (?, ?, ?, ?)",
		string(n.Level), n.TimerID, n.Message, n.CreatedAt.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return res.LastInsertId()
}

// Sink returns a notify.Sink that saves each notification, logging
// failures to onErr.
func (s *NotifyStore) Sink(ctx context.Context, onErr func(error)) notify.Sink {
	return func(n notify.Notification) {
		if _, err := s.Save(ctx, n); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// List returns at most limit notifications ordered by newest first. A
// non-positive limit returns everything.
func (s *NotifyStore) List(ctx context.Context, limit int) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		"SELECT id, level, timer_id, message, created_at FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []notify.Notification
	for rows.Next() {
		var (
			n       notify.Notification
			level   string
			created int64
		)
		if err := rows.Scan(&n.ID, &level, &n.TimerID, &n.Message, &created); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Level = notify.Level(level)
		n.CreatedAt = time.Unix(0, created)
		result = append(result, n)
	}
	return result, rows.Err()
}

// Clear deletes all notifications.
func (s *NotifyStore) Clear(ctx context.Context) error {
	if _, err := s.db.Conn().ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// Count returns the total number of notifications.
func (s *NotifyStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications").Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}
