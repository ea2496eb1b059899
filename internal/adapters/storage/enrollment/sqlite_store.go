package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courseplayer/internal/adapters/storage"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new enrollment store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Enroll records a full course enrollment. Re-enrolling keeps the original date.
// PRE: userID is non-empty, courseID > 0
// POST: EnrolledAt reports the first enrollment time
func (s *SQLiteStore) Enroll(ctx context.Context, userID string, courseID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO enrollment (user_id, course_id, enrolled_at) VALUES (?, ?, ?) ON CONFLICT(user_id, course_id) DO NOTHING",
		userID, courseID, storage.FormatTime(at))
	return err
}

// EnrolledAt returns when userID enrolled in courseID, or ok=false.
func (s *SQLiteStore) EnrolledAt(ctx context.Context, userID string, courseID int64) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT enrolled_at FROM enrollment WHERE user_id = ? AND course_id = ?", userID, courseID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := storage.ParseTime(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("enrollment %s/%d: %w", userID, courseID, err)
	}
	return at, true, nil
}

// GrantItem gives userID access to a single item of a course.
// PRE: userID is non-empty, courseID > 0, itemID > 0
func (s *SQLiteStore) GrantItem(ctx context.Context, userID string, courseID, itemID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO item_grant (user_id, course_id, item_id, granted_at) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING",
		userID, courseID, itemID, storage.FormatTime(at))
	return err
}

// HasItemGrant reports whether userID was granted itemID in courseID.
func (s *SQLiteStore) HasItemGrant(ctx context.Context, userID string, courseID, itemID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM item_grant WHERE user_id = ? AND course_id = ? AND item_id = ?",
		userID, courseID, itemID).Scan(&n)
	return n > 0, err
}

// Subscribe sets or extends the user's all-courses subscription.
func (s *SQLiteStore) Subscribe(ctx context.Context, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO subscription (user_id, expires_at) VALUES (?, ?) ON CONFLICT(user_id) DO UPDATE SET expires_at=excluded.expires_at",
		userID, storage.FormatTime(expiresAt))
	return err
}

// SubscriptionActive reports whether userID has a subscription running at now.
func (s *SQLiteStore) SubscriptionActive(ctx context.Context, userID string, now time.Time) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT expires_at FROM subscription WHERE user_id = ?", userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	expires, err := storage.ParseTime(raw)
	if err != nil {
		return false, fmt.Errorf("subscription %s: %w", userID, err)
	}
	return now.Before(expires), nil
}
