package progress

import (
	"context"
	"time"

	"courseplayer/internal/adapters/storage"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new progress store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// MarkComplete records completion. Completing twice keeps the first time.
// PRE: userID is non-empty
func (s *SQLiteStore) MarkComplete(ctx context.Context, userID string, courseID, materialID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO material_progress (user_id, course_id, material_id, completed_at) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING",
		userID, courseID, materialID, storage.FormatTime(at))
	return err
}

// Completed returns the set of completed material IDs.
// POST: never returns a nil map on success; guests get an empty set
func (s *SQLiteStore) Completed(ctx context.Context, userID string, courseID int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if userID == "" {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT material_id FROM material_progress WHERE user_id = ? AND course_id = ?", userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
