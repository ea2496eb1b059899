package progress

import (
	"context"
	"time"
)

// Store tracks which materials a user has completed.
type Store interface {
	MarkComplete(ctx context.Context, userID string, courseID, materialID int64, at time.Time) error
	Completed(ctx context.Context, userID string, courseID int64) (map[int64]bool, error)
}
