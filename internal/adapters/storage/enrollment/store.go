package enrollment

import (
	"context"
	"time"
)

// Store records how users gained access to courses: full enrollments,
// single-item grants and time-boxed subscriptions.
type Store interface {
	Enroll(ctx context.Context, userID string, courseID int64, at time.Time) error
	EnrolledAt(ctx context.Context, userID string, courseID int64) (time.Time, bool, error)
	GrantItem(ctx context.Context, userID string, courseID, itemID int64, at time.Time) error
	HasItemGrant(ctx context.Context, userID string, courseID, itemID int64) (bool, error)
	Subscribe(ctx context.Context, userID string, expiresAt time.Time) error
	SubscriptionActive(ctx context.Context, userID string, now time.Time) (bool, error)
}
