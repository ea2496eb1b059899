package access

import (
	"context"
	"errors"
	"log/slog"

	"courseplayer/internal/domain/curriculum"
)

// State classifies what the viewer may see for the current item.
type State string

// Access states. Recomputed on every request; there are no transitions.
const (
	StateRestricted State = "restricted"
	StateLocked     State = "locked"
	StatePreview    State = "preview"
	StateFull       State = "full"
)

// Block selects the content branch the player renders.
type Block string

// Content blocks.
const (
	BlockRestricted  Block = "restricted"
	BlockLocked      Block = "locked"
	BlockLesson      Block = "lesson"
	BlockQuiz        Block = "quiz"
	BlockPlaceholder Block = "placeholder"
)

// ErrMissingCollaboratorData marks a host lookup that returned nothing usable.
var ErrMissingCollaboratorData = errors.New("host collaborator returned no data")

// EnrollmentChecker is the host enrollment capability.
// The host adapter decides which underlying API backs each method.
type EnrollmentChecker interface {
	// HasItemAccess is the primary check for a specific course item.
	HasItemAccess(ctx context.Context, courseID, itemID int64, userID string) (bool, error)
	// HasCourseAccess is the alternate course-wide check.
	HasCourseAccess(ctx context.Context, courseID int64, userID string) (bool, error)
}

// Item carries the per-item flags the host computed for this request.
type Item struct {
	ID              int64
	ContentType     string
	HasPreview      bool
	LockBeforeStart bool
	LockedByDrip    bool
	LockMessage     string
}

// Decision is the immutable outcome of Resolve.
type Decision struct {
	IsEnrolled bool
	HasAccess  bool
	HasPreview bool
	IsLocked   bool
	LockReason string
	State      State
}

// ShowsContent returns true when lesson content may be rendered.
// INVARIANT: d is not mutated
func (d Decision) ShowsContent() bool {
	return d.State == StatePreview || d.State == StateFull
}

// Block picks the content branch for the item.
// PRE: d was produced by Resolve for item
// POST: returns restricted/locked when gated, placeholder when the item is missing
func (d Decision) Block(item Item) Block {
	switch d.State {
	case StateRestricted:
		return BlockRestricted
	case StateLocked:
		return BlockLocked
	}
	if item.ID == 0 {
		return BlockPlaceholder
	}
	if item.ContentType == curriculum.TypeQuiz {
		return BlockQuiz
	}
	return BlockLesson
}

// Resolve computes the access decision for userID on item within courseID.
// Guest trial access is never granted: only enrolled users have access.
// Checker errors count as "no access" and are logged.
// PRE: checker is non-nil
// POST: returns a fully populated Decision
func Resolve(ctx context.Context, checker EnrollmentChecker, userID string, courseID int64, item Item) Decision {
	enrolled := false
	if userID != "" {
		enrolled = checkPrimary(ctx, checker, courseID, item.ID, userID)
		if !enrolled {
			enrolled = checkAlternate(ctx, checker, courseID, userID)
		}
	}

	d := Decision{
		IsEnrolled: enrolled,
		HasAccess:  enrolled,
		HasPreview: item.HasPreview,
	}

	if !d.HasAccess && !d.HasPreview {
		d.State = StateRestricted
		return d
	}

	if item.LockBeforeStart || item.LockedByDrip {
		d.IsLocked = true
		d.LockReason = item.LockMessage
		if d.LockReason == "" {
			d.LockReason = curriculum.DefaultLockMessage
		}
		d.State = StateLocked
		return d
	}

	if d.HasAccess {
		d.State = StateFull
	} else {
		d.State = StatePreview
	}
	return d
}

func checkPrimary(ctx context.Context, checker EnrollmentChecker, courseID, itemID int64, userID string) bool {
	ok, err := checker.HasItemAccess(ctx, courseID, itemID, userID)
	if err != nil {
		slog.Warn("enrollment_check_failed", "check", "item", "course_id", courseID, "item_id", itemID, "error", err.Error())
		return false
	}
	return ok
}

func checkAlternate(ctx context.Context, checker EnrollmentChecker, courseID int64, userID string) bool {
	ok, err := checker.HasCourseAccess(ctx, courseID, userID)
	if err != nil {
		slog.Warn("enrollment_check_failed", "check", "course", "course_id", courseID, "error", err.Error())
		return false
	}
	return ok
}
