package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"courseplayer/internal/domain/access"
	"courseplayer/internal/domain/curriculum"
)

// CurriculumReader returns a course curriculum.
type CurriculumReader interface {
	GetCurriculum(ctx context.Context, courseID int64) (curriculum.Curriculum, error)
}

// ProgressWriter records completed materials.
type ProgressWriter interface {
	MarkComplete(ctx context.Context, userID string, courseID, materialID int64, at time.Time) error
}

// EnrollmentDates returns when a user enrolled, or the zero time.
type EnrollmentDates interface {
	EnrolledAt(ctx context.Context, userID string, courseID int64) (time.Time, error)
}

// CompleteLessonInput carries input for the complete-lesson orchestrator.
type CompleteLessonInput struct {
	UserID   string
	CourseID int64
	LessonID int64
	Now      time.Time
}

// CompleteLessonDeps holds dependencies for CompleteLesson.
type CompleteLessonDeps struct {
	Curricula CurriculumReader
	Checker   access.EnrollmentChecker
	Dates     EnrollmentDates
	Progress  ProgressWriter
}

var (
	ErrNotInCourse  = errors.New("lesson is not part of this course")
	ErrNoAccess     = errors.New("you do not have access to this lesson")
	ErrLessonLocked = errors.New("this lesson is not available yet")
)

// ExecuteCompleteLesson marks a lesson complete for an enrolled user.
// PRE: none
// POST: progress row exists on success; nothing written on error
// INVARIANT: only users with access can record progress, and never on a locked lesson
func ExecuteCompleteLesson(ctx context.Context, input CompleteLessonInput, deps CompleteLessonDeps) error {
	if input.UserID == "" {
		return ErrLoginRequired
	}
	cur, err := deps.Curricula.GetCurriculum(ctx, input.CourseID)
	if err != nil {
		return err
	}
	entry, ok := cur.Find(input.LessonID)
	if !ok {
		return ErrNotInCourse
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	var enrolledAt time.Time
	if entry.DripDelay > 0 {
		enrolledAt, err = deps.Dates.EnrolledAt(ctx, input.UserID, input.CourseID)
		if err != nil {
			return err
		}
	}
	beforeStart, drip, msg := entry.LockState(now, enrolledAt)
	d := access.Resolve(ctx, deps.Checker, input.UserID, input.CourseID, access.Item{
		ID:              entry.PostID,
		ContentType:     entry.ContentType,
		LockBeforeStart: beforeStart,
		LockedByDrip:    drip,
		LockMessage:     msg,
	})
	if !d.HasAccess {
		return ErrNoAccess
	}
	if d.IsLocked {
		return ErrLessonLocked
	}

	if err := deps.Progress.MarkComplete(ctx, input.UserID, input.CourseID, entry.PostID, now); err != nil {
		return err
	}
	slog.Info("progress_event", "event", "lesson_completed", "user_id", input.UserID, "course_id", input.CourseID, "lesson_id", entry.PostID)
	return nil
}
