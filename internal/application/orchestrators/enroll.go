package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"courseplayer/internal/domain/course"
)

// CourseStoreForEnroll defines the course lookup needed by Enroll.
type CourseStoreForEnroll interface {
	GetCourse(ctx context.Context, id int64) (course.Course, error)
}

// EnrollmentWriter records enrollments.
type EnrollmentWriter interface {
	Enroll(ctx context.Context, userID string, courseID int64, at time.Time) error
}

// EnrollInput carries input for the enroll orchestrator.
type EnrollInput struct {
	UserID   string
	CourseID int64
	Now      time.Time
}

// EnrollDeps holds dependencies for Enroll.
type EnrollDeps struct {
	Courses     CourseStoreForEnroll
	Enrollments EnrollmentWriter
}

var (
	ErrLoginRequired   = errors.New("log in to enroll")
	ErrPaymentRequired = errors.New("this course must be purchased")
)

// ExecuteEnroll enrolls a logged-in user in a free course.
// Paid courses go through checkout, which is outside this service.
// PRE: none
// POST: enrollment exists for (UserID, CourseID) on success
func ExecuteEnroll(ctx context.Context, input EnrollInput, deps EnrollDeps) error {
	if input.UserID == "" {
		return ErrLoginRequired
	}
	c, err := deps.Courses.GetCourse(ctx, input.CourseID)
	if err != nil {
		return err
	}
	if !c.Price.IsFree() {
		return ErrPaymentRequired
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	if err := deps.Enrollments.Enroll(ctx, input.UserID, input.CourseID, now); err != nil {
		return err
	}
	slog.Info("enrollment_event", "event", "enrolled", "user_id", input.UserID, "course_id", input.CourseID)
	return nil
}
