// Package lms adapts the SQLite host stores to the capability interfaces the
// course player consumes. It decides which underlying record backs each
// check and how host URLs are built.
package lms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"courseplayer/internal/adapters/storage"
	"courseplayer/internal/adapters/storage/curriculum"
	"courseplayer/internal/adapters/storage/enrollment"
	"courseplayer/internal/adapters/storage/post"
	"courseplayer/internal/adapters/storage/quiz"
	"courseplayer/internal/domain/access"
	domaincurriculum "courseplayer/internal/domain/curriculum"
	domainquiz "courseplayer/internal/domain/quiz"
	"courseplayer/internal/domain/thumbnail"
)

// Host implements the LMS capabilities over the host database.
type Host struct {
	posts       post.Store
	curricula   curriculum.Store
	enrollments enrollment.Store
	quizzes     quiz.Store
	baseURL     string
	now         func() time.Time
}

// Compile-time checks for the capabilities Host provides.
var (
	_ access.EnrollmentChecker = (*Host)(nil)
	_ thumbnail.MediaLookup    = (*Host)(nil)
)

// NewHost wires a Host over db. baseURL prefixes every generated link and
// may be empty for root-relative URLs.
// PRE: db is migrated
func NewHost(db storage.SQLDB, baseURL string) *Host {
	return &Host{
		posts:       post.NewSQLiteStore(db),
		curricula:   curriculum.NewSQLiteStore(db),
		enrollments: enrollment.NewSQLiteStore(db),
		quizzes:     quiz.NewSQLiteStore(db),
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         time.Now,
	}
}

// WithClock replaces the time source used for subscription checks.
func (h *Host) WithClock(now func() time.Time) *Host {
	h.now = now
	return h
}

// HasItemAccess is true when the user holds a full enrollment in the course
// or was granted the specific item.
func (h *Host) HasItemAccess(ctx context.Context, courseID, itemID int64, userID string) (bool, error) {
	_, enrolled, err := h.enrollments.EnrolledAt(ctx, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("enrollment lookup: %w", err)
	}
	if enrolled {
		return true, nil
	}
	if itemID == 0 {
		return false, nil
	}
	return h.enrollments.HasItemGrant(ctx, userID, courseID, itemID)
}

// HasCourseAccess is the course-wide fallback: an active all-courses subscription.
func (h *Host) HasCourseAccess(ctx context.Context, courseID int64, userID string) (bool, error) {
	return h.enrollments.SubscriptionActive(ctx, userID, h.now())
}

// EnrolledAt returns the enrollment time, or the zero time when not enrolled.
func (h *Host) EnrolledAt(ctx context.Context, userID string, courseID int64) (time.Time, error) {
	if userID == "" {
		return time.Time{}, nil
	}
	at, _, err := h.enrollments.EnrolledAt(ctx, userID, courseID)
	return at, err
}

// GetCurriculum returns the ordered curriculum of a course.
func (h *Host) GetCurriculum(ctx context.Context, courseID int64) (domaincurriculum.Curriculum, error) {
	return h.curricula.GetCurriculum(ctx, courseID)
}

// GetQuizData loads quiz details for itemID as seen by userID.
func (h *Host) GetQuizData(ctx context.Context, itemID int64, userID string, courseID int64) (domainquiz.Data, error) {
	return h.quizzes.GetQuizData(ctx, itemID, courseID, userID)
}

// FeaturedImageURL returns the post's featured image URL or "".
func (h *Host) FeaturedImageURL(ctx context.Context, postID int64) (string, error) {
	return h.posts.FeaturedImageURL(ctx, postID)
}

// Meta returns a raw post meta value.
func (h *Host) Meta(ctx context.Context, postID int64, key string) (string, bool, error) {
	return h.posts.Meta(ctx, postID, key)
}

// AttachmentURL returns an attachment URL or "".
func (h *Host) AttachmentURL(ctx context.Context, attachmentID int64) (string, error) {
	return h.posts.AttachmentURL(ctx, attachmentID)
}

// Content returns the Markdown body of a post.
func (h *Host) Content(ctx context.Context, postID int64) (string, error) {
	p, err := h.posts.Get(ctx, postID)
	if err != nil {
		return "", err
	}
	return p.Content, nil
}

// CourseURL builds the link to a course entry page.
func (h *Host) CourseURL(courseID int64) string {
	return fmt.Sprintf("%s/courses/%d", h.baseURL, courseID)
}

// LessonURL builds the link to a lesson inside the course player.
func (h *Host) LessonURL(courseID, lessonID int64) string {
	return fmt.Sprintf("%s/courses/%d/lessons/%d", h.baseURL, courseID, lessonID)
}
