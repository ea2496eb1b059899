package projections

import (
	"context"
	"time"

	"courseplayer/internal/domain/course"
	"courseplayer/internal/domain/curriculum"
	"courseplayer/internal/domain/quiz"
)

// CourseStore interface for course queries.
type CourseStore interface {
	GetCourse(ctx context.Context, id int64) (course.Course, error)
	Resources(ctx context.Context, courseID int64) ([]course.Resource, error)
}

// CourseLister interface for the catalog.
type CourseLister interface {
	List(ctx context.Context) ([]course.Course, error)
}

// CurriculumProvider returns the ordered curriculum of a course.
type CurriculumProvider interface {
	GetCurriculum(ctx context.Context, courseID int64) (curriculum.Curriculum, error)
}

// EnrollmentTimeSource returns when a user enrolled; zero time when not enrolled.
type EnrollmentTimeSource interface {
	EnrolledAt(ctx context.Context, userID string, courseID int64) (time.Time, error)
}

// QuizDataProvider loads quiz details for one item as seen by one user.
type QuizDataProvider interface {
	GetQuizData(ctx context.Context, itemID int64, userID string, courseID int64) (quiz.Data, error)
}

// ProgressStore interface for completion queries.
type ProgressStore interface {
	Completed(ctx context.Context, userID string, courseID int64) (map[int64]bool, error)
}

// LessonURLBuilder builds host links.
type LessonURLBuilder interface {
	LessonURL(courseID, lessonID int64) string
	CourseURL(courseID int64) string
}

// ContentSource returns the Markdown body of a post.
type ContentSource interface {
	Content(ctx context.Context, postID int64) (string, error)
}
