package projections

import (
	"context"
	"errors"

	"courseplayer/internal/domain/course"
	"courseplayer/internal/domain/route"
)

// GetCourseEntryQuery carries input for the course entry projection.
type GetCourseEntryQuery struct {
	CourseID int64
}

// GetCourseEntryDeps holds dependencies for the course entry projection.
type GetCourseEntryDeps struct {
	Courses   CourseStore
	Curricula CurriculumProvider
	URLs      LessonURLBuilder
}

// CourseEntryResult is the "starting course" page.
type CourseEntryResult struct {
	CourseTitle      string
	FirstLessonID    int64
	FirstLessonTitle string
	FirstLessonURL   string
}

// QueryGetCourseEntry finds where a learner opening a course should land.
// PRE: deps are valid and non-nil
// POST: returns route.ErrMissingRouteContext when the course id is missing or
// the first section has no materials; course.ErrCourseNotFound passes through
func QueryGetCourseEntry(ctx context.Context, query GetCourseEntryQuery, deps GetCourseEntryDeps) (CourseEntryResult, error) {
	if query.CourseID <= 0 {
		return CourseEntryResult{}, route.ErrMissingRouteContext
	}

	c, err := deps.Courses.GetCourse(ctx, query.CourseID)
	if err != nil {
		return CourseEntryResult{}, err
	}

	cur := loadCurriculum(ctx, deps.Curricula, query.CourseID)
	first, ok := cur.FirstMaterial()
	if !ok {
		return CourseEntryResult{}, route.ErrMissingRouteContext
	}

	return CourseEntryResult{
		CourseTitle:      c.Title,
		FirstLessonID:    first.PostID,
		FirstLessonTitle: first.Title,
		FirstLessonURL:   deps.URLs.LessonURL(query.CourseID, first.PostID),
	}, nil
}

// IsRedirectHome reports whether err should send the visitor back to the home page.
func IsRedirectHome(err error) bool {
	return errors.Is(err, route.ErrMissingRouteContext) || errors.Is(err, course.ErrCourseNotFound)
}
