package projections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courseplayer/internal/domain/course"
	"courseplayer/internal/domain/curriculum"
	"courseplayer/internal/domain/quiz"
	"courseplayer/internal/domain/thumbnail"
)

// mockCourseStore implements CourseStore and CourseLister for testing.
type mockCourseStore struct {
	courses      map[int64]course.Course
	resources    map[int64][]course.Resource
	resourcesErr error
}

// GetCourse implements CourseStore.
// PRE: none
// POST: returns the stored course or course.ErrCourseNotFound
func (m *mockCourseStore) GetCourse(_ context.Context, id int64) (course.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return course.Course{}, course.ErrCourseNotFound
	}
	return c, nil
}

// Resources implements CourseStore.
func (m *mockCourseStore) Resources(_ context.Context, courseID int64) ([]course.Resource, error) {
	if m.resourcesErr != nil {
		return nil, m.resourcesErr
	}
	return m.resources[courseID], nil
}

// List implements CourseLister.
func (m *mockCourseStore) List(_ context.Context) ([]course.Course, error) {
	var out []course.Course
	for id := int64(1); id <= int64(len(m.courses)); id++ {
		out = append(out, m.courses[id])
	}
	return out, nil
}

// mockHost implements the LMS capabilities for testing.
type mockHost struct {
	curricula    map[int64]curriculum.Curriculum
	curriculaErr error
	enrolled     map[string]time.Time // key: userID
	subscribers  map[string]bool
	checkErr     error
	featured     map[int64]string
	meta         map[int64]map[string]string
	attachments  map[int64]string
	quizzes      map[int64]quiz.Data
	completed    map[int64]bool
	bodies       map[int64]string
	contentErr   error
}

// GetCurriculum implements CurriculumProvider.
func (m *mockHost) GetCurriculum(_ context.Context, courseID int64) (curriculum.Curriculum, error) {
	if m.curriculaErr != nil {
		return curriculum.Curriculum{}, m.curriculaErr
	}
	return m.curricula[courseID], nil
}

// HasItemAccess implements access.EnrollmentChecker.
func (m *mockHost) HasItemAccess(_ context.Context, _, _ int64, userID string) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	_, ok := m.enrolled[userID]
	return ok, nil
}

// HasCourseAccess implements access.EnrollmentChecker.
func (m *mockHost) HasCourseAccess(_ context.Context, _ int64, userID string) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	return m.subscribers[userID], nil
}

// EnrolledAt implements EnrollmentTimeSource.
func (m *mockHost) EnrolledAt(_ context.Context, userID string, _ int64) (time.Time, error) {
	return m.enrolled[userID], nil
}

// FeaturedImageURL implements thumbnail.MediaLookup.
func (m *mockHost) FeaturedImageURL(_ context.Context, postID int64) (string, error) {
	return m.featured[postID], nil
}

// Meta implements thumbnail.MediaLookup.
func (m *mockHost) Meta(_ context.Context, postID int64, key string) (string, bool, error) {
	v, ok := m.meta[postID][key]
	return v, ok, nil
}

// AttachmentURL implements thumbnail.MediaLookup.
func (m *mockHost) AttachmentURL(_ context.Context, id int64) (string, error) {
	return m.attachments[id], nil
}

// GetQuizData implements QuizDataProvider.
func (m *mockHost) GetQuizData(_ context.Context, itemID int64, _ string, _ int64) (quiz.Data, error) {
	q, ok := m.quizzes[itemID]
	if !ok {
		return quiz.Data{}, errors.New("no quiz")
	}
	return q, nil
}

// Completed implements ProgressStore.
func (m *mockHost) Completed(_ context.Context, _ string, _ int64) (map[int64]bool, error) {
	return m.completed, nil
}

// LessonURL implements LessonURLBuilder.
func (m *mockHost) LessonURL(courseID, lessonID int64) string {
	return fmt.Sprintf("/courses/%d/lessons/%d", courseID, lessonID)
}

// CourseURL implements LessonURLBuilder.
func (m *mockHost) CourseURL(courseID int64) string {
	return fmt.Sprintf("/courses/%d", courseID)
}

// Content implements ContentSource.
func (m *mockHost) Content(_ context.Context, postID int64) (string, error) {
	if m.contentErr != nil {
		return "", m.contentErr
	}
	return m.bodies[postID], nil
}

// countingMedia forwards media lookups to a mockHost and counts them.
type countingMedia struct {
	host  *mockHost
	reads int
}

func (c *countingMedia) FeaturedImageURL(ctx context.Context, postID int64) (string, error) {
	c.reads++
	return c.host.FeaturedImageURL(ctx, postID)
}

func (c *countingMedia) Meta(ctx context.Context, postID int64, key string) (string, bool, error) {
	c.reads++
	return c.host.Meta(ctx, postID, key)
}

func (c *countingMedia) AttachmentURL(ctx context.Context, id int64) (string, error) {
	c.reads++
	return c.host.AttachmentURL(ctx, id)
}

// preloadingMedia adds batch preloading; the preloaded lookup is uncounted.
type preloadingMedia struct {
	*countingMedia
	preloadErr error
	preloaded  []int64
}

// PreloadMedia implements thumbnail.Preloader.
func (p *preloadingMedia) PreloadMedia(_ context.Context, postIDs []int64) (thumbnail.MediaLookup, error) {
	if p.preloadErr != nil {
		return nil, p.preloadErr
	}
	p.preloaded = append(p.preloaded, postIDs...)
	return p.host, nil
}
