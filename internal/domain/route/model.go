package route

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Post types that belong to the course player.
const (
	PostTypeCourse     = "course"
	PostTypeLesson     = "lesson"
	PostTypeQuiz       = "quiz"
	PostTypeAssignment = "assignment"
)

// Query parameters that indicate a course context.
const (
	ParamCourseID = "course_id"
	ParamLessonID = "lesson_id"
)

// ErrMissingRouteContext is returned when the identifiers needed to render a page are absent.
var ErrMissingRouteContext = errors.New("course or lesson identifier missing")

var playerPostTypes = map[string]bool{
	PostTypeCourse:     true,
	PostTypeLesson:     true,
	PostTypeQuiz:       true,
	PostTypeAssignment: true,
}

// RequestContext is what the HTTP layer knows about the current request.
type RequestContext struct {
	PostType string
	Query    url.Values
}

// IsPlayerRequest returns true when the request targets a course player page.
// PRE: none
// POST: true if the post type is in the player set or a course/lesson query param is present
func (rc RequestContext) IsPlayerRequest() bool {
	if playerPostTypes[rc.PostType] {
		return true
	}
	return rc.Query.Has(ParamCourseID) || rc.Query.Has(ParamLessonID)
}

// CourseContext identifies the course, lesson and viewer of a request.
// Immutable once built.
type CourseContext struct {
	CourseID int64
	LessonID int64  // 0 when absent
	UserID   string // "" for guests
}

// HasLesson returns true when a lesson was requested.
func (c CourseContext) HasLesson() bool {
	return c.LessonID > 0
}

// ParseIDs reads course_id and lesson_id from query values.
// Returns ErrMissingRouteContext when course_id is absent or not a positive integer.
// An unparsable lesson_id is treated as absent.
func ParseIDs(q url.Values) (courseID, lessonID int64, err error) {
	courseID, err = strconv.ParseInt(q.Get(ParamCourseID), 10, 64)
	if err != nil || courseID <= 0 {
		return 0, 0, ErrMissingRouteContext
	}
	lessonID, err = strconv.ParseInt(q.Get(ParamLessonID), 10, 64)
	if err != nil || lessonID < 0 {
		lessonID = 0
	}
	return courseID, lessonID, nil
}

// TemplateSelector is the single extension point the HTTP layer consults
// before rendering a course-related page.
type TemplateSelector interface {
	// SelectTemplate returns the template to render in place of original.
	SelectTemplate(rc RequestContext, original string) string
}

// Router substitutes the custom player template for course pages.
type Router struct {
	enabled  bool
	dir      string
	template string
	exists   func(path string) bool
}

var _ TemplateSelector = (*Router)(nil)

// NewRouter creates a Router. enabled toggles the override; dir and template
// locate the custom player template on disk.
// PRE: template is a file name relative to dir
// POST: returns a Router that checks the file system on every selection
func NewRouter(enabled bool, dir, template string) *Router {
	return &Router{enabled: enabled, dir: dir, template: template, exists: fileExists}
}

// WithExists replaces the file-existence probe. Intended for tests.
func (r *Router) WithExists(exists func(path string) bool) *Router {
	r.exists = exists
	return r
}

// SelectTemplate returns the custom template name when the override is enabled,
// the request is a player request and the template file exists. Otherwise
// original is returned unchanged.
// PRE: none
// POST: never fails; result is either r.template or original
func (r *Router) SelectTemplate(rc RequestContext, original string) string {
	if !r.enabled || !rc.IsPlayerRequest() {
		return original
	}
	if !r.exists(filepath.Join(r.dir, r.template)) {
		return original
	}
	return r.template
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
