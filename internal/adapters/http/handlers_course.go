package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"courseplayer/internal/adapters/http/middleware"
	"courseplayer/internal/application/listutil"
	"courseplayer/internal/application/orchestrators"
	"courseplayer/internal/application/projections"
	"courseplayer/internal/domain/course"
	"courseplayer/internal/domain/curriculum"
	"courseplayer/internal/domain/route"
)

// Default host templates the router may replace.
const (
	homeTemplate   = "home.html"
	courseTemplate = "course.html"
	lessonTemplate = "lesson.html"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func coursePath(courseID int64) string {
	return fmt.Sprintf("/courses/%d", courseID)
}

func lessonPath(courseID, lessonID int64) string {
	return fmt.Sprintf("/courses/%d/lessons/%d", courseID, lessonID)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func loginFor(back string) string {
	return "/login?next=" + url.QueryEscape(back)
}

func (s *Server) playerDeps() projections.GetCoursePlayerDeps {
	h := s.stores.Host
	return projections.GetCoursePlayerDeps{
		Courses:     s.stores.Courses,
		Curricula:   h,
		Checker:     h,
		Enrollments: h,
		Media:       h,
		Quizzes:     h,
		Progress:    s.stores.Progress,
		Contents:    h,
		URLs:        h,
		Options:     s.opts.Player,
	}
}

func (s *Server) playerView(r *http.Request, courseID, lessonID int64) (projections.CoursePlayerView, error) {
	return projections.QueryGetCoursePlayer(r.Context(), projections.GetCoursePlayerQuery{
		Context: route.CourseContext{
			CourseID: courseID,
			LessonID: lessonID,
			UserID:   middleware.UserID(r.Context()),
		},
		Now: s.opts.Now(),
	}, s.playerDeps())
}

// selectTemplate asks the router once per request which page to render.
func (s *Server) selectTemplate(r *http.Request, rc route.RequestContext, original string) string {
	name := s.templates.SelectTemplate(rc, original)
	if s.opts.Debug {
		slog.DebugContext(r.Context(), "template_selection",
			"post_type", rc.PostType,
			"player_request", rc.IsPlayerRequest(),
			"original", original,
			"selected", name,
		)
	}
	return name
}

// handleHome handles GET /. A course_id or lesson_id query routes like the
// matching course or lesson URL; otherwise q, page and per_page drive the catalog.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	rc := route.RequestContext{Query: r.URL.Query()}
	if rc.IsPlayerRequest() {
		courseID, lessonID, err := route.ParseIDs(rc.Query)
		if err != nil {
			redirectHome(w, r)
			return
		}
		if lessonID > 0 {
			s.serveLesson(w, r, courseID, lessonID)
			return
		}
		s.serveCourse(w, r, courseID)
		return
	}

	catalog, err := projections.QueryGetCatalog(r.Context(), projections.GetCatalogQuery{
		LoggedIn: middleware.UserID(r.Context()) != "",
		List:     listutil.ParseParams(rc.Query),
		Now:      s.opts.Now(),
	}, projections.GetCatalogDeps{
		Courses: s.stores.Courses,
		URLs:    s.stores.Host,
		Options: s.opts.Player,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	s.renderTemplate(w, r, homeTemplate, map[string]any{
		"Title":   "Courses",
		"Courses": catalog.Entries,
		"Search":  catalog.Search,
		"Page":    catalog.Page,
	})
}

// handleCourse handles GET /courses/{courseID}
func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseID")
	if !ok {
		redirectHome(w, r)
		return
	}
	s.serveCourse(w, r, courseID)
}

// handleLesson handles GET /courses/{courseID}/lessons/{lessonID}
func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseID")
	if !ok {
		redirectHome(w, r)
		return
	}
	lessonID, ok := pathID(r, "lessonID")
	if !ok {
		http.Redirect(w, r, coursePath(courseID), http.StatusSeeOther)
		return
	}
	s.serveLesson(w, r, courseID, lessonID)
}

// serveCourse renders a course page. With the player template active the
// page is the "starting course" hand-off to the first lesson.
func (s *Server) serveCourse(w http.ResponseWriter, r *http.Request, courseID int64) {
	rc := route.RequestContext{PostType: route.PostTypeCourse, Query: r.URL.Query()}
	name := s.selectTemplate(r, rc, courseTemplate)

	if name != courseTemplate {
		entry, err := projections.QueryGetCourseEntry(r.Context(), projections.GetCourseEntryQuery{CourseID: courseID},
			projections.GetCourseEntryDeps{Courses: s.stores.Courses, Curricula: s.stores.Host, URLs: s.stores.Host})
		if projections.IsRedirectHome(err) {
			redirectHome(w, r)
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		s.renderTemplate(w, r, name, map[string]any{
			"Title": entry.CourseTitle,
			"Entry": entry,
		})
		return
	}

	view, err := s.playerView(r, courseID, 0)
	if projections.IsRedirectHome(err) {
		redirectHome(w, r)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	s.renderTemplate(w, r, name, map[string]any{
		"Title": view.Course.Title,
		"View":  view,
	})
}

// serveLesson renders a lesson, quiz or assignment inside its course.
func (s *Server) serveLesson(w http.ResponseWriter, r *http.Request, courseID, lessonID int64) {
	view, err := s.playerView(r, courseID, lessonID)
	if projections.IsRedirectHome(err) {
		redirectHome(w, r)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	postType := view.Item.ContentType
	if postType == "" || postType == curriculum.TypeOther {
		postType = route.PostTypeLesson
	}
	name := s.selectTemplate(r, route.RequestContext{PostType: postType, Query: r.URL.Query()}, lessonTemplate)

	title := view.Course.Title
	if view.Item.Title != "" {
		title = view.Item.Title + " - " + title
	}
	s.renderTemplate(w, r, name, map[string]any{
		"Title": title,
		"View":  view,
	})
}

// handleEnroll handles POST /courses/{courseID}/enroll
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseID")
	if !ok {
		redirectHome(w, r)
		return
	}

	err := orchestrators.ExecuteEnroll(r.Context(), orchestrators.EnrollInput{
		UserID:   middleware.UserID(r.Context()),
		CourseID: courseID,
		Now:      s.opts.Now(),
	}, orchestrators.EnrollDeps{Courses: s.stores.Courses, Enrollments: s.stores.Enrollments})
	switch {
	case err == nil:
		http.Redirect(w, r, coursePath(courseID), http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrLoginRequired):
		http.Redirect(w, r, loginFor(coursePath(courseID)), http.StatusSeeOther)
	case errors.Is(err, course.ErrCourseNotFound):
		redirectHome(w, r)
	case errors.Is(err, orchestrators.ErrPaymentRequired):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	default:
		internalError(w, r, err)
	}
}

// handleCompleteLesson handles POST /courses/{courseID}/lessons/{lessonID}/complete.
// Browsers are redirected back to the lesson; other clients get JSON.
func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "courseID")
	if !ok {
		redirectHome(w, r)
		return
	}
	lessonID, ok := pathID(r, "lessonID")
	if !ok {
		http.Error(w, "lesson not found", http.StatusNotFound)
		return
	}

	err := orchestrators.ExecuteCompleteLesson(r.Context(), orchestrators.CompleteLessonInput{
		UserID:   middleware.UserID(r.Context()),
		CourseID: courseID,
		LessonID: lessonID,
		Now:      s.opts.Now(),
	}, orchestrators.CompleteLessonDeps{
		Curricula: s.stores.Host,
		Checker:   s.stores.Host,
		Dates:     s.stores.Host,
		Progress:  s.stores.Progress,
	})
	switch {
	case err == nil:
		if !isHTMLRequest(r) {
			writeJSON(w, http.StatusOK, map[string]any{"completed": true, "lesson_id": lessonID})
			return
		}
		http.Redirect(w, r, lessonPath(courseID, lessonID), http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrLoginRequired):
		http.Redirect(w, r, loginFor(lessonPath(courseID, lessonID)), http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrNotInCourse):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, orchestrators.ErrNoAccess), errors.Is(err, orchestrators.ErrLessonLocked):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		internalError(w, r, err)
	}
}
