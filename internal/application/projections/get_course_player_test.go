package projections

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"courseplayer/internal/domain/access"
	"courseplayer/internal/domain/course"
	"courseplayer/internal/domain/curriculum"
	"courseplayer/internal/domain/pricing"
	"courseplayer/internal/domain/quiz"
	"courseplayer/internal/domain/route"
	"courseplayer/internal/domain/thumbnail"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// newPlayerFixture builds a course with two sections:
// Start [10 Welcome (preview), 11 Breathing] and Practice [12 Check (quiz)].
func newPlayerFixture() (*mockCourseStore, *mockHost) {
	courses := &mockCourseStore{
		courses: map[int64]course.Course{
			1: {
				ID:            1,
				Title:         "Silva Method",
				Excerpt:       "Train your mind.",
				AuthorName:    "Jo",
				FeaturedImage: "https://cdn.example.com/course.jpg",
				Price:         pricing.Price{Amount: 4900, HasAmount: true},
			},
		},
		resources: map[int64][]course.Resource{
			1: {{Kind: course.ResourceFile, Title: "Workbook", URL: "/files/wb.pdf", Size: "2.5 MB"}},
		},
	}
	host := &mockHost{
		curricula: map[int64]curriculum.Curriculum{
			1: {Sections: []curriculum.Section{
				{Title: "Start", Materials: []curriculum.Material{
					{PostID: 10, Title: "Welcome", ContentType: curriculum.TypeLesson, Duration: "5 mins", Preview: true},
					{PostID: 11, Title: "Breathing", ContentType: curriculum.TypeLesson},
				}},
				{Title: "Practice", Materials: []curriculum.Material{
					{PostID: 12, Title: "Check", ContentType: curriculum.TypeQuiz},
				}},
			}},
		},
		enrolled:    map[string]time.Time{"u1": testNow.AddDate(0, 0, -30)},
		subscribers: map[string]bool{"u2": true},
		featured: map[int64]string{
			1:  "https://cdn.example.com/course.jpg",
			10: "https://cdn.example.com/welcome.jpg",
		},
		meta: map[int64]map[string]string{
			11: {
				thumbnail.BannerField: "4242",
				"lesson_image":        `{"url":"https://cdn.example.com/breathing.jpg"}`,
			},
		},
		quizzes: map[int64]quiz.Data{
			12: {QuizID: 12, QuestionCount: 3, PassingGrade: 70},
		},
		completed: map[int64]bool{10: true},
		bodies:    map[int64]string{11: "Breathe **slowly**."},
	}
	return courses, host
}

func playerDeps(courses *mockCourseStore, host *mockHost) GetCoursePlayerDeps {
	return GetCoursePlayerDeps{
		Courses:     courses,
		Curricula:   host,
		Checker:     host,
		Enrollments: host,
		Media:       host,
		Quizzes:     host,
		Progress:    host,
		Contents:    host,
		URLs:        host,
		Options:     PlayerOptions{Currency: "USD", Debug: true},
	}
}

func queryPlayer(t *testing.T, deps GetCoursePlayerDeps, courseID, lessonID int64, userID string) CoursePlayerView {
	t.Helper()
	view, err := QueryGetCoursePlayer(context.Background(), GetCoursePlayerQuery{
		Context: route.CourseContext{CourseID: courseID, LessonID: lessonID, UserID: userID},
		Now:     testNow,
	}, deps)
	if err != nil {
		t.Fatalf("QueryGetCoursePlayer(%d, %d, %q): %v", courseID, lessonID, userID, err)
	}
	return view
}

// TestQueryGetCoursePlayer_NextLesson verifies continue targets in curriculum order.
func TestQueryGetCoursePlayer_NextLesson(t *testing.T) {
	deps := playerDeps(newPlayerFixture())

	tests := []struct {
		name     string
		lessonID int64
		wantNext int64
		wantURL  string
		complete bool
	}{
		{"first to second", 10, 11, "/courses/1/lessons/11", false},
		{"crosses section boundary", 11, 12, "/courses/1/lessons/12", false},
		{"last lesson", 12, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := queryPlayer(t, deps, 1, tt.lessonID, "u1").Navigation
			if nav.NextLessonID != tt.wantNext || nav.NextLessonURL != tt.wantURL || nav.CourseComplete != tt.complete {
				t.Errorf("Navigation = %+v", nav)
			}
			if tt.complete && nav.Label != CourseCompleteLabel {
				t.Errorf("Label = %q, want %q", nav.Label, CourseCompleteLabel)
			}
		})
	}
}

// TestQueryGetCoursePlayer_GuestPreview verifies a guest sees preview content and a buy panel.
func TestQueryGetCoursePlayer_GuestPreview(t *testing.T) {
	deps := playerDeps(newPlayerFixture())
	view := queryPlayer(t, deps, 1, 10, "")

	if view.Decision.State != access.StatePreview || view.Block != access.BlockLesson {
		t.Errorf("decision = %+v, block = %s", view.Decision, view.Block)
	}
	if view.Decision.IsEnrolled || view.Decision.HasAccess {
		t.Error("guest must never be enrolled")
	}
	if view.Offer == nil {
		t.Fatal("expected buy panel for guest")
	}
	if view.Offer.Label != pricing.LabelPaid || view.Offer.Action != pricing.ActionLogin || !strings.Contains(view.Offer.DisplayPrice, "49.00") {
		t.Errorf("Offer = %+v", view.Offer)
	}
	if view.Sections != nil || view.FirstLesson != nil || view.Resources != nil {
		t.Error("gated data leaked to a guest")
	}
	if view.Navigation != (Navigation{}) {
		t.Errorf("guest got navigation %+v", view.Navigation)
	}
	if view.Item.Duration != "5 mins" || view.Item.TypeLabel != "LESSON" {
		t.Errorf("Item = %+v", view.Item)
	}
}

// TestQueryGetCoursePlayer_Restricted verifies non-preview content is gated.
func TestQueryGetCoursePlayer_Restricted(t *testing.T) {
	deps := playerDeps(newPlayerFixture())

	guest := queryPlayer(t, deps, 1, 11, "")
	if guest.Block != access.BlockRestricted {
		t.Errorf("guest block = %s, want restricted", guest.Block)
	}
	if guest.Item.Body != "" {
		t.Error("restricted view leaked the lesson body")
	}

	stranger := queryPlayer(t, deps, 1, 11, "u9")
	if stranger.Block != access.BlockRestricted || stranger.Offer == nil || stranger.Offer.Action != pricing.ActionPurchase {
		t.Errorf("logged-in stranger = block %s, offer %+v", stranger.Block, stranger.Offer)
	}
}

// TestQueryGetCoursePlayer_EnrolledView verifies the full enrolled payload.
func TestQueryGetCoursePlayer_EnrolledView(t *testing.T) {
	deps := playerDeps(newPlayerFixture())
	view := queryPlayer(t, deps, 1, 11, "u1")

	if view.Decision.State != access.StateFull || view.Block != access.BlockLesson {
		t.Fatalf("decision = %+v", view.Decision)
	}
	if view.Offer != nil {
		t.Error("enrolled user got a buy panel")
	}
	if view.Stats != (Stats{Lessons: 3, Sections: 2, Completed: 1}) {
		t.Errorf("Stats = %+v", view.Stats)
	}
	if view.Course.Initials != "SM" || view.Course.Description != "Train your mind." {
		t.Errorf("Course = %+v", view.Course)
	}

	if len(view.Sections) != 2 || len(view.Sections[0].Lessons) != 2 || len(view.Sections[1].Lessons) != 1 {
		t.Fatalf("Sections = %+v", view.Sections)
	}
	welcome := view.Sections[0].Lessons[0]
	if !welcome.Completed || welcome.Thumbnail != "https://cdn.example.com/welcome.jpg" || welcome.Current {
		t.Errorf("welcome row = %+v", welcome)
	}
	if !view.Sections[0].Lessons[1].Current {
		t.Error("current lesson not flagged")
	}
	check := view.Sections[1].Lessons[0]
	if check.Number != 1 || check.TypeLabel != "QUIZ" || check.Thumbnail != "https://cdn.example.com/course.jpg" {
		t.Errorf("quiz row = %+v", check)
	}

	if view.FirstLesson == nil || view.FirstLesson.ID != 10 || view.FirstLesson.Thumbnail != "https://cdn.example.com/welcome.jpg" {
		t.Errorf("FirstLesson = %+v", view.FirstLesson)
	}
	if len(view.Resources) != 1 {
		t.Errorf("Resources = %+v", view.Resources)
	}
	if view.Item.Body != "Breathe **slowly**." {
		t.Errorf("Body = %q", view.Item.Body)
	}
}

// TestQueryGetCoursePlayer_ThumbnailFallback verifies an unresolvable numeric
// banner falls through to the next meta field, not to empty.
func TestQueryGetCoursePlayer_ThumbnailFallback(t *testing.T) {
	deps := playerDeps(newPlayerFixture())
	view := queryPlayer(t, deps, 1, 11, "u1")

	if view.Thumbnail.URL != "https://cdn.example.com/breathing.jpg" || view.Thumbnail.Source != "lesson_image" {
		t.Errorf("Thumbnail = %+v", view.Thumbnail)
	}
}

// TestQueryGetCoursePlayer_ListThumbnailsPreloaded verifies the lesson list
// reads thumbnails from one preload and falls back when the preload fails.
func TestQueryGetCoursePlayer_ListThumbnailsPreloaded(t *testing.T) {
	courses, host := newPlayerFixture()
	thumbs := func(v CoursePlayerView) []string {
		var out []string
		for _, s := range v.Sections {
			for _, l := range s.Lessons {
				out = append(out, l.Thumbnail)
			}
		}
		return out
	}

	plain := &countingMedia{host: host}
	deps := playerDeps(courses, host)
	deps.Media = plain
	want := thumbs(queryPlayer(t, deps, 1, 11, "u1"))

	batched := &preloadingMedia{countingMedia: &countingMedia{host: host}}
	deps.Media = batched
	got := thumbs(queryPlayer(t, deps, 1, 11, "u1"))

	if !slices.Equal(got, want) {
		t.Errorf("thumbnails = %v, want %v", got, want)
	}
	if !slices.Equal(batched.preloaded, []int64{10, 11, 12, 1}) {
		t.Errorf("preloaded = %v, want materials then course", batched.preloaded)
	}
	if batched.reads >= plain.reads {
		t.Errorf("direct reads = %d with preload, %d without", batched.reads, plain.reads)
	}

	failing := &preloadingMedia{countingMedia: &countingMedia{host: host}, preloadErr: errors.New("meta query failed")}
	deps.Media = failing
	if got := thumbs(queryPlayer(t, deps, 1, 11, "u1")); !slices.Equal(got, want) {
		t.Errorf("after failed preload thumbnails = %v, want %v", got, want)
	}
}

// TestQueryGetCoursePlayer_Quiz verifies quiz data loads only for quiz items.
func TestQueryGetCoursePlayer_Quiz(t *testing.T) {
	deps := playerDeps(newPlayerFixture())

	view := queryPlayer(t, deps, 1, 12, "u1")
	if view.Block != access.BlockQuiz || view.Quiz == nil || view.Quiz.QuestionCount != 3 {
		t.Errorf("quiz view: block %s, quiz %+v", view.Block, view.Quiz)
	}

	lesson := queryPlayer(t, deps, 1, 11, "u1")
	if lesson.Quiz != nil {
		t.Error("quiz data loaded for a lesson")
	}
}

// TestQueryGetCoursePlayer_Locks verifies drip and start-date locks.
func TestQueryGetCoursePlayer_Locks(t *testing.T) {
	courses, host := newPlayerFixture()
	courses.courses[2] = course.Course{ID: 2, Title: "Drip"}
	host.curricula[2] = curriculum.Curriculum{Sections: []curriculum.Section{{Title: "Weeks", Materials: []curriculum.Material{
		{PostID: 20, Title: "Week 8", ContentType: curriculum.TypeLesson, DripDelay: 60 * 24 * time.Hour},
		{PostID: 21, Title: "Launch", ContentType: curriculum.TypeLesson, Preview: true, LockStartsAt: testNow.Add(24 * time.Hour)},
		{PostID: 22, Title: "Week 1", ContentType: curriculum.TypeLesson, DripDelay: 7 * 24 * time.Hour},
	}}}}
	deps := playerDeps(courses, host)

	drip := queryPlayer(t, deps, 2, 20, "u1")
	if drip.Block != access.BlockLocked || !strings.Contains(drip.Decision.LockReason, "will be available on") {
		t.Errorf("drip lock = %+v", drip.Decision)
	}
	if !drip.Decision.HasAccess {
		t.Error("locked item must keep HasAccess")
	}

	start := queryPlayer(t, deps, 2, 21, "")
	if start.Block != access.BlockLocked || !strings.Contains(start.Decision.LockReason, "June 16, 2025") {
		t.Errorf("start lock = %+v", start.Decision)
	}

	released := queryPlayer(t, deps, 2, 22, "u1")
	if released.Block != access.BlockLesson {
		t.Errorf("released drip block = %s", released.Block)
	}
}

// TestQueryGetCoursePlayer_Placeholder verifies an item outside the course.
func TestQueryGetCoursePlayer_Placeholder(t *testing.T) {
	deps := playerDeps(newPlayerFixture())
	view := queryPlayer(t, deps, 1, 999, "u1")
	if view.Block != access.BlockPlaceholder || view.Item.ID != 0 {
		t.Errorf("block = %s, item = %+v", view.Block, view.Item)
	}
}

// TestQueryGetCoursePlayer_AlternateAccess verifies the course-wide check.
func TestQueryGetCoursePlayer_AlternateAccess(t *testing.T) {
	deps := playerDeps(newPlayerFixture())
	view := queryPlayer(t, deps, 1, 11, "u2")
	if view.Decision.State != access.StateFull {
		t.Errorf("subscriber state = %s, want full", view.Decision.State)
	}
}

// TestQueryGetCoursePlayer_CollaboratorFailures verifies host errors degrade
// to empty data or no access, never to a failed page.
func TestQueryGetCoursePlayer_CollaboratorFailures(t *testing.T) {
	courses, host := newPlayerFixture()
	host.checkErr = errors.New("enrollment service down")
	deps := playerDeps(courses, host)

	view := queryPlayer(t, deps, 1, 11, "u1")
	if view.Block != access.BlockRestricted {
		t.Errorf("checker error block = %s, want restricted", view.Block)
	}

	host.checkErr = nil
	host.curriculaErr = errors.New("curriculum repo down")
	view = queryPlayer(t, deps, 1, 11, "u1")
	if view.Block != access.BlockPlaceholder || view.Stats.Lessons != 0 {
		t.Errorf("curriculum error: block %s, stats %+v", view.Block, view.Stats)
	}

	host.curriculaErr = nil
	courses.resourcesErr = errors.New("attachment scan failed")
	host.contentErr = errors.New("post table locked")
	view = queryPlayer(t, deps, 1, 11, "u1")
	if view.Block != access.BlockLesson || view.Item.Body != "" {
		t.Errorf("content error: block %s, body %q", view.Block, view.Item.Body)
	}
	if view.Resources != nil {
		t.Errorf("resources error: got %+v, want none", view.Resources)
	}
	if len(view.Sections) != 2 || view.Navigation.NextLessonID != 12 {
		t.Errorf("rest of the page missing: sections %d, next %d", len(view.Sections), view.Navigation.NextLessonID)
	}
}

// TestQueryGetCoursePlayer_Errors verifies route and lookup errors.
func TestQueryGetCoursePlayer_Errors(t *testing.T) {
	deps := playerDeps(newPlayerFixture())
	ctx := context.Background()

	_, err := QueryGetCoursePlayer(ctx, GetCoursePlayerQuery{}, deps)
	if !errors.Is(err, route.ErrMissingRouteContext) {
		t.Errorf("no course id: %v", err)
	}
	_, err = QueryGetCoursePlayer(ctx, GetCoursePlayerQuery{Context: route.CourseContext{CourseID: 9}}, deps)
	if !errors.Is(err, course.ErrCourseNotFound) {
		t.Errorf("unknown course: %v", err)
	}
}
