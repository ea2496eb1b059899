package projections

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"courseplayer/internal/domain/access"
	"courseplayer/internal/domain/course"
	"courseplayer/internal/domain/curriculum"
	"courseplayer/internal/domain/pricing"
	"courseplayer/internal/domain/quiz"
	"courseplayer/internal/domain/route"
	"courseplayer/internal/domain/thumbnail"
)

const tracerName = "courseplayer/internal/application/projections"

// CourseCompleteLabel replaces the continue button after the last lesson.
const CourseCompleteLabel = "Course Complete"

// PlayerOptions are deployment settings that shape the view.
type PlayerOptions struct {
	Currency      string // ISO 4217
	GuestCheckout bool
	Debug         bool // emit diagnostic slog events
}

// GetCoursePlayerQuery carries input for the course player projection.
type GetCoursePlayerQuery struct {
	Context route.CourseContext
	Now     time.Time
}

// GetCoursePlayerDeps holds dependencies for the course player projection.
type GetCoursePlayerDeps struct {
	Courses     CourseStore
	Curricula   CurriculumProvider
	Checker     access.EnrollmentChecker
	Enrollments EnrollmentTimeSource
	Media       thumbnail.MediaLookup
	Quizzes     QuizDataProvider
	Progress    ProgressStore
	Contents    ContentSource
	URLs        LessonURLBuilder
	Options     PlayerOptions
}

// CourseSummary is the course header of the player.
type CourseSummary struct {
	ID            int64
	Title         string
	Initials      string
	AuthorName    string
	Description   string // Markdown
	FeaturedImage string
}

// ItemView is the current curriculum item.
type ItemView struct {
	ID          int64 // 0 when no item is selected or it is not part of the course
	Title       string
	ContentType string
	TypeLabel   string
	Duration    string
	Number      int
	Body        string // Markdown; set only when the lesson block renders
}

// Navigation is the continue target after the current item.
type Navigation struct {
	NextLessonID    int64
	NextLessonTitle string
	NextLessonURL   string
	CourseComplete  bool
	Label           string
}

// LessonView is one row of the lesson list.
type LessonView struct {
	ID        int64
	Number    int
	Title     string
	TypeLabel string
	Duration  string
	URL       string
	Thumbnail string
	Completed bool
	Current   bool
}

// SectionView groups lesson rows.
type SectionView struct {
	Title   string
	Lessons []LessonView
}

// Stats summarises the curriculum for the header.
type Stats struct {
	Lessons   int
	Sections  int
	Completed int
}

// CoursePlayerView is everything the player template renders.
type CoursePlayerView struct {
	Course     CourseSummary
	Item       ItemView
	Decision   access.Decision
	Block      access.Block
	Navigation Navigation
	Thumbnail  thumbnail.Resolution
	Stats      Stats

	// Populated only when the viewer has access.
	Sections    []SectionView
	FirstLesson *LessonView
	Resources   []course.Resource

	// Populated only when the viewer has no access.
	Offer *pricing.Offer

	// Populated only for quiz items.
	Quiz *quiz.Data
}

// QueryGetCoursePlayer resolves the course player view for one request.
// The access decision is computed before any gated data is loaded.
// PRE: deps are valid and non-nil
// POST: returns route.ErrMissingRouteContext without a course id,
// course.ErrCourseNotFound for an unknown course
func QueryGetCoursePlayer(ctx context.Context, query GetCoursePlayerQuery, deps GetCoursePlayerDeps) (view CoursePlayerView, err error) {
	cc := query.Context
	ctx, span := otel.Tracer(tracerName).Start(ctx, "QueryGetCoursePlayer")
	span.SetAttributes(
		attribute.Int64("course.id", cc.CourseID),
		attribute.Int64("lesson.id", cc.LessonID),
		attribute.Bool("user.guest", cc.UserID == ""),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("access.state", string(view.Decision.State)))
		}
		span.End()
	}()

	if cc.CourseID <= 0 {
		return CoursePlayerView{}, route.ErrMissingRouteContext
	}
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}

	c, err := deps.Courses.GetCourse(ctx, cc.CourseID)
	if err != nil {
		return CoursePlayerView{}, err
	}
	view.Course = summarize(c)

	cur := loadCurriculum(ctx, deps.Curricula, cc.CourseID)
	view.Stats = Stats{Lessons: cur.MaterialCount(), Sections: len(cur.Sections)}

	entry, found := cur.Find(cc.LessonID)
	if cc.LessonID == 0 {
		found = false
	}
	item := access.Item{}
	if found {
		view.Item = ItemView{
			ID:          entry.PostID,
			Title:       entry.Title,
			ContentType: entry.ContentType,
			TypeLabel:   entry.TypeLabel(),
			Duration:    entry.Duration,
			Number:      entry.Number,
		}
		item = lockedItem(ctx, deps, cc, entry.Material, now)
	}

	view.Decision = access.Resolve(ctx, deps.Checker, cc.UserID, cc.CourseID, item)
	view.Block = view.Decision.Block(item)
	if deps.Options.Debug {
		slog.DebugContext(ctx, "access_decision",
			"course_id", cc.CourseID,
			"item_id", item.ID,
			"guest", cc.UserID == "",
			"state", string(view.Decision.State),
			"block", string(view.Block),
			"lock_reason", view.Decision.LockReason,
		)
	}

	if found {
		view.Thumbnail = thumbnail.Resolve(ctx, deps.Media, entry.PostID, cc.CourseID)
		if deps.Options.Debug {
			slog.DebugContext(ctx, "thumbnail_resolution",
				"lesson_id", entry.PostID,
				"source", view.Thumbnail.Source,
				"url", view.Thumbnail.URL,
				"trace", view.Thumbnail.Trace,
			)
		}
	}

	completed := loadCompleted(ctx, deps.Progress, cc)
	for _, id := range cur.MaterialIDs() {
		if completed[id] {
			view.Stats.Completed++
		}
	}

	if view.Decision.HasAccess {
		view.Navigation = navigate(cur, cc, deps.URLs)
		view.Sections = lessonList(ctx, cur, cc, completed, deps)
		view.FirstLesson = firstLesson(ctx, cur, c, cc, completed, deps)
		res, rerr := deps.Courses.Resources(ctx, cc.CourseID)
		if rerr != nil {
			slog.WarnContext(ctx, "course_resources_unavailable", "course_id", cc.CourseID, "error", rerr.Error())
		}
		view.Resources = res
	} else {
		offer := pricing.BuildOffer(pricing.OfferInput{
			Price:         c.Price,
			LoggedIn:      cc.UserID != "",
			GuestCheckout: deps.Options.GuestCheckout,
			Currency:      deps.Options.Currency,
			Now:           now,
		})
		view.Offer = &offer
	}

	if view.Block == access.BlockLesson {
		body, cerr := deps.Contents.Content(ctx, entry.PostID)
		if cerr != nil {
			slog.WarnContext(ctx, "lesson_content_unavailable", "lesson_id", entry.PostID, "error", cerr.Error())
		}
		view.Item.Body = body
	}

	if view.Block == access.BlockQuiz {
		q, qerr := deps.Quizzes.GetQuizData(ctx, entry.PostID, cc.UserID, cc.CourseID)
		if qerr != nil {
			slog.WarnContext(ctx, "quiz_data_unavailable", "quiz_id", entry.PostID, "error", qerr.Error())
		} else {
			view.Quiz = &q
		}
	}

	return view, nil
}

func summarize(c course.Course) CourseSummary {
	return CourseSummary{
		ID:            c.ID,
		Title:         c.Title,
		Initials:      c.Initials(),
		AuthorName:    c.AuthorName,
		Description:   c.Description(),
		FeaturedImage: c.FeaturedImage,
	}
}

// loadCurriculum treats a failed lookup as an empty curriculum.
func loadCurriculum(ctx context.Context, p CurriculumProvider, courseID int64) curriculum.Curriculum {
	cur, err := p.GetCurriculum(ctx, courseID)
	if err != nil {
		slog.WarnContext(ctx, "curriculum_unavailable",
			"course_id", courseID,
			"error", errors.Join(access.ErrMissingCollaboratorData, err).Error(),
		)
		return curriculum.Curriculum{}
	}
	return cur
}

func loadCompleted(ctx context.Context, p ProgressStore, cc route.CourseContext) map[int64]bool {
	if cc.UserID == "" {
		return nil
	}
	done, err := p.Completed(ctx, cc.UserID, cc.CourseID)
	if err != nil {
		slog.WarnContext(ctx, "progress_unavailable", "course_id", cc.CourseID, "error", err.Error())
		return nil
	}
	return done
}

// lockedItem builds the access item with the host lock flags for m.
func lockedItem(ctx context.Context, deps GetCoursePlayerDeps, cc route.CourseContext, m curriculum.Material, now time.Time) access.Item {
	var enrolledAt time.Time
	if cc.UserID != "" && m.DripDelay > 0 {
		at, err := deps.Enrollments.EnrolledAt(ctx, cc.UserID, cc.CourseID)
		if err != nil {
			slog.WarnContext(ctx, "enrollment_date_unavailable", "course_id", cc.CourseID, "error", err.Error())
		}
		enrolledAt = at
	}
	beforeStart, drip, msg := m.LockState(now, enrolledAt)
	return access.Item{
		ID:              m.PostID,
		ContentType:     m.ContentType,
		HasPreview:      m.Preview,
		LockBeforeStart: beforeStart,
		LockedByDrip:    drip,
		LockMessage:     msg,
	}
}

func navigate(cur curriculum.Curriculum, cc route.CourseContext, urls LessonURLBuilder) Navigation {
	next, ok := curriculum.FindNextLesson(cur, cc.LessonID)
	if !ok {
		return Navigation{CourseComplete: true, Label: CourseCompleteLabel}
	}
	return Navigation{
		NextLessonID:    next.PostID,
		NextLessonTitle: next.Title,
		NextLessonURL:   urls.LessonURL(cc.CourseID, next.PostID),
		Label:           "Continue",
	}
}

func lessonList(ctx context.Context, cur curriculum.Curriculum, cc route.CourseContext, completed map[int64]bool, deps GetCoursePlayerDeps) []SectionView {
	media := listMedia(ctx, cur, cc.CourseID, deps.Media)
	out := make([]SectionView, 0, len(cur.Sections))
	for _, s := range cur.Sections {
		sv := SectionView{Title: s.Title}
		for i, m := range s.Materials {
			sv.Lessons = append(sv.Lessons, LessonView{
				ID:        m.PostID,
				Number:    i + 1,
				Title:     m.Title,
				TypeLabel: m.TypeLabel(),
				Duration:  m.Duration,
				URL:       deps.URLs.LessonURL(cc.CourseID, m.PostID),
				Thumbnail: thumbnail.Resolve(ctx, media, m.PostID, cc.CourseID).URL,
				Completed: completed[m.PostID],
				Current:   m.PostID == cc.LessonID,
			})
		}
		out = append(out, sv)
	}
	return out
}

// listMedia preloads thumbnail data for every material and the course when
// the host supports it, so the lesson list does not read per row.
func listMedia(ctx context.Context, cur curriculum.Curriculum, courseID int64, media thumbnail.MediaLookup) thumbnail.MediaLookup {
	p, ok := media.(thumbnail.Preloader)
	if !ok {
		return media
	}
	snap, err := p.PreloadMedia(ctx, append(cur.MaterialIDs(), courseID))
	if err != nil {
		slog.WarnContext(ctx, "thumbnail_preload_failed", "course_id", courseID, "error", err.Error())
		return media
	}
	return snap
}

// firstLesson builds the preview card: lesson featured image, else course featured image.
func firstLesson(ctx context.Context, cur curriculum.Curriculum, c course.Course, cc route.CourseContext, completed map[int64]bool, deps GetCoursePlayerDeps) *LessonView {
	m, ok := cur.FirstMaterial()
	if !ok {
		return nil
	}
	img, err := deps.Media.FeaturedImageURL(ctx, m.PostID)
	if err != nil || !thumbnail.WellFormed(img) {
		img = c.FeaturedImage
	}
	return &LessonView{
		ID:        m.PostID,
		Number:    1,
		Title:     m.Title,
		TypeLabel: m.TypeLabel(),
		Duration:  m.Duration,
		URL:       deps.URLs.LessonURL(cc.CourseID, m.PostID),
		Thumbnail: img,
		Completed: completed[m.PostID],
		Current:   m.PostID == cc.LessonID,
	}
}
