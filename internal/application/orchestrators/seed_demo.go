package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"courseplayer/internal/adapters/storage/post"
)

// DemoPostStore is the post capability needed to seed the demo catalog.
type DemoPostStore interface {
	List(ctx context.Context, postType string) ([]post.Post, error)
	Save(ctx context.Context, p post.Post) error
	SetMeta(ctx context.Context, postID int64, key, value string) error
	SaveAttachment(ctx context.Context, a post.Attachment) error
}

// DemoCurriculumStore is the curriculum capability needed to seed the demo catalog.
type DemoCurriculumStore interface {
	AddSection(ctx context.Context, courseID int64, title string, position int) (int64, error)
	AddMaterial(ctx context.Context, sectionID, materialID int64, position int) error
}

// DemoQuizStore is the quiz capability needed to seed the demo catalog.
type DemoQuizStore interface {
	AddQuestion(ctx context.Context, quizID int64, prompt string, position int) error
}

// SeedDemoDeps holds stores needed for demo catalog seeding.
type SeedDemoDeps struct {
	Posts     DemoPostStore
	Curricula DemoCurriculumStore
	Quizzes   DemoQuizStore
}

type demoMaterial struct {
	post post.Post
	meta map[string]string
}

type demoSection struct {
	title     string
	materials []demoMaterial
}

type demoCourse struct {
	course   post.Post
	meta     map[string]string
	sections []demoSection
}

func demoAttachments() []post.Attachment {
	return []post.Attachment{
		{ID: 900, Title: "Course cover", URL: "/static/img/demo-cover.svg", MimeType: "image/svg+xml"},
		{ID: 901, Title: "Breathing banner", URL: "/static/img/demo-breathing.svg", MimeType: "image/svg+xml"},
		{ID: 902, Title: "Practice workbook", URL: "/static/files/workbook.pdf", MimeType: "application/pdf", SizeBytes: 2_482_113},
	}
}

func demoCatalog() []demoCourse {
	return []demoCourse{
		{
			course: post.Post{
				ID:         100,
				Type:       "course",
				Title:      "Mindful Foundations",
				Excerpt:    "A short course on attention, breath and rest.",
				Content:    "Learn to **settle the mind** in ten minutes a day.\n\n- Breath awareness\n- Body scan\n- Daily practice",
				AuthorName: "Ana Silva",
			},
			meta: map[string]string{
				post.MetaThumbnailID: "900",
				post.MetaPrice:       "49",
				post.MetaSalePrice:   "29",
				post.MetaMaterials:   `[{"title":"Reading list","description":"Books referenced in the lessons","url":"https://example.com/reading"}]`,
				post.MetaFiles:       `[{"attachment_id":902}]`,
			},
			sections: []demoSection{
				{title: "Getting started", materials: []demoMaterial{
					{
						post: post.Post{ID: 101, Type: "lesson", Title: "Welcome", Content: "Welcome to the course. Find a quiet place and *begin*."},
						meta: map[string]string{post.MetaDuration: "5 mins", post.MetaPreview: "on"},
					},
					{
						post: post.Post{ID: 102, Type: "lesson", Title: "Breath awareness", Content: "Count ten breaths. Start again when you lose count."},
						meta: map[string]string{post.MetaDuration: "12 mins", "lesson_banner": "901"},
					},
				}},
				{title: "Going deeper", materials: []demoMaterial{
					{
						post: post.Post{ID: 103, Type: "lesson", Title: "Body scan", Content: "Move attention slowly from head to toe."},
						meta: map[string]string{post.MetaDuration: "20 mins", post.MetaDripDays: "7"},
					},
					{
						post: post.Post{ID: 104, Type: "quiz", Title: "Check your understanding"},
						meta: map[string]string{post.MetaPassingGrade: "60"},
					},
				}},
			},
		},
		{
			course: post.Post{
				ID:         200,
				Type:       "course",
				Title:      "Sleep Reset",
				Excerpt:    "Free evening routine for better sleep.",
				AuthorName: "Ana Silva",
			},
			sections: []demoSection{
				{title: "Evening routine", materials: []demoMaterial{
					{
						post: post.Post{ID: 201, Type: "lesson", Title: "Wind down", Content: "Dim the lights an hour before bed."},
						meta: map[string]string{post.MetaDuration: "8 mins"},
					},
				}},
			},
		},
	}
}

// ExecuteSeedDemoCatalog writes the demo courses when the catalog is empty.
// PRE: Database is migrated
// POST: demo courses, curricula, meta and quiz questions exist; no-op when any course exists
func ExecuteSeedDemoCatalog(ctx context.Context, deps SeedDemoDeps, now time.Time) error {
	existing, err := deps.Posts.List(ctx, "course")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, a := range demoAttachments() {
		if err := deps.Posts.SaveAttachment(ctx, a); err != nil {
			return fmt.Errorf("attachment %d: %w", a.ID, err)
		}
	}

	for _, dc := range demoCatalog() {
		if err := savePost(ctx, deps.Posts, dc.course, dc.meta, now); err != nil {
			return err
		}
		for si, ds := range dc.sections {
			sectionID, err := deps.Curricula.AddSection(ctx, dc.course.ID, ds.title, si+1)
			if err != nil {
				return err
			}
			for mi, dm := range ds.materials {
				if err := savePost(ctx, deps.Posts, dm.post, dm.meta, now); err != nil {
					return err
				}
				if err := deps.Curricula.AddMaterial(ctx, sectionID, dm.post.ID, mi+1); err != nil {
					return fmt.Errorf("material %d: %w", dm.post.ID, err)
				}
				if dm.post.Type == "quiz" {
					for qi, prompt := range []string{"What do you count in breath awareness?", "Where does the body scan start?"} {
						if err := deps.Quizzes.AddQuestion(ctx, dm.post.ID, prompt, qi+1); err != nil {
							return err
						}
					}
				}
			}
		}
		slog.Info("seed_event", "event", "demo_course_seeded", "course_id", dc.course.ID, "title", dc.course.Title)
	}
	return nil
}

func savePost(ctx context.Context, posts DemoPostStore, p post.Post, meta map[string]string, now time.Time) error {
	p.CreatedAt = now
	if err := posts.Save(ctx, p); err != nil {
		return fmt.Errorf("post %d: %w", p.ID, err)
	}
	for k, v := range meta {
		if err := posts.SetMeta(ctx, p.ID, k, v); err != nil {
			return fmt.Errorf("post %d meta %s: %w", p.ID, k, err)
		}
	}
	return nil
}
