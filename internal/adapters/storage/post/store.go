package post

import (
	"context"
	"errors"
	"time"
)

// Meta keys with a fixed meaning across post types.
const (
	MetaThumbnailID  = "_thumbnail_id"
	MetaDuration     = "duration"
	MetaPreview      = "preview"
	MetaStartDate    = "lesson_start_date"
	MetaDripDays     = "drip_days"
	MetaPrice        = "price"
	MetaSalePrice    = "sale_price"
	MetaSaleStart    = "sale_price_dates_start"
	MetaSaleEnd      = "sale_price_dates_end"
	MetaMaterials    = "course_materials"
	MetaFiles        = "course_files"
	MetaPassingGrade = "passing_grade"
)

// ErrNotFound is returned when a post or attachment does not exist.
var ErrNotFound = errors.New("post not found")

// Post is a raw host content record. Courses, lessons, quizzes and
// assignments all live in the same table, told apart by Type.
type Post struct {
	ID         int64
	Type       string
	Title      string
	Excerpt    string
	Content    string
	AuthorName string
	CreatedAt  time.Time
}

// Attachment is an uploaded media file.
type Attachment struct {
	ID        int64
	Title     string
	URL       string
	MimeType  string
	SizeBytes int64
}

// Store persists posts, their meta and attachments.
type Store interface {
	Get(ctx context.Context, id int64) (Post, error)
	Save(ctx context.Context, p Post) error
	List(ctx context.Context, postType string) ([]Post, error)
	Meta(ctx context.Context, postID int64, key string) (string, bool, error)
	AllMeta(ctx context.Context, postID int64) (map[string]string, error)
	MetaForPosts(ctx context.Context, postIDs []int64, keys []string) (map[int64]map[string]string, error)
	SetMeta(ctx context.Context, postID int64, key, value string) error
	GetAttachment(ctx context.Context, id int64) (Attachment, error)
	SaveAttachment(ctx context.Context, a Attachment) error
	AttachmentURL(ctx context.Context, id int64) (string, error)
	AttachmentURLs(ctx context.Context, ids []int64) (map[int64]string, error)
	FeaturedImageURL(ctx context.Context, postID int64) (string, error)
}
