package course

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"

	"courseplayer/internal/adapters/storage"
	"courseplayer/internal/adapters/storage/post"
	domain "courseplayer/internal/domain/course"
	"courseplayer/internal/domain/pricing"
	"courseplayer/internal/domain/route"
)

// SQLiteStore assembles courses from post rows and course meta.
type SQLiteStore struct {
	posts *post.SQLiteStore
}

// NewSQLiteStore creates a new course store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{posts: post.NewSQLiteStore(db)}
}

// GetCourse loads a course with its price and featured image.
// PRE: id > 0
// POST: Returns domain.ErrCourseNotFound when id is missing or not a course
func (s *SQLiteStore) GetCourse(ctx context.Context, id int64) (domain.Course, error) {
	p, err := s.posts.Get(ctx, id)
	if errors.Is(err, post.ErrNotFound) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.Course{}, err
	}
	if p.Type != route.PostTypeCourse {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return s.assemble(ctx, p)
}

// List returns every course ordered by ID.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Course, error) {
	posts, err := s.posts.List(ctx, route.PostTypeCourse)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Course, 0, len(posts))
	for _, p := range posts {
		c, err := s.assemble(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SQLiteStore) assemble(ctx context.Context, p post.Post) (domain.Course, error) {
	meta, err := s.posts.AllMeta(ctx, p.ID)
	if err != nil {
		return domain.Course{}, fmt.Errorf("course %d meta: %w", p.ID, err)
	}
	image, err := s.posts.FeaturedImageURL(ctx, p.ID)
	if err != nil {
		return domain.Course{}, err
	}
	return domain.Course{
		ID:            p.ID,
		Title:         p.Title,
		Excerpt:       p.Excerpt,
		Content:       p.Content,
		AuthorName:    p.AuthorName,
		FeaturedImage: image,
		Price:         priceFromMeta(meta),
	}, nil
}

// priceFromMeta reads the host price fields. Malformed values count as absent.
func priceFromMeta(meta map[string]string) pricing.Price {
	var p pricing.Price
	p.Amount, p.HasAmount = parseMoney(meta[post.MetaPrice])
	p.SaleAmount, p.HasSale = parseMoney(meta[post.MetaSalePrice])
	p.SaleStartsAt = parseDate(meta[post.MetaSaleStart])
	p.SaleEndsAt = parseDate(meta[post.MetaSaleEnd])
	return p
}

// parseMoney converts a decimal string such as "49.99" to minor units.
func parseMoney(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}

// parseDate accepts unix seconds or any storage.ParseTime layout.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC()
	}
	t, _ := storage.ParseTime(s)
	return t
}

// Resources lists course materials then course files.
// course_materials is a JSON array of {title, description, url}.
// course_files is a JSON array of attachment ids, {title, attachment_id} or {title, url, size}.
// POST: entries with no URL are skipped; unparseable meta yields no entries
func (s *SQLiteStore) Resources(ctx context.Context, courseID int64) ([]domain.Resource, error) {
	meta, err := s.posts.AllMeta(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var out []domain.Resource
	if raw := meta[post.MetaMaterials]; gjson.Valid(raw) {
		gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
			r := domain.Resource{
				Kind:        domain.ResourceMaterial,
				Title:       v.Get("title").String(),
				Description: v.Get("description").String(),
				URL:         v.Get("url").String(),
			}
			if r.URL != "" {
				out = append(out, r)
			}
			return true
		})
	}

	if raw := meta[post.MetaFiles]; gjson.Valid(raw) {
		var files []gjson.Result
		gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
			files = append(files, v)
			return true
		})
		for _, v := range files {
			r, err := s.fileResource(ctx, v)
			if err != nil {
				return nil, err
			}
			if r.URL != "" {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *SQLiteStore) fileResource(ctx context.Context, v gjson.Result) (domain.Resource, error) {
	r := domain.Resource{
		Kind:  domain.ResourceFile,
		Title: v.Get("title").String(),
		URL:   v.Get("url").String(),
	}
	size := v.Get("size").Int()

	id := v.Get("attachment_id").Int()
	switch v.Type {
	case gjson.Number:
		id = v.Int()
	case gjson.String:
		id, _ = strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
	}
	if id > 0 {
		a, err := s.posts.GetAttachment(ctx, id)
		if errors.Is(err, post.ErrNotFound) {
			return domain.Resource{}, nil
		}
		if err != nil {
			return domain.Resource{}, err
		}
		r.URL = a.URL
		size = a.SizeBytes
		if r.Title == "" {
			r.Title = a.Title
		}
	}
	if size > 0 {
		r.Size = humanize.Bytes(uint64(size))
	}
	return r, nil
}
