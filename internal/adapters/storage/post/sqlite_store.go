package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"courseplayer/internal/adapters/storage"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new post store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves a post by ID.
// PRE: id > 0
// POST: Returns the post or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, id int64) (Post, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, post_type, title, excerpt, content, author_name, created_at FROM post WHERE id = ?", id)
	p, err := scanPost(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

// Save inserts or updates a post.
// PRE: p.ID > 0, p.Type and p.Title are non-empty
// POST: post row reflects p
func (s *SQLiteStore) Save(ctx context.Context, p Post) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO post (id, post_type, title, excerpt, content, author_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			post_type=excluded.post_type,
			title=excluded.title,
			excerpt=excluded.excerpt,
			content=excluded.content,
			author_name=excluded.author_name`,
		p.ID, p.Type, p.Title, p.Excerpt, p.Content, p.AuthorName, storage.FormatTime(p.CreatedAt),
	)
	return err
}

// List returns every post of postType ordered by ID.
func (s *SQLiteStore) List(ctx context.Context, postType string) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, post_type, title, excerpt, content, author_name, created_at FROM post WHERE post_type = ? ORDER BY id", postType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Meta returns the stored value for key, or ok=false when absent.
func (s *SQLiteStore) Meta(ctx context.Context, postID int64, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		"SELECT meta_value FROM post_meta WHERE post_id = ? AND meta_key = ?", postID, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// AllMeta returns every meta value of a post keyed by meta key.
// POST: never returns a nil map on success
func (s *SQLiteStore) AllMeta(ctx context.Context, postID int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT meta_key, meta_value FROM post_meta WHERE post_id = ?", postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// MetaForPosts reads the given keys for many posts in one query.
// PRE: none
// POST: posts holding none of the keys are absent from the result
func (s *SQLiteStore) MetaForPosts(ctx context.Context, postIDs []int64, keys []string) (map[int64]map[string]string, error) {
	out := make(map[int64]map[string]string)
	if len(postIDs) == 0 || len(keys) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(postIDs)+len(keys))
	for _, id := range postIDs {
		args = append(args, id)
	}
	for _, k := range keys {
		args = append(args, k)
	}

	query := fmt.Sprintf(
		`SELECT post_id, meta_key, meta_value FROM post_meta WHERE post_id IN (%s) AND meta_key IN (%s)`,
		placeholders(len(postIDs)), placeholders(len(keys)),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var k, v string
		if err := rows.Scan(&id, &k, &v); err != nil {
			return nil, err
		}
		if out[id] == nil {
			out[id] = make(map[string]string)
		}
		out[id][k] = v
	}
	return out, rows.Err()
}

// SetMeta upserts one meta value.
// PRE: the post exists
func (s *SQLiteStore) SetMeta(ctx context.Context, postID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES (?, ?, ?)
		ON CONFLICT(post_id, meta_key) DO UPDATE SET meta_value=excluded.meta_value`,
		postID, key, value)
	return err
}

// GetAttachment retrieves an attachment by ID.
// POST: Returns the attachment or ErrNotFound
func (s *SQLiteStore) GetAttachment(ctx context.Context, id int64) (Attachment, error) {
	var a Attachment
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, url, mime_type, size_bytes FROM attachment WHERE id = ?", id,
	).Scan(&a.ID, &a.Title, &a.URL, &a.MimeType, &a.SizeBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return Attachment{}, ErrNotFound
	}
	return a, err
}

// SaveAttachment inserts or updates an attachment.
// PRE: a.ID > 0, a.URL is non-empty
func (s *SQLiteStore) SaveAttachment(ctx context.Context, a Attachment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO attachment (id, title, url, mime_type, size_bytes) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			url=excluded.url,
			mime_type=excluded.mime_type,
			size_bytes=excluded.size_bytes`,
		a.ID, a.Title, a.URL, a.MimeType, a.SizeBytes)
	return err
}

// AttachmentURL returns the URL of an attachment, or "" when it does not exist.
func (s *SQLiteStore) AttachmentURL(ctx context.Context, id int64) (string, error) {
	a, err := s.GetAttachment(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return a.URL, nil
}

// AttachmentURLs returns the URLs of the attachments that exist among ids.
// POST: missing attachments are absent from the result
func (s *SQLiteStore) AttachmentURLs(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, url FROM attachment WHERE id IN (%s)`, placeholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			return nil, err
		}
		out[id] = url
	}
	return out, rows.Err()
}

// FeaturedImageURL resolves the post's _thumbnail_id to an attachment URL.
// POST: "" with nil error when the post has no usable featured image
func (s *SQLiteStore) FeaturedImageURL(ctx context.Context, postID int64) (string, error) {
	raw, ok, err := s.Meta(ctx, postID, MetaThumbnailID)
	if err != nil || !ok {
		return "", err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", nil
	}
	url, err := s.AttachmentURL(ctx, id)
	if err != nil {
		return "", fmt.Errorf("featured image of post %d: %w", postID, err)
	}
	return url, nil
}

func scanPost(scan func(dest ...any) error) (Post, error) {
	var p Post
	var createdAt string
	if err := scan(&p.ID, &p.Type, &p.Title, &p.Excerpt, &p.Content, &p.AuthorName, &createdAt); err != nil {
		return Post{}, err
	}
	p.CreatedAt, _ = storage.ParseTime(createdAt)
	return p, nil
}

func placeholders(n int) string {
	p := make([]string, n)
	for i := range p {
		p[i] = "?"
	}
	return strings.Join(p, ",")
}
