package lms

import (
	"context"
	"fmt"
	"strconv"

	"courseplayer/internal/adapters/storage/post"
	"courseplayer/internal/domain/thumbnail"
)

var _ thumbnail.Preloader = (*Host)(nil)

// PreloadMedia reads the featured image ids and thumbnail meta of postIDs,
// then their attachment URLs, in two queries.
// POST: the returned lookup reads through to the host only for other posts
func (h *Host) PreloadMedia(ctx context.Context, postIDs []int64) (thumbnail.MediaLookup, error) {
	keys := append([]string{post.MetaThumbnailID}, thumbnail.Keys()...)
	meta, err := h.posts.MetaForPosts(ctx, postIDs, keys)
	if err != nil {
		return nil, fmt.Errorf("preload media meta: %w", err)
	}

	known := make(map[int64]bool)
	var ids []int64
	for _, fields := range meta {
		for _, v := range fields {
			if id, ok := thumbnail.AttachmentID(v); ok && !known[id] {
				known[id] = true
				ids = append(ids, id)
			}
		}
	}
	urls, err := h.posts.AttachmentURLs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("preload attachments: %w", err)
	}

	posts := make(map[int64]bool, len(postIDs))
	for _, id := range postIDs {
		posts[id] = true
	}
	return &mediaSnapshot{posts: posts, meta: meta, known: known, urls: urls, host: h}, nil
}

// mediaSnapshot answers thumbnail lookups from preloaded rows.
type mediaSnapshot struct {
	posts map[int64]bool
	meta  map[int64]map[string]string
	known map[int64]bool // attachment ids looked up, found or not
	urls  map[int64]string
	host  *Host
}

func (m *mediaSnapshot) FeaturedImageURL(ctx context.Context, postID int64) (string, error) {
	if !m.posts[postID] {
		return m.host.FeaturedImageURL(ctx, postID)
	}
	id, err := strconv.ParseInt(m.meta[postID][post.MetaThumbnailID], 10, 64)
	if err != nil || id <= 0 {
		return "", nil
	}
	return m.AttachmentURL(ctx, id)
}

func (m *mediaSnapshot) Meta(ctx context.Context, postID int64, key string) (string, bool, error) {
	if !m.posts[postID] {
		return m.host.Meta(ctx, postID, key)
	}
	v, ok := m.meta[postID][key]
	return v, ok, nil
}

func (m *mediaSnapshot) AttachmentURL(ctx context.Context, attachmentID int64) (string, error) {
	if m.known[attachmentID] {
		return m.urls[attachmentID], nil
	}
	return m.host.AttachmentURL(ctx, attachmentID)
}
