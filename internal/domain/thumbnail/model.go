package thumbnail

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// BannerField is the primary lesson banner meta key.
const BannerField = "lesson_banner"

// AlternateFields are probed in this order when the banner is unusable.
var AlternateFields = []string{
	"lesson_video_poster",
	"video_poster",
	"lesson_image",
	"stm_lesson_banner",
	"lesson_thumbnail",
}

// Source names recorded on a Resolution.
const (
	SourceLessonFeatured = "lesson_featured"
	SourceCourseFeatured = "course_featured"
	SourceNone           = "none"
)

// MediaLookup is the host media capability used by Resolve.
type MediaLookup interface {
	FeaturedImageURL(ctx context.Context, postID int64) (string, error)
	// Meta returns the raw stored value for key, or ok=false when absent.
	Meta(ctx context.Context, postID int64, key string) (value string, ok bool, err error)
	AttachmentURL(ctx context.Context, attachmentID int64) (string, error)
}

// Preloader is implemented by hosts that can read media for many posts at once.
type Preloader interface {
	// PreloadMedia returns a lookup that answers for postIDs without further reads.
	PreloadMedia(ctx context.Context, postIDs []int64) (MediaLookup, error)
}

// Keys returns every lesson meta key Resolve may read, in probe order.
func Keys() []string {
	return append([]string{BannerField}, AlternateFields...)
}

// AttachmentID extracts an attachment id from a raw meta value: a bare
// number or a JSON string holding one.
func AttachmentID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if v := gjson.Parse(raw); gjson.Valid(raw) && v.Type == gjson.String {
		raw = strings.TrimSpace(v.Str)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}

// Resolution is the chosen thumbnail for a lesson.
type Resolution struct {
	URL    string
	Source string   // SourceLessonFeatured, a meta field name, SourceCourseFeatured or SourceNone
	Trace  []string // one line per probe, for diagnostics
}

// Found returns true when a URL was resolved.
func (r Resolution) Found() bool {
	return r.URL != ""
}

// Resolve walks the fallback chain for lessonID and returns the first usable URL.
// Lookup errors and malformed values skip to the next candidate.
// PRE: media is non-nil
// POST: URL is empty only when every candidate failed
func Resolve(ctx context.Context, media MediaLookup, lessonID, courseID int64) Resolution {
	var res Resolution

	if u := featured(ctx, media, lessonID, &res, "lesson featured image"); u != "" {
		res.URL, res.Source = u, SourceLessonFeatured
		return res
	}

	for _, field := range Keys() {
		raw, ok, err := media.Meta(ctx, lessonID, field)
		switch {
		case err != nil:
			res.Trace = append(res.Trace, fmt.Sprintf("%s: lookup error: %v", field, err))
			continue
		case !ok || strings.TrimSpace(raw) == "":
			res.Trace = append(res.Trace, field+": empty")
			continue
		}
		u, why := Normalize(ctx, media, raw)
		if u == "" {
			res.Trace = append(res.Trace, field+": "+why)
			continue
		}
		res.Trace = append(res.Trace, field+": "+u)
		res.URL, res.Source = u, field
		return res
	}

	if u := featured(ctx, media, courseID, &res, "course featured image"); u != "" {
		res.URL, res.Source = u, SourceCourseFeatured
		return res
	}

	res.Source = SourceNone
	return res
}

func featured(ctx context.Context, media MediaLookup, postID int64, res *Resolution, label string) string {
	if postID <= 0 {
		res.Trace = append(res.Trace, label+": no post")
		return ""
	}
	u, err := media.FeaturedImageURL(ctx, postID)
	if err != nil {
		res.Trace = append(res.Trace, fmt.Sprintf("%s: lookup error: %v", label, err))
		return ""
	}
	if !WellFormed(u) {
		res.Trace = append(res.Trace, label+": empty")
		return ""
	}
	res.Trace = append(res.Trace, label+": "+u)
	return u
}

// Normalize converts a raw meta value to a URL. Accepted shapes are a JSON
// object with a "url" field, a bare URL string, or a numeric attachment id.
// Returns "" and a short reason when the value cannot be used.
// PRE: media is non-nil
// POST: a non-empty result is WellFormed
func Normalize(ctx context.Context, media MediaLookup, raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "empty"
	}

	if gjson.Valid(raw) {
		v := gjson.Parse(raw)
		switch v.Type {
		case gjson.JSON:
			if !v.IsObject() {
				return "", "unexpected array"
			}
			u := strings.TrimSpace(v.Get("url").String())
			if !WellFormed(u) {
				return "", "object without usable url"
			}
			return u, ""
		case gjson.String:
			raw = strings.TrimSpace(v.Str)
		}
	}

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if id <= 0 {
			return "", "invalid attachment id"
		}
		u, err := media.AttachmentURL(ctx, id)
		if err != nil {
			return "", fmt.Sprintf("attachment %d: %v", id, err)
		}
		if !WellFormed(u) {
			return "", fmt.Sprintf("attachment %d has no url", id)
		}
		return u, ""
	}

	if WellFormed(raw) {
		return raw, ""
	}
	return "", "not a url"
}

// WellFormed reports whether s is an absolute http(s) URL or a root-relative path.
func WellFormed(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		_, err := url.ParseRequestURI(s)
		return err == nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
