package curriculum

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"courseplayer/internal/adapters/storage"
	"courseplayer/internal/adapters/storage/post"
	domain "courseplayer/internal/domain/curriculum"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new curriculum store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type itemRow struct {
	sectionID int64
	material  domain.Material
}

// GetCurriculum loads sections and their materials in stored order.
// Rows are fully read before the next query so a single connection suffices.
// PRE: courseID > 0
// POST: empty curriculum (not an error) when the course has no sections
func (s *SQLiteStore) GetCurriculum(ctx context.Context, courseID int64) (domain.Curriculum, error) {
	sectionIDs, sections, err := s.sections(ctx, courseID)
	if err != nil {
		return domain.Curriculum{}, err
	}
	if len(sections) == 0 {
		return domain.Curriculum{}, nil
	}

	items, err := s.items(ctx, courseID)
	if err != nil {
		return domain.Curriculum{}, err
	}
	meta, err := s.materialMeta(ctx, courseID)
	if err != nil {
		return domain.Curriculum{}, err
	}

	index := make(map[int64]int, len(sectionIDs))
	for i, id := range sectionIDs {
		index[id] = i
	}
	for _, it := range items {
		m := it.material
		applyMeta(&m, meta[m.PostID])
		i := index[it.sectionID]
		sections[i].Materials = append(sections[i].Materials, m)
	}
	return domain.Curriculum{Sections: sections}, nil
}

func (s *SQLiteStore) sections(ctx context.Context, courseID int64) ([]int64, []domain.Section, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title FROM course_section WHERE course_id = ? ORDER BY position, id", courseID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var ids []int64
	var out []domain.Section
	for rows.Next() {
		var id int64
		var sec domain.Section
		if err := rows.Scan(&id, &sec.Title); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		out = append(out, sec)
	}
	return ids, out, rows.Err()
}

func (s *SQLiteStore) items(ctx context.Context, courseID int64) ([]itemRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sm.section_id, p.id, p.post_type, p.title
		FROM section_material sm
		JOIN course_section cs ON cs.id = sm.section_id
		JOIN post p ON p.id = sm.material_id
		WHERE cs.course_id = ?
		ORDER BY cs.position, cs.id, sm.position`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []itemRow
	for rows.Next() {
		var it itemRow
		var postType string
		if err := rows.Scan(&it.sectionID, &it.material.PostID, &postType, &it.material.Title); err != nil {
			return nil, err
		}
		it.material.ContentType = contentType(postType)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) materialMeta(ctx context.Context, courseID int64) (map[int64]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pm.post_id, pm.meta_key, pm.meta_value
		FROM post_meta pm
		WHERE pm.meta_key IN (?, ?, ?, ?)
		AND pm.post_id IN (
			SELECT sm.material_id FROM section_material sm
			JOIN course_section cs ON cs.id = sm.section_id
			WHERE cs.course_id = ?
		)`,
		post.MetaDuration, post.MetaPreview, post.MetaStartDate, post.MetaDripDays, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]map[string]string)
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

func contentType(postType string) string {
	switch postType {
	case domain.TypeLesson, domain.TypeQuiz, domain.TypeAssignment:
		return postType
	default:
		return domain.TypeOther
	}
}

// applyMeta copies material settings from meta. Malformed values are ignored.
func applyMeta(m *domain.Material, meta map[string]string) {
	m.Duration = strings.TrimSpace(meta[post.MetaDuration])
	switch strings.ToLower(strings.TrimSpace(meta[post.MetaPreview])) {
	case "on", "1", "yes", "true":
		m.Preview = true
	}
	if v := strings.TrimSpace(meta[post.MetaStartDate]); v != "" {
		if t, err := storage.ParseTime(v); err == nil {
			m.LockStartsAt = t
		}
	}
	if days, err := strconv.Atoi(strings.TrimSpace(meta[post.MetaDripDays])); err == nil && days > 0 {
		m.DripDelay = time.Duration(days) * 24 * time.Hour
	}
}

// AddSection appends a section to a course.
// PRE: course post exists, title is non-empty
// POST: returns the new section ID
func (s *SQLiteStore) AddSection(ctx context.Context, courseID int64, title string, position int) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, domain.ErrEmptySectionName
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO course_section (course_id, title, position) VALUES (?, ?, ?)", courseID, title, position)
	if err != nil {
		return 0, fmt.Errorf("add section to course %d: %w", courseID, err)
	}
	return res.LastInsertId()
}

// AddMaterial places a material post at position inside a section.
// PRE: section and material post exist
func (s *SQLiteStore) AddMaterial(ctx context.Context, sectionID, materialID int64, position int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO section_material (section_id, material_id, position) VALUES (?, ?, ?)", sectionID, materialID, position)
	return err
}
