package curriculum

import (
	"context"

	domain "courseplayer/internal/domain/curriculum"
)

// Store reads and writes the ordered section/material tree of a course.
type Store interface {
	GetCurriculum(ctx context.Context, courseID int64) (domain.Curriculum, error)
	AddSection(ctx context.Context, courseID int64, title string, position int) (int64, error)
	AddMaterial(ctx context.Context, sectionID, materialID int64, position int) error
}
