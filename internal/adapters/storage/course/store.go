package course

import (
	"context"

	domain "courseplayer/internal/domain/course"
)

// Store reads courses and their downloadable resources.
type Store interface {
	GetCourse(ctx context.Context, id int64) (domain.Course, error)
	List(ctx context.Context) ([]domain.Course, error)
	Resources(ctx context.Context, courseID int64) ([]domain.Resource, error)
}
