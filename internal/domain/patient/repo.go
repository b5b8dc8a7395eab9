package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/htql"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	// Filter returns the patients matching pred, which may refer to the
	// patient's documents and conditions. A nil pred matches every patient.
	Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*Patient, int, error)
}
