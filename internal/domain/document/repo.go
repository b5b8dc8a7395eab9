package document

import (
	"context"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/htql"
)

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// Update writes every mutable column including the analysis.
	Update(ctx context.Context, d *Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Document, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error)
	Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*Document, int, error)
}
