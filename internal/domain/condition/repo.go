package condition

import (
	"context"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/htql"
)

type Repository interface {
	Create(ctx context.Context, c *Condition) error
	GetByID(ctx context.Context, id uuid.UUID) (*Condition, error)
	Update(ctx context.Context, c *Condition) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Condition, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Condition, int, error)
	Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*Condition, int, error)
}
