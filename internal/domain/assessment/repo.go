package assessment

import (
	"context"

	"github.com/google/uuid"
)

type ToolRepository interface {
	List(ctx context.Context, activeOnly bool) ([]*Tool, error)
	// GetByID returns the tool with its questions in order.
	GetByID(ctx context.Context, id uuid.UUID) (*Tool, error)
	FindByNameVersion(ctx context.Context, name, version string) (*Tool, error)
	// Create inserts the tool and its questions, assigning IDs.
	Create(ctx context.Context, t *Tool) error
}

type ResultRepository interface {
	Create(ctx context.Context, r *Result) error
	GetByID(ctx context.Context, id uuid.UUID) (*Result, error)
	// Update writes the result if its stored version_id still equals
	// r.VersionID, then increments r.VersionID. A stale version yields
	// ErrConflict.
	Update(ctx context.Context, r *Result) error
	// CacheTotal fills a null total_score without bumping the version.
	CacheTotal(ctx context.Context, id uuid.UUID, total float64) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Result, int, error)

	Responses(ctx context.Context, resultID uuid.UUID) ([]*Response, error)
	// ReplaceResponses deletes all responses of the result and inserts rs.
	ReplaceResponses(ctx context.Context, resultID uuid.UUID, rs []*Response) error
	DeleteResponses(ctx context.Context, resultID uuid.UUID) error
}
