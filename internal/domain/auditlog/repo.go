package auditlog

import "context"

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	// Search matches q case-insensitively against action, resource type and
	// details, newest first. An empty q matches every entry.
	Search(ctx context.Context, q string, limit, offset int) ([]*Entry, int, error)
}
