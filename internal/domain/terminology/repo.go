package terminology

import "context"

// CodeRepository persists terminology codes.
type CodeRepository interface {
	// Search returns rows whose code starts with prefix or whose display
	// contains it. An empty system matches every code system.
	Search(ctx context.Context, prefix, system string, limit int) ([]*CodeEntry, error)
	Upsert(ctx context.Context, e *CodeEntry) error
}
