package user

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrDuplicateUsername or ErrDuplicateEmail on a unique
	// violation.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}
