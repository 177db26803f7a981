package practitioner

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Practitioner) error
	GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*Practitioner, error)
}
