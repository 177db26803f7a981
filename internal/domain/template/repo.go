package template

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	List(ctx context.Context, f ListFilter) ([]*Template, int, error)
	// MatchDiagnosis returns the best visible template whose diagnosis
	// contains the query, or a not found error.
	MatchDiagnosis(ctx context.Context, practitionerID uuid.UUID, diagnosis string) (*Template, error)
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
}
