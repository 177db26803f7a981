package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patients and their allergies. Lookups return an
// apperr.NotFoundError when nothing matches.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByDocument(ctx context.Context, document string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)

	// Allergies
	AddAllergy(ctx context.Context, a *Allergy) error
	ListAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error)
	RemoveAllergy(ctx context.Context, patientID, allergyID uuid.UUID) error
}
