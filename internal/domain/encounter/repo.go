package encounter

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists encounters as aggregates: every write covers the
// encounter and its conditions and medications atomically.
type Repository interface {
	// Create inserts the encounter and its children.
	Create(ctx context.Context, enc *Encounter) error
	// GetByID loads the encounter with its children.
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	// ListBySubject returns a patient's encounters, newest first.
	ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*Encounter, int, error)
	// Update rewrites the scalar fields, deletes the stored conditions and
	// medications and inserts enc's. Children that already carry an ID keep it.
	Update(ctx context.Context, enc *Encounter) error
	// Delete removes the children and then the encounter.
	Delete(ctx context.Context, id uuid.UUID) error
}
