package session

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for Session aggregates.
type Repository interface {
	// FindByID retrieves a session by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// FindByIDForPatient retrieves a session owned by the given patient.
	FindByIDForPatient(ctx context.Context, id, patientID uuid.UUID) (*Session, error)

	// Save persists a new session aggregate.
	Save(ctx context.Context, s *Session) error

	// Update persists changes to an existing session with optimistic locking.
	Update(ctx context.Context, s *Session) error
}
