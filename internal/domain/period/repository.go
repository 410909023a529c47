package period

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for Period aggregates.
type Repository interface {
	// FindByID retrieves a period by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Period, error)

	// Save persists a new period aggregate.
	Save(ctx context.Context, p *Period) error

	// Update persists changes to an existing period with optimistic locking.
	Update(ctx context.Context, p *Period) error
}
