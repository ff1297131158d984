package production

import (
	"context"

	"bottleworks/internal/core/id"
)

// Repository defines persistence for production batches.
type Repository interface {
	Create(ctx context.Context, batch *Batch) error

	// GetByID returns a batch with its planned and actual lines.
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)

	// GetForUpdate returns the batch with a row lock. Must be called inside
	// a transaction; it serializes concurrent transitions on the same batch.
	GetForUpdate(ctx context.Context, batchID id.ID) (*Batch, error)

	// UpdateStatus persists the batch's lifecycle fields conditioned on the
	// status previously read (UPDATE ... WHERE id = $1 AND status = $2).
	// Zero rows means another request won the transition; returns
	// CONCURRENT_MODIFICATION.
	UpdateStatus(ctx context.Context, batch *Batch, expected Status) error

	// SaveActuals inserts the actual item and material lines of a completed
	// batch.
	SaveActuals(ctx context.Context, batch *Batch) error

	List(ctx context.Context, filter ListFilter) ([]*Batch, error)
}

// ListFilter narrows batch listings.
type ListFilter struct {
	Status    *Status
	ProductID *id.ID
	Limit     int
	Offset    int
}
