// Package production provides the production batch lifecycle: planning,
// execution, and the one-shot stock reconciliation on completion.
package production

import (
	"context"
	"time"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

// Status is the batch lifecycle state. Transitions are forward-only; no
// status may be revisited.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo encodes the legal edges:
// planned -> in_progress, planned -> cancelled,
// in_progress -> completed, in_progress -> cancelled.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPlanned:
		return next == StatusInProgress || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

// PlannedItem is one target line: how many units of a bottle type to produce.
type PlannedItem struct {
	BottleTypeID id.ID          `db:"bottle_type_id" json:"bottleTypeId"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
}

// ActualItem is one produced line, reported at completion.
type ActualItem struct {
	BottleTypeID id.ID          `db:"bottle_type_id" json:"bottleTypeId"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	Defects      types.Quantity `db:"defects" json:"defects"`
}

// MaterialUsage is one raw-material consumption line, reported at completion.
type MaterialUsage struct {
	MaterialID   id.ID          `db:"material_id" json:"materialId"`
	QuantityUsed types.Quantity `db:"quantity_used" json:"quantityUsed"`
}

// Quality holds the completion quality fields.
type Quality struct {
	Grade string `db:"quality_grade" json:"grade,omitempty"`
	Notes string `db:"quality_notes" json:"notes,omitempty"`
}

// Batch is one planned/executed production run.
//
// Invariant: ActualItems/ActualMaterials are set iff Status is completed;
// the lifecycle timestamps that are set increase monotonically.
type Batch struct {
	ID        id.ID  `db:"id" json:"id"`
	HumanID   string `db:"human_id" json:"humanId"`
	ProductID id.ID  `db:"product_id" json:"productId"`

	Status Status `db:"status" json:"status"`

	PlannedItems    []PlannedItem   `db:"-" json:"plannedItems"`
	ActualItems     []ActualItem    `db:"-" json:"actualItems,omitempty"`
	ActualMaterials []MaterialUsage `db:"-" json:"actualMaterials,omitempty"`

	Quality Quality `db:"-" json:"quality,omitempty"`

	PlannedAt time.Time `db:"planned_at" json:"plannedAt"`
	PlannedBy string    `db:"planned_by" json:"plannedBy"`

	StartedAt *time.Time `db:"started_at" json:"startedAt,omitempty"`
	StartedBy string     `db:"started_by" json:"startedBy,omitempty"`

	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CompletedBy string     `db:"completed_by" json:"completedBy,omitempty"`

	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy  string     `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelReason string     `db:"cancel_reason" json:"cancelReason,omitempty"`

	// Version for optimistic locking on lifecycle writes
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBatch creates a planned batch.
func NewBatch(productID id.ID, humanID string, items []PlannedItem, plannedBy string) *Batch {
	now := time.Now().UTC()
	return &Batch{
		ID:           id.New(),
		HumanID:      humanID,
		ProductID:    productID,
		Status:       StatusPlanned,
		PlannedItems: items,
		PlannedAt:    now,
		PlannedBy:    plannedBy,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks planning invariants.
func (b *Batch) Validate(ctx context.Context) error {
	if id.IsNil(b.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if len(b.PlannedItems) == 0 {
		return apperror.NewValidation("at least one planned item is required").
			WithDetail("field", "plannedItems")
	}
	for i, item := range b.PlannedItems {
		if id.IsNil(item.BottleTypeID) {
			return apperror.NewValidation("bottle type is required").
				WithDetail("field", "plannedItems").
				WithDetail("lineNo", i+1)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("planned quantity must be positive").
				WithDetail("field", "plannedItems").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// guard returns InvalidTransition unless the edge Status -> next is legal.
func (b *Batch) guard(next Status) error {
	if !b.Status.CanTransitionTo(next) {
		return apperror.NewInvalidTransition(b.ID.String(), string(b.Status), string(next))
	}
	return nil
}

// MarkStarted flips planned -> in_progress. No resource effect: actual
// consumption may differ from plan, so nothing is committed yet.
func (b *Batch) MarkStarted(actorID string, at time.Time) error {
	if err := b.guard(StatusInProgress); err != nil {
		return err
	}
	b.Status = StatusInProgress
	b.StartedAt = &at
	b.StartedBy = actorID
	b.touch(at)
	return nil
}

// MarkCompleted flips in_progress -> completed and attaches the actual lines.
// Resource postings are the caller's responsibility and must share the
// transaction with the status write.
func (b *Batch) MarkCompleted(actorID string, at time.Time, items []ActualItem, materials []MaterialUsage, quality Quality) error {
	if err := b.guard(StatusCompleted); err != nil {
		return err
	}
	if len(items) == 0 {
		return apperror.NewValidation("actual items are required").
			WithDetail("field", "actualItems")
	}
	b.Status = StatusCompleted
	b.ActualItems = items
	b.ActualMaterials = materials
	b.Quality = quality
	b.CompletedAt = &at
	b.CompletedBy = actorID
	b.touch(at)
	return nil
}

// MarkCancelled flips planned/in_progress -> cancelled. No resource effect,
// also from in_progress: started-but-abandoned batches committed no stock.
func (b *Batch) MarkCancelled(actorID string, at time.Time, reason string) error {
	if err := b.guard(StatusCancelled); err != nil {
		return err
	}
	b.Status = StatusCancelled
	b.CancelledAt = &at
	b.CancelledBy = actorID
	b.CancelReason = reason
	b.touch(at)
	return nil
}

func (b *Batch) touch(at time.Time) {
	b.UpdatedAt = at
	b.Version++
}
