package production

import (
	"context"
	"fmt"
	"time"

	"bottleworks/internal/core/actor"
	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/tx"
	"bottleworks/internal/domain/inventory"
	"bottleworks/pkg/batchid"
	"bottleworks/pkg/logger"
)

// Auditor records batch transitions. Implemented by the postgres audit
// service; writes share the ambient transaction.
type Auditor interface {
	Log(ctx context.Context, entityType string, entityID id.ID, action, actorID string, changes any) error
}

// NopAuditor discards audit entries. Used in tests.
type NopAuditor struct{}

func (NopAuditor) Log(ctx context.Context, entityType string, entityID id.ID, action, actorID string, changes any) error {
	return nil
}

// Service drives the batch lifecycle. Completion is the only operation with
// resource effects: it posts every bottle deduction and every per-lot
// material deduction inside one transaction, so a failure anywhere leaves no
// partial deduction and the batch stays in_progress.
type Service struct {
	repo      Repository
	accounts  inventory.AccountRepository
	ledger    *inventory.Ledger
	allocator *inventory.LotAllocator
	ids       *batchid.Service
	txm       tx.Manager
	events    inventory.EventPublisher
	audit     Auditor
}

// NewService creates the production service.
func NewService(
	repo Repository,
	accounts inventory.AccountRepository,
	ledger *inventory.Ledger,
	allocator *inventory.LotAllocator,
	ids *batchid.Service,
	txm tx.Manager,
	events inventory.EventPublisher,
	audit Auditor,
) *Service {
	if events == nil {
		events = inventory.NopPublisher{}
	}
	if audit == nil {
		audit = NopAuditor{}
	}
	return &Service{
		repo:      repo,
		accounts:  accounts,
		ledger:    ledger,
		allocator: allocator,
		ids:       ids,
		txm:       txm,
		events:    events,
		audit:     audit,
	}
}

// Plan creates a batch in planned state. The human id comes from the
// year-scoped sequence; id allocation runs before the transaction, the way
// document numbering does elsewhere, since an abandoned number is harmless.
func (s *Service) Plan(ctx context.Context, productID id.ID, items []PlannedItem) (*Batch, error) {
	actorID := actor.UserID(ctx)

	humanID := s.ids.Next(ctx, time.Now().UTC().Year())
	batch := NewBatch(productID, humanID, items, actorID)
	if err := batch.Validate(ctx); err != nil {
		return nil, err
	}

	// Every planned line must reference an existing bottle account; a typo
	// here would otherwise only surface at completion.
	for _, item := range items {
		account, err := s.accounts.GetByID(ctx, item.BottleTypeID)
		if err != nil {
			return nil, err
		}
		if account.Kind != inventory.AccountKindBottle {
			return nil, apperror.NewValidation("planned item must reference a bottle account").
				WithDetail("account_id", item.BottleTypeID.String()).
				WithDetail("kind", string(account.Kind))
		}
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		return s.audit.Log(ctx, "ProductionBatch", batch.ID, "plan", actorID, batch)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "production batch planned",
		"batch_id", batch.ID,
		"human_id", batch.HumanID,
		"items", len(items),
	)
	return batch, nil
}

// Start flips a planned batch to in_progress. No resource effect.
func (s *Service) Start(ctx context.Context, batchID id.ID) (*Batch, error) {
	actorID := actor.UserID(ctx)

	var batch *Batch
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}

		expected := batch.Status
		if err := batch.MarkStarted(actorID, time.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, batch, expected); err != nil {
			return err
		}
		return s.audit.Log(ctx, "ProductionBatch", batch.ID, "start", actorID, map[string]any{
			"status": batch.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "production batch started", "batch_id", batchID, "human_id", batch.HumanID)
	return batch, nil
}

// Complete posts the batch's resource deductions and flips it to completed,
// all in one transaction:
//
//   - per actual item, a production_consumption entry on the bottle account
//   - per actual material, a FIFO lot consume plus one production_consumption
//     entry per lot touched, each carrying that lot's unit cost
//   - actual lines, quality fields and the status write
//
// Any insufficiency or conflict rolls the whole set back; the caller may
// safely retry the entire call. The returned error names the offending
// account.
func (s *Service) Complete(ctx context.Context, batchID id.ID, items []ActualItem, materials []MaterialUsage, quality Quality) (*Batch, error) {
	actorID := actor.UserID(ctx)

	if len(items) == 0 {
		return nil, apperror.NewValidation("actual items are required").
			WithDetail("field", "actualItems")
	}
	for i, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, apperror.NewValidation("actual quantity must be positive").
				WithDetail("field", "actualItems").
				WithDetail("lineNo", i+1)
		}
		if item.Defects.IsNegative() {
			return nil, apperror.NewValidation("defects cannot be negative").
				WithDetail("field", "actualItems").
				WithDetail("lineNo", i+1)
		}
	}
	for i, usage := range materials {
		if !usage.QuantityUsed.IsPositive() {
			return nil, apperror.NewValidation("material usage must be positive").
				WithDetail("field", "actualMaterials").
				WithDetail("lineNo", i+1)
		}
	}

	var batch *Batch
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status != StatusInProgress {
			return apperror.NewInvalidTransition(batch.ID.String(), string(batch.Status), string(StatusCompleted))
		}

		for _, item := range items {
			if _, err := s.ledger.Record(ctx, item.BottleTypeID, inventory.TransactionProductionConsumption, item.Quantity, nil, batch.HumanID); err != nil {
				return err
			}
		}

		for _, usage := range materials {
			deductions, err := s.allocator.Consume(ctx, usage.MaterialID, usage.QuantityUsed, batch.HumanID)
			if err != nil {
				return err
			}
			if _, err := s.ledger.RecordLotConsumption(ctx, usage.MaterialID, inventory.TransactionProductionConsumption, deductions, batch.HumanID); err != nil {
				return err
			}
		}

		if err := batch.MarkCompleted(actorID, time.Now().UTC(), items, materials, quality); err != nil {
			return err
		}
		if err := s.repo.SaveActuals(ctx, batch); err != nil {
			return fmt.Errorf("save actuals: %w", err)
		}
		if err := s.repo.UpdateStatus(ctx, batch, StatusInProgress); err != nil {
			return err
		}

		event := inventory.Event{
			AggregateType: "ProductionBatch",
			AggregateID:   batch.ID,
			EventType:     inventory.EventBatchCompleted,
			Payload: map[string]any{
				"batchId":   batch.ID.String(),
				"humanId":   batch.HumanID,
				"productId": batch.ProductID.String(),
				"items":     items,
				"materials": materials,
			},
		}
		if err := s.events.Publish(ctx, event); err != nil {
			return fmt.Errorf("publish completion event: %w", err)
		}
		return s.audit.Log(ctx, "ProductionBatch", batch.ID, "complete", actorID, map[string]any{
			"items":     items,
			"materials": materials,
			"quality":   quality,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "production batch completed",
		"batch_id", batchID,
		"human_id", batch.HumanID,
		"items", len(items),
		"materials", len(materials),
	)
	return batch, nil
}

// Cancel flips a planned or in_progress batch to cancelled. No resource
// effect, also from in_progress.
func (s *Service) Cancel(ctx context.Context, batchID id.ID, reason string) (*Batch, error) {
	actorID := actor.UserID(ctx)

	if reason == "" {
		return nil, apperror.NewValidation("cancellation reason is required").
			WithDetail("field", "reason")
	}

	var batch *Batch
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}

		expected := batch.Status
		if err := batch.MarkCancelled(actorID, time.Now().UTC(), reason); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, batch, expected); err != nil {
			return err
		}

		event := inventory.Event{
			AggregateType: "ProductionBatch",
			AggregateID:   batch.ID,
			EventType:     inventory.EventBatchCancelled,
			Payload: map[string]any{
				"batchId": batch.ID.String(),
				"humanId": batch.HumanID,
				"reason":  reason,
			},
		}
		if err := s.events.Publish(ctx, event); err != nil {
			return fmt.Errorf("publish cancellation event: %w", err)
		}
		return s.audit.Log(ctx, "ProductionBatch", batch.ID, "cancel", actorID, map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "production batch cancelled", "batch_id", batchID, "reason", reason)
	return batch, nil
}

// Get returns a batch with its lines.
func (s *Service) Get(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.GetByID(ctx, batchID)
}

// List returns batches matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Batch, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}
