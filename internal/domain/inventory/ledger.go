package inventory

import (
	"context"
	"fmt"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/tx"
	"bottleworks/internal/core/types"
	"bottleworks/pkg/logger"
)

// Ledger appends stock transactions and applies their numeric effect to the
// owning account as one unit. It is the only writer of account quantities:
// every purchase, consumption and damage flows through Record, so the
// non-negativity invariant has a single enforcement point.
type Ledger struct {
	accounts AccountRepository
	txns     TransactionRepository
	txm      tx.Manager
	events   EventPublisher
}

// NewLedger creates a ledger. events may be NopPublisher{} for tools that
// run without an outbox.
func NewLedger(accounts AccountRepository, txns TransactionRepository, txm tx.Manager, events EventPublisher) *Ledger {
	if events == nil {
		events = NopPublisher{}
	}
	return &Ledger{
		accounts: accounts,
		txns:     txns,
		txm:      txm,
		events:   events,
	}
}

// Record posts one ledger entry and updates the account total.
//
// The entry insert and the account update happen in one transaction; when an
// ambient transaction exists (batch completion), Record joins it, so a later
// failure in the same unit rolls this posting back too. On INSUFFICIENT_STOCK
// nothing is written.
func (l *Ledger) Record(ctx context.Context, accountID id.ID, kind TransactionKind, quantity types.Quantity, unitCost *types.Money, reference string) (*StockTransaction, error) {
	if !kind.Valid() {
		return nil, apperror.NewValidation("unknown transaction kind").
			WithDetail("kind", string(kind))
	}
	if !quantity.IsPositive() {
		return nil, apperror.NewInvalidQuantity(quantity.String())
	}

	var txn *StockTransaction
	err := l.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		account, err := l.accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		signed := quantity
		if kind.Consuming() {
			signed = quantity.Neg()
		}

		wasBelow := account.BelowThreshold()
		expectedVersion := account.Version

		if err := account.Apply(signed); err != nil {
			return err
		}
		if err := l.accounts.UpdateQuantity(ctx, account.ID, expectedVersion, account.Quantity); err != nil {
			return err
		}

		txn = NewStockTransaction(accountID, kind, quantity, unitCost, reference)
		if err := l.txns.Create(ctx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		// Alert once, on the posting that crosses the threshold.
		if kind.Consuming() && !wasBelow && account.BelowThreshold() {
			event := Event{
				AggregateType: "StockAccount",
				AggregateID:   account.ID,
				EventType:     EventStockBelowThreshold,
				Payload: map[string]any{
					"accountId": account.ID.String(),
					"name":      account.Name,
					"quantity":  account.Quantity.String(),
					"threshold": account.MinimumThreshold.String(),
				},
			}
			if err := l.events.Publish(ctx, event); err != nil {
				return fmt.Errorf("publish threshold event: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock transaction posted",
		"transaction_id", txn.ID,
		"account_id", accountID,
		"kind", kind,
		"quantity", quantity.String(),
		"reference", reference,
	)

	return txn, nil
}

// RecordLotConsumption posts one entry per lot deduction against a single
// material account, each carrying that lot's unit cost. The account total is
// decremented once by the aggregate and the entries are flushed in one batch
// insert, so a completion touching many lots stays a single round trip per
// material. Same transactional contract as Record: joins an ambient
// transaction and writes nothing on rejection.
func (l *Ledger) RecordLotConsumption(ctx context.Context, accountID id.ID, kind TransactionKind, deductions []LotDeduction, reference string) ([]*StockTransaction, error) {
	if !kind.Valid() || !kind.Consuming() {
		return nil, apperror.NewValidation("lot consumption requires a consuming kind").
			WithDetail("kind", string(kind))
	}
	if len(deductions) == 0 {
		return nil, apperror.NewValidation("at least one lot deduction is required")
	}

	var total types.Quantity
	for _, d := range deductions {
		if !d.QuantityTaken.IsPositive() {
			return nil, apperror.NewInvalidQuantity(d.QuantityTaken.String())
		}
		total += d.QuantityTaken
	}

	var txns []*StockTransaction
	err := l.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		account, err := l.accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		wasBelow := account.BelowThreshold()
		expectedVersion := account.Version

		if err := account.Apply(total.Neg()); err != nil {
			return err
		}
		if err := l.accounts.UpdateQuantity(ctx, account.ID, expectedVersion, account.Quantity); err != nil {
			return err
		}

		txns = make([]*StockTransaction, 0, len(deductions))
		for _, d := range deductions {
			unitCost := d.UnitCost
			txns = append(txns, NewStockTransaction(accountID, kind, d.QuantityTaken, &unitCost, reference))
		}
		if err := l.txns.CreateBatch(ctx, txns); err != nil {
			return fmt.Errorf("create transactions: %w", err)
		}

		if !wasBelow && account.BelowThreshold() {
			event := Event{
				AggregateType: "StockAccount",
				AggregateID:   account.ID,
				EventType:     EventStockBelowThreshold,
				Payload: map[string]any{
					"accountId": account.ID.String(),
					"name":      account.Name,
					"quantity":  account.Quantity.String(),
					"threshold": account.MinimumThreshold.String(),
				},
			}
			if err := l.events.Publish(ctx, event); err != nil {
				return fmt.Errorf("publish threshold event: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "lot consumption posted",
		"account_id", accountID,
		"kind", kind,
		"quantity", total.String(),
		"lots", len(deductions),
		"reference", reference,
	)

	return txns, nil
}

// Query returns ledger entries for an account, newest first. Read-only and
// restartable via offset.
func (l *Ledger) Query(ctx context.Context, accountID id.ID, limit, offset int) ([]*StockTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := l.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	return l.txns.ListByAccount(ctx, accountID, limit, offset)
}
