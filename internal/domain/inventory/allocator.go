package inventory

import (
	"context"
	"fmt"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
	"bottleworks/pkg/logger"
)

// LotAllocator decomposes material consumption into lot-level deductions,
// oldest lot first. It never touches the StockAccount total itself; callers
// post one ledger entry per deduction, which keeps
// sum(lot.quantity_remaining) == account.current_quantity after every
// successful consume.
type LotAllocator struct {
	lots LotRepository
}

// NewLotAllocator creates a lot allocator.
func NewLotAllocator(lots LotRepository) *LotAllocator {
	return &LotAllocator{lots: lots}
}

// Receive creates exactly one new lot for an "in" transaction.
func (a *LotAllocator) Receive(ctx context.Context, materialID id.ID, quantity types.Quantity, unitCost types.Money, sourceTransactionID id.ID) (*StockLot, error) {
	if !quantity.IsPositive() {
		return nil, apperror.NewInvalidQuantity(quantity.String())
	}
	if unitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("unitCost", unitCost.String())
	}

	lot := NewStockLot(materialID, sourceTransactionID, quantity, unitCost)
	if err := a.lots.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	logger.Debug(ctx, "lot received",
		"lot_id", lot.ID,
		"material_id", materialID,
		"quantity", quantity.String(),
		"unit_cost", unitCost.String(),
	)

	return lot, nil
}

// Consume takes quantity from the material's open lots, oldest first
// (received_at ascending, id breaking ties). The aggregate sufficiency check
// runs over the locked lot set BEFORE any decrement: on INSUFFICIENT_LOTS no
// lot is mutated. Partial deduction followed by failure would silently lose
// material, so this ordering is load-bearing.
//
// Must be called inside a transaction; the row locks taken by
// GetOpenForUpdate serialize concurrent consumes of the same material, so two
// completions cannot both pass the check against a stale snapshot.
func (a *LotAllocator) Consume(ctx context.Context, materialID id.ID, quantity types.Quantity, reference string) ([]LotDeduction, error) {
	if !quantity.IsPositive() {
		return nil, apperror.NewInvalidQuantity(quantity.String())
	}

	lots, err := a.lots.GetOpenForUpdate(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("lock open lots: %w", err)
	}

	var available types.Quantity
	for _, lot := range lots {
		available += lot.QuantityRemaining
	}
	if available < quantity {
		return nil, apperror.NewInsufficientLots(
			materialID.String(),
			quantity.String(),
			available.String(),
		)
	}

	deductions := make([]LotDeduction, 0, len(lots))
	outstanding := quantity
	for _, lot := range lots {
		if !outstanding.IsPositive() {
			break
		}

		take := lot.QuantityRemaining
		if outstanding < take {
			take = outstanding
		}

		remaining := lot.QuantityRemaining - take
		if err := a.lots.UpdateRemaining(ctx, lot.ID, remaining); err != nil {
			return nil, fmt.Errorf("update lot %s: %w", lot.ID, err)
		}
		lot.QuantityRemaining = remaining

		deductions = append(deductions, LotDeduction{
			LotID:         lot.ID,
			QuantityTaken: take,
			UnitCost:      lot.UnitCost,
		})
		outstanding -= take
	}

	logger.Debug(ctx, "lots consumed",
		"material_id", materialID,
		"quantity", quantity.String(),
		"lots_touched", len(deductions),
		"reference", reference,
	)

	return deductions, nil
}

// Lots returns all lots for a material, oldest first, including exhausted
// ones. Audit and costing view.
func (a *LotAllocator) Lots(ctx context.Context, materialID id.ID) ([]*StockLot, error) {
	return a.lots.ListByMaterial(ctx, materialID)
}
