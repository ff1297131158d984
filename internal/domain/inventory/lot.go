package inventory

import (
	"time"

	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

// StockLot is one received quantity of a raw material at a specific purchase
// cost. Lots exist for cost-basis accuracy and traceability; they refine the
// scalar StockAccount, they do not replace it. Exhausted lots (remaining = 0)
// are retained for audit and costing.
//
// Invariant: 0 <= QuantityRemaining <= QuantityReceived.
type StockLot struct {
	ID         id.ID `db:"id" json:"id"`
	MaterialID id.ID `db:"material_id" json:"materialId"`

	// SourceTransactionID links back to the "in" ledger entry that created the lot.
	SourceTransactionID id.ID `db:"source_transaction_id" json:"sourceTransactionId"`

	UnitCost          types.Money    `db:"unit_cost" json:"unitCost"`
	QuantityReceived  types.Quantity `db:"quantity_received" json:"quantityReceived"`
	QuantityRemaining types.Quantity `db:"quantity_remaining" json:"quantityRemaining"`

	// ReceivedAt defines FIFO order; ties break on id (insertion order).
	ReceivedAt time.Time `db:"received_at" json:"receivedAt"`
}

// NewStockLot creates a full, unconsumed lot.
func NewStockLot(materialID, sourceTransactionID id.ID, quantity types.Quantity, unitCost types.Money) *StockLot {
	return &StockLot{
		ID:                  id.New(),
		MaterialID:          materialID,
		SourceTransactionID: sourceTransactionID,
		UnitCost:            unitCost,
		QuantityReceived:    quantity,
		QuantityRemaining:   quantity,
		ReceivedAt:          time.Now().UTC(),
	}
}

// Exhausted reports whether the lot has been fully consumed.
func (l *StockLot) Exhausted() bool {
	return l.QuantityRemaining.IsZero()
}

// LotDeduction is one lot-level slice of a consumption, carrying the lot's
// purchase cost so the caller can post cost-accurate ledger entries.
type LotDeduction struct {
	LotID         id.ID          `json:"lotId"`
	QuantityTaken types.Quantity `json:"quantityTaken"`
	UnitCost      types.Money    `json:"unitCost"`
}
