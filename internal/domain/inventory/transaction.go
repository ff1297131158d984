package inventory

import (
	"time"

	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

// TransactionKind classifies a ledger entry. Quantity is always positive;
// the sign of the stock effect is implied by the kind.
type TransactionKind string

const (
	// TransactionIn - purchase receipt, increases stock
	TransactionIn TransactionKind = "in"
	// TransactionProductionConsumption - consumed by a production batch
	TransactionProductionConsumption TransactionKind = "production_consumption"
	// TransactionDamage - written off as damaged/spoiled
	TransactionDamage TransactionKind = "damage"
)

// Valid reports whether the kind is one of the known kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionIn, TransactionProductionConsumption, TransactionDamage:
		return true
	}
	return false
}

// Consuming reports whether the kind decreases stock.
func (k TransactionKind) Consuming() bool {
	return k == TransactionProductionConsumption || k == TransactionDamage
}

// StockTransaction is an immutable ledger entry. Entries are never edited or
// deleted; corrections are new entries.
type StockTransaction struct {
	ID        id.ID           `db:"id" json:"id"`
	AccountID id.ID           `db:"account_id" json:"accountId"`
	Kind      TransactionKind `db:"kind" json:"kind"`

	// Quantity is always positive; effect sign comes from Kind.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitCost and TotalCost are meaningful for "in" entries and for per-lot
	// consumption entries carrying the consumed lot's purchase cost.
	UnitCost  *types.Money `db:"unit_cost" json:"unitCost,omitempty"`
	TotalCost *types.Money `db:"total_cost" json:"totalCost,omitempty"`

	// Reference is a free-form link back to the causing entity
	// (batch human id, supplier delivery note, damage report).
	Reference string `db:"reference" json:"reference,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewStockTransaction creates a ledger entry. TotalCost is derived from the
// unit cost when one is supplied.
func NewStockTransaction(accountID id.ID, kind TransactionKind, quantity types.Quantity, unitCost *types.Money, reference string) *StockTransaction {
	t := &StockTransaction{
		ID:        id.New(),
		AccountID: accountID,
		Kind:      kind,
		Quantity:  quantity,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	}
	if unitCost != nil {
		uc := *unitCost
		total := quantity.Decimal().Mul(uc)
		t.UnitCost = &uc
		t.TotalCost = &total
	}
	return t
}

// SignedQuantity returns the quantity with the sign of its stock effect.
func (t *StockTransaction) SignedQuantity() types.Quantity {
	if t.Kind.Consuming() {
		return t.Quantity.Neg()
	}
	return t.Quantity
}
