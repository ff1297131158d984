// Package inventory provides the stock ledger core: accounts, purchase lots,
// immutable transactions, and FIFO lot allocation.
package inventory

import (
	"context"
	"time"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

// AccountKind distinguishes the two finite resources the plant tracks.
type AccountKind string

const (
	// AccountKindRawMaterial - purchased inputs (concentrate, sugar, CO2)
	AccountKindRawMaterial AccountKind = "raw_material"
	// AccountKindBottle - empty bottle types consumed by production
	AccountKindBottle AccountKind = "bottle"
)

// Valid reports whether the kind is one of the known kinds.
func (k AccountKind) Valid() bool {
	return k == AccountKindRawMaterial || k == AccountKindBottle
}

// StockAccount is the single mutable running-total record per material or
// bottle type. It is written exclusively through Ledger postings; no other
// code path updates Quantity.
type StockAccount struct {
	ID   id.ID       `db:"id" json:"id"`
	Kind AccountKind `db:"kind" json:"kind"`
	Name string      `db:"name" json:"name"`

	// Unit is the measurement unit (kg, l, bottle)
	Unit string `db:"unit" json:"unit"`

	// Quantity is the current stock level. Invariant: never negative.
	Quantity types.Quantity `db:"current_quantity" json:"currentQuantity"`

	// MinimumThreshold triggers low-stock alerts; it is not a hard limit.
	MinimumThreshold types.Quantity `db:"minimum_threshold" json:"minimumThreshold"`

	// Version for optimistic locking (incremented on each quantity update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewStockAccount creates an account with zero stock.
func NewStockAccount(kind AccountKind, name, unit string, threshold types.Quantity) *StockAccount {
	now := time.Now().UTC()
	return &StockAccount{
		ID:               id.New(),
		Kind:             kind,
		Name:             name,
		Unit:             unit,
		Quantity:         0,
		MinimumThreshold: threshold,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Validate implements entity self-validation.
func (a *StockAccount) Validate(ctx context.Context) error {
	if !a.Kind.Valid() {
		return apperror.NewValidation("unknown account kind").
			WithDetail("field", "kind").
			WithDetail("value", string(a.Kind))
	}
	if a.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if a.Unit == "" {
		return apperror.NewValidation("unit is required").
			WithDetail("field", "unit")
	}
	if a.MinimumThreshold.IsNegative() {
		return apperror.NewValidation("minimum threshold cannot be negative").
			WithDetail("field", "minimumThreshold")
	}
	return nil
}

// Apply computes the effect of a signed delta on the running total.
// This is the single enforcement point for the non-negativity invariant:
// a delta that would drive the quantity below zero is rejected with
// INSUFFICIENT_STOCK and leaves the account untouched.
func (a *StockAccount) Apply(delta types.Quantity) error {
	next := a.Quantity + delta
	if next.IsNegative() {
		return apperror.NewInsufficientStock(
			a.ID.String(),
			delta.Abs().String(),
			a.Quantity.String(),
		)
	}
	a.Quantity = next
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// BelowThreshold reports whether stock has dipped under the alert threshold.
func (a *StockAccount) BelowThreshold() bool {
	return !a.MinimumThreshold.IsZero() && a.Quantity < a.MinimumThreshold
}
