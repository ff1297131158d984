package dto

import (
	"time"

	"bottleworks/internal/core/types"
	"bottleworks/internal/domain/inventory"
)

// --- Requests ---

// CreateAccountRequest registers a new material or bottle type.
type CreateAccountRequest struct {
	Kind             string         `json:"kind" binding:"required"`
	Name             string         `json:"name" binding:"required"`
	Unit             string         `json:"unit" binding:"required"`
	MinimumThreshold types.Quantity `json:"minimumThreshold"`
}

// PostPurchaseRequest records a goods receipt against an account.
type PostPurchaseRequest struct {
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	UnitCost  types.Money    `json:"unitCost" binding:"required"`
	Reference string         `json:"reference"`
}

// PostDamageRequest writes off damaged or spoiled stock.
type PostDamageRequest struct {
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	Reference string         `json:"reference"`
}

// ListAccountsQuery filters the account listing.
type ListAccountsQuery struct {
	Kind string `form:"kind"`
}

// ListTransactionsQuery pages the ledger history.
type ListTransactionsQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// --- Responses ---

// AccountResponse mirrors a stock account.
type AccountResponse struct {
	ID               string         `json:"id"`
	Kind             string         `json:"kind"`
	Name             string         `json:"name"`
	Unit             string         `json:"unit"`
	CurrentQuantity  types.Quantity `json:"currentQuantity"`
	MinimumThreshold types.Quantity `json:"minimumThreshold"`
	BelowThreshold   bool           `json:"belowThreshold"`
	Version          int            `json:"version"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// FromAccount creates AccountResponse from the domain model.
func FromAccount(a *inventory.StockAccount) AccountResponse {
	return AccountResponse{
		ID:               a.ID.String(),
		Kind:             string(a.Kind),
		Name:             a.Name,
		Unit:             a.Unit,
		CurrentQuantity:  a.Quantity,
		MinimumThreshold: a.MinimumThreshold,
		BelowThreshold:   a.BelowThreshold(),
		Version:          a.Version,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// TransactionResponse mirrors a ledger entry.
type TransactionResponse struct {
	ID        string         `json:"id"`
	AccountID string         `json:"accountId"`
	Kind      string         `json:"kind"`
	Quantity  types.Quantity `json:"quantity"`
	UnitCost  *types.Money   `json:"unitCost,omitempty"`
	TotalCost *types.Money   `json:"totalCost,omitempty"`
	Reference string         `json:"reference,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FromTransaction creates TransactionResponse from the domain model.
func FromTransaction(t *inventory.StockTransaction) TransactionResponse {
	return TransactionResponse{
		ID:        t.ID.String(),
		AccountID: t.AccountID.String(),
		Kind:      string(t.Kind),
		Quantity:  t.Quantity,
		UnitCost:  t.UnitCost,
		TotalCost: t.TotalCost,
		Reference: t.Reference,
		CreatedAt: t.CreatedAt,
	}
}

// FromTransactions maps a slice of ledger entries.
func FromTransactions(txns []*inventory.StockTransaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, FromTransaction(t))
	}
	return out
}

// LotResponse mirrors a purchase lot.
type LotResponse struct {
	ID                  string         `json:"id"`
	MaterialID          string         `json:"materialId"`
	SourceTransactionID string         `json:"sourceTransactionId"`
	UnitCost            types.Money    `json:"unitCost"`
	QuantityReceived    types.Quantity `json:"quantityReceived"`
	QuantityRemaining   types.Quantity `json:"quantityRemaining"`
	Exhausted           bool           `json:"exhausted"`
	ReceivedAt          time.Time      `json:"receivedAt"`
}

// FromLot creates LotResponse from the domain model.
func FromLot(l *inventory.StockLot) LotResponse {
	return LotResponse{
		ID:                  l.ID.String(),
		MaterialID:          l.MaterialID.String(),
		SourceTransactionID: l.SourceTransactionID.String(),
		UnitCost:            l.UnitCost,
		QuantityReceived:    l.QuantityReceived,
		QuantityRemaining:   l.QuantityRemaining,
		Exhausted:           l.Exhausted(),
		ReceivedAt:          l.ReceivedAt,
	}
}

// FromLots maps a slice of lots.
func FromLots(lots []*inventory.StockLot) []LotResponse {
	out := make([]LotResponse, 0, len(lots))
	for _, l := range lots {
		out = append(out, FromLot(l))
	}
	return out
}
