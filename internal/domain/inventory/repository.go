package inventory

import (
	"context"

	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

// AccountRepository defines persistence for stock accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *StockAccount) error

	GetByID(ctx context.Context, accountID id.ID) (*StockAccount, error)

	// GetForUpdate returns the account with a row lock. Must be called inside
	// a transaction; it serializes concurrent postings on the same account.
	GetForUpdate(ctx context.Context, accountID id.ID) (*StockAccount, error)

	// UpdateQuantity persists a new running total conditioned on the version
	// read earlier. Returns CONCURRENT_MODIFICATION when the version no
	// longer matches.
	UpdateQuantity(ctx context.Context, accountID id.ID, expectedVersion int, quantity types.Quantity) error

	List(ctx context.Context, kind *AccountKind) ([]*StockAccount, error)
}

// LotRepository defines persistence for purchase lots.
type LotRepository interface {
	Create(ctx context.Context, lot *StockLot) error

	// GetOpenForUpdate returns lots with quantity_remaining > 0 for the
	// material, locked, ordered received_at ASC then id ASC. Must be called
	// inside a transaction; the lock keeps the sufficiency check and the
	// decrements atomic against concurrent consumes of the same material.
	GetOpenForUpdate(ctx context.Context, materialID id.ID) ([]*StockLot, error)

	// UpdateRemaining writes a lot's new quantity_remaining.
	UpdateRemaining(ctx context.Context, lotID id.ID, remaining types.Quantity) error

	// ListByMaterial returns all lots for a material, oldest first,
	// including exhausted ones (audit/costing view).
	ListByMaterial(ctx context.Context, materialID id.ID) ([]*StockLot, error)
}

// TransactionRepository defines persistence for ledger entries.
// Entries are append-only; there is no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, txn *StockTransaction) error

	// CreateBatch inserts several entries at once (batch completion posts
	// one entry per bottle type and per lot touched).
	CreateBatch(ctx context.Context, txns []*StockTransaction) error

	// ListByAccount returns entries newest first.
	ListByAccount(ctx context.Context, accountID id.ID, limit, offset int) ([]*StockTransaction, error)
}
