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

// Service is the facade the request handlers call. It composes the ledger and
// the lot allocator so that purchases and write-offs stay convergent between
// the account total and the lot layer.
type Service struct {
	accounts  AccountRepository
	ledger    *Ledger
	allocator *LotAllocator
	txm       tx.Manager
}

// NewService creates the inventory facade.
func NewService(accounts AccountRepository, ledger *Ledger, allocator *LotAllocator, txm tx.Manager) *Service {
	return &Service{
		accounts:  accounts,
		ledger:    ledger,
		allocator: allocator,
		txm:       txm,
	}
}

// CreateAccount registers a new material or bottle-type account with zero stock.
func (s *Service) CreateAccount(ctx context.Context, kind AccountKind, name, unit string, threshold types.Quantity) (*StockAccount, error) {
	account := NewStockAccount(kind, name, unit, threshold)
	if err := account.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	logger.Info(ctx, "stock account created",
		"account_id", account.ID,
		"kind", account.Kind,
		"name", account.Name,
	)
	return account, nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, accountID id.ID) (*StockAccount, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// ListAccounts returns accounts, optionally filtered by kind.
func (s *Service) ListAccounts(ctx context.Context, kind *AccountKind) ([]*StockAccount, error) {
	return s.accounts.List(ctx, kind)
}

// PostPurchase records an incoming delivery: one "in" ledger entry, and for
// raw materials additionally one purchase lot carrying the delivery's unit
// cost. Entry and lot are one transaction.
func (s *Service) PostPurchase(ctx context.Context, accountID id.ID, quantity types.Quantity, unitCost types.Money, reference string) (*StockTransaction, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var txn *StockTransaction
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		txn, err = s.ledger.Record(ctx, accountID, TransactionIn, quantity, &unitCost, reference)
		if err != nil {
			return err
		}
		if account.Kind == AccountKindRawMaterial {
			if _, err := s.allocator.Receive(ctx, accountID, quantity, unitCost, txn.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// PostDamage writes stock off. Bottles get a single "damage" entry. Raw
// materials consume lots FIFO and get one "damage" entry per lot touched,
// each carrying that lot's purchase cost, so the lot layer and the account
// total stay convergent. All postings are one transaction.
func (s *Service) PostDamage(ctx context.Context, accountID id.ID, quantity types.Quantity, notes string) ([]*StockTransaction, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var txns []*StockTransaction
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if account.Kind != AccountKindRawMaterial {
			txn, err := s.ledger.Record(ctx, accountID, TransactionDamage, quantity, nil, notes)
			if err != nil {
				return err
			}
			txns = append(txns, txn)
			return nil
		}

		deductions, err := s.allocator.Consume(ctx, accountID, quantity, notes)
		if err != nil {
			return err
		}
		txns, err = s.ledger.RecordLotConsumption(ctx, accountID, TransactionDamage, deductions, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// ListTransactions returns ledger entries for an account, newest first.
func (s *Service) ListTransactions(ctx context.Context, accountID id.ID, limit, offset int) ([]*StockTransaction, error) {
	return s.ledger.Query(ctx, accountID, limit, offset)
}

// CurrentStock returns the running total for an account.
func (s *Service) CurrentStock(ctx context.Context, accountID id.ID) (types.Quantity, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.Quantity, nil
}

// ListLots returns the lot history for a raw material, oldest first.
func (s *Service) ListLots(ctx context.Context, materialID id.ID) ([]*StockLot, error) {
	account, err := s.accounts.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if account.Kind != AccountKindRawMaterial {
		return nil, apperror.NewValidation("account has no lots").
			WithDetail("account_id", materialID.String()).
			WithDetail("kind", string(account.Kind))
	}
	return s.allocator.Lots(ctx, materialID)
}
