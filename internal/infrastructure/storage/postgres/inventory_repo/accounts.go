// Package inventory_repo provides PostgreSQL implementations for the stock
// ledger repositories.
package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain/inventory"
	"bottleworks/internal/infrastructure/storage/postgres"
)

const accountsTable = "inv_accounts"

var accountColumns = postgres.ExtractDBColumns[inventory.StockAccount]()

// AccountRepo implements inventory.AccountRepository.
type AccountRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewAccountRepo creates a new stock account repository.
func NewAccountRepo(txm *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, account *inventory.StockAccount) error {
	q := r.builder.Insert(accountsTable).
		SetMap(postgres.StructToMap(account))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID returns an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, accountID id.ID) (*inventory.StockAccount, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"id": accountID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var account inventory.StockAccount
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &account, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock account", accountID.String())
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

// GetForUpdate returns an account with a row lock. The lock serializes
// concurrent postings against the same account for the life of the
// surrounding transaction.
func (r *AccountRepo) GetForUpdate(ctx context.Context, accountID id.ID) (*inventory.StockAccount, error) {
	sql := `
		SELECT id, kind, name, unit,
		       current_quantity, minimum_threshold,
		       version, created_at, updated_at
		FROM inv_accounts
		WHERE id = $1
		FOR UPDATE
	`

	var account inventory.StockAccount
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &account, sql, accountID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock account", accountID.String())
		}
		return nil, fmt.Errorf("get account for update: %w", err)
	}

	return &account, nil
}

// UpdateQuantity writes the new running total conditioned on the version the
// caller read. Zero rows affected means someone else got there first.
func (r *AccountRepo) UpdateQuantity(ctx context.Context, accountID id.ID, expectedVersion int, quantity types.Quantity) error {
	q := r.builder.Update(accountsTable).
		Set("current_quantity", quantity).
		Set("version", expectedVersion+1).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"id":      accountID,
			"version": expectedVersion,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update account quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock account", accountID.String())
	}

	return nil
}

// List returns accounts, optionally filtered by kind, ordered by name.
func (r *AccountRepo) List(ctx context.Context, kind *inventory.AccountKind) ([]*inventory.StockAccount, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		OrderBy("name")

	if kind != nil {
		q = q.Where(squirrel.Eq{"kind": *kind})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var accounts []*inventory.StockAccount
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &accounts, sql, args...); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}

	return accounts, nil
}

// Ensure interface compliance.
var _ inventory.AccountRepository = (*AccountRepo)(nil)
