package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottleworks/internal/core/id"
	"bottleworks/internal/domain/inventory"
	"bottleworks/internal/infrastructure/storage/postgres"
)

const transactionsTable = "inv_transactions"

var transactionColumns = postgres.ExtractDBColumns[inventory.StockTransaction]()

// TransactionRepo implements inventory.TransactionRepository.
// The table is append-only: no update or delete statements exist here.
type TransactionRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewTransactionRepo creates a new ledger entry repository.
func NewTransactionRepo(txm *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a single ledger entry.
func (r *TransactionRepo) Create(ctx context.Context, txn *inventory.StockTransaction) error {
	q := r.builder.Insert(transactionsTable).
		SetMap(postgres.StructToMap(txn))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

// CreateBatch inserts several entries at once. Uses COPY when inside a
// transaction, which batch completion always is.
func (r *TransactionRepo) CreateBatch(ctx context.Context, txns []*inventory.StockTransaction) error {
	if len(txns) == 0 {
		return nil
	}

	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(txns))
		for _, t := range txns {
			rows = append(rows, transactionRow(t))
		}
		if _, err := inserter.CopyFromSlice(ctx, transactionsTable, transactionColumns, rows); err != nil {
			return fmt.Errorf("copy transactions: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(transactionsTable).Columns(transactionColumns...)
	for _, t := range txns {
		q = q.Values(transactionRow(t)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}

	return nil
}

// transactionRow lays out an entry's values in transactionColumns order.
func transactionRow(t *inventory.StockTransaction) []any {
	m := postgres.StructToMap(t)
	row := make([]any, len(transactionColumns))
	for i, col := range transactionColumns {
		row[i] = m[col]
	}
	return row
}

// ListByAccount returns entries for an account newest first.
func (r *TransactionRepo) ListByAccount(ctx context.Context, accountID id.ID, limit, offset int) ([]*inventory.StockTransaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at DESC", "id DESC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var txns []*inventory.StockTransaction
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &txns, sql, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	return txns, nil
}

// Ensure interface compliance.
var _ inventory.TransactionRepository = (*TransactionRepo)(nil)
