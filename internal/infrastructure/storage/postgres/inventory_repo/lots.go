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

const lotsTable = "inv_lots"

var lotColumns = postgres.ExtractDBColumns[inventory.StockLot]()

// LotRepo implements inventory.LotRepository.
type LotRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLotRepo creates a new purchase lot repository.
func NewLotRepo(txm *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new lot.
func (r *LotRepo) Create(ctx context.Context, lot *inventory.StockLot) error {
	q := r.builder.Insert(lotsTable).
		SetMap(postgres.StructToMap(lot))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}

	return nil
}

// GetOpenForUpdate returns unexhausted lots for a material in FIFO order,
// locked. The lock covers both the sufficiency check and the per-lot
// decrements, so two concurrent consumes of the same material serialize.
func (r *LotRepo) GetOpenForUpdate(ctx context.Context, materialID id.ID) ([]*inventory.StockLot, error) {
	sql := `
		SELECT id, material_id, source_transaction_id,
		       unit_cost, quantity_received, quantity_remaining,
		       received_at
		FROM inv_lots
		WHERE material_id = $1 AND quantity_remaining > 0
		ORDER BY received_at ASC, id ASC
		FOR UPDATE
	`

	var lots []*inventory.StockLot
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, materialID); err != nil {
		return nil, fmt.Errorf("select open lots: %w", err)
	}

	return lots, nil
}

// UpdateRemaining writes a lot's new remaining quantity.
func (r *LotRepo) UpdateRemaining(ctx context.Context, lotID id.ID, remaining types.Quantity) error {
	q := r.builder.Update(lotsTable).
		Set("quantity_remaining", remaining).
		Where(squirrel.Eq{"id": lotID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update lot remaining: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock lot", lotID.String())
	}

	return nil
}

// ListByMaterial returns all lots for a material oldest first, exhausted
// lots included.
func (r *LotRepo) ListByMaterial(ctx context.Context, materialID id.ID) ([]*inventory.StockLot, error) {
	q := r.builder.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{"material_id": materialID}).
		OrderBy("received_at ASC", "id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []*inventory.StockLot
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots: %w", err)
	}

	return lots, nil
}

// Ensure interface compliance.
var _ inventory.LotRepository = (*LotRepo)(nil)
