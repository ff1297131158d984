// Package production_repo provides the PostgreSQL implementation for the
// production batch repository.
package production_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/domain/production"
	"bottleworks/internal/infrastructure/storage/postgres"
)

const (
	batchesTable         = "prod_batches"
	plannedItemsTable    = "prod_batch_planned_items"
	actualItemsTable     = "prod_batch_actual_items"
	actualMaterialsTable = "prod_batch_actual_materials"
)

// batchRow mirrors the prod_batches header; lines load separately.
type batchRow struct {
	production.Batch
	QualityGrade string `db:"quality_grade"`
	QualityNotes string `db:"quality_notes"`
}

var batchColumns = postgres.ExtractDBColumns[batchRow]()

func (r *batchRow) toBatch() *production.Batch {
	b := r.Batch
	b.Quality = production.Quality{Grade: r.QualityGrade, Notes: r.QualityNotes}
	return &b
}

// BatchRepo implements production.Repository.
type BatchRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(txm *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the batch header and its planned lines.
func (r *BatchRepo) Create(ctx context.Context, batch *production.Batch) error {
	row := batchRow{
		Batch:        *batch,
		QualityGrade: batch.Quality.Grade,
		QualityNotes: batch.Quality.Notes,
	}
	q := r.builder.Insert(batchesTable).
		SetMap(postgres.StructToMap(row))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	if len(batch.PlannedItems) > 0 {
		lq := r.builder.Insert(plannedItemsTable).
			Columns("batch_id", "line_no", "bottle_type_id", "quantity")
		for i, item := range batch.PlannedItems {
			lq = lq.Values(batch.ID, i+1, item.BottleTypeID, item.Quantity)
		}
		sql, args, err := lq.ToSql()
		if err != nil {
			return fmt.Errorf("build insert planned items: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert planned items: %w", err)
		}
	}

	return nil
}

// GetByID returns a batch with all its lines.
func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*production.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row batchRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("production batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}

	batch := row.toBatch()
	if err := r.loadLines(ctx, batch); err != nil {
		return nil, err
	}

	return batch, nil
}

// GetForUpdate returns a locked batch with all its lines. The row lock
// serializes concurrent lifecycle transitions on the same batch.
func (r *BatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*production.Batch, error) {
	sql := `
		SELECT id, human_id, product_id, status,
		       quality_grade, quality_notes,
		       planned_at, planned_by,
		       started_at, started_by,
		       completed_at, completed_by,
		       cancelled_at, cancelled_by, cancel_reason,
		       version, created_at, updated_at
		FROM prod_batches
		WHERE id = $1
		FOR UPDATE
	`

	var row batchRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, batchID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("production batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch for update: %w", err)
	}

	batch := row.toBatch()
	if err := r.loadLines(ctx, batch); err != nil {
		return nil, err
	}

	return batch, nil
}

// UpdateStatus writes the lifecycle fields conditioned on the status the
// caller read. Zero rows affected means another request won the transition.
func (r *BatchRepo) UpdateStatus(ctx context.Context, batch *production.Batch, expected production.Status) error {
	q := r.builder.Update(batchesTable).
		Set("status", batch.Status).
		Set("quality_grade", batch.Quality.Grade).
		Set("quality_notes", batch.Quality.Notes).
		Set("started_at", batch.StartedAt).
		Set("started_by", batch.StartedBy).
		Set("completed_at", batch.CompletedAt).
		Set("completed_by", batch.CompletedBy).
		Set("cancelled_at", batch.CancelledAt).
		Set("cancelled_by", batch.CancelledBy).
		Set("cancel_reason", batch.CancelReason).
		Set("version", batch.Version).
		Set("updated_at", batch.UpdatedAt).
		Where(squirrel.Eq{
			"id":     batch.ID,
			"status": expected,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("production batch", batch.ID.String())
	}

	return nil
}

// SaveActuals inserts the actual item and material lines of a completed
// batch. Lines are written once; a re-run replaces them so a retried
// completion cannot double-insert.
func (r *BatchRepo) SaveActuals(ctx context.Context, batch *production.Batch) error {
	querier := r.txm.GetQuerier(ctx)

	for _, table := range []string{actualItemsTable, actualMaterialsTable} {
		if _, err := querier.Exec(ctx, "DELETE FROM "+table+" WHERE batch_id = $1", batch.ID); err != nil {
			return fmt.Errorf("delete existing lines: %w", err)
		}
	}

	if len(batch.ActualItems) > 0 {
		q := r.builder.Insert(actualItemsTable).
			Columns("batch_id", "line_no", "bottle_type_id", "quantity", "defects")
		for i, item := range batch.ActualItems {
			q = q.Values(batch.ID, i+1, item.BottleTypeID, item.Quantity, item.Defects)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert actual items: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert actual items: %w", err)
		}
	}

	if len(batch.ActualMaterials) > 0 {
		q := r.builder.Insert(actualMaterialsTable).
			Columns("batch_id", "line_no", "material_id", "quantity_used")
		for i, usage := range batch.ActualMaterials {
			q = q.Values(batch.ID, i+1, usage.MaterialID, usage.QuantityUsed)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert actual materials: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert actual materials: %w", err)
		}
	}

	return nil
}

// List returns batch headers matching the filter, newest plans first.
// Lines are loaded per batch; listings are small (paged) so N+1 is fine here.
func (r *BatchRepo) List(ctx context.Context, filter production.ListFilter) ([]*production.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		OrderBy("planned_at DESC", "id DESC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*batchRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}

	batches := make([]*production.Batch, 0, len(rows))
	for _, row := range rows {
		batch := row.toBatch()
		if err := r.loadLines(ctx, batch); err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	return batches, nil
}

// loadLines fills the planned and actual line slices.
func (r *BatchRepo) loadLines(ctx context.Context, batch *production.Batch) error {
	querier := r.txm.GetQuerier(ctx)

	plannedSQL := `
		SELECT bottle_type_id, quantity
		FROM prod_batch_planned_items
		WHERE batch_id = $1
		ORDER BY line_no
	`
	if err := pgxscan.Select(ctx, querier, &batch.PlannedItems, plannedSQL, batch.ID); err != nil {
		return fmt.Errorf("get planned items: %w", err)
	}

	if batch.Status != production.StatusCompleted {
		return nil
	}

	itemsSQL := `
		SELECT bottle_type_id, quantity, defects
		FROM prod_batch_actual_items
		WHERE batch_id = $1
		ORDER BY line_no
	`
	if err := pgxscan.Select(ctx, querier, &batch.ActualItems, itemsSQL, batch.ID); err != nil {
		return fmt.Errorf("get actual items: %w", err)
	}

	materialsSQL := `
		SELECT material_id, quantity_used
		FROM prod_batch_actual_materials
		WHERE batch_id = $1
		ORDER BY line_no
	`
	if err := pgxscan.Select(ctx, querier, &batch.ActualMaterials, materialsSQL, batch.ID); err != nil {
		return fmt.Errorf("get actual materials: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ production.Repository = (*BatchRepo)(nil)
