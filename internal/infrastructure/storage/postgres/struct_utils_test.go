package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain/inventory"
	"bottleworks/internal/domain/production"
)

func TestExtractDBColumns_StockAccount(t *testing.T) {
	cols := ExtractDBColumns[inventory.StockAccount]()

	want := []string{
		"id", "kind", "name", "unit",
		"current_quantity", "minimum_threshold",
		"version", "created_at", "updated_at",
	}
	assert.Equal(t, want, cols)
}

type batchRowMock struct {
	production.Batch
	QualityGrade string `db:"quality_grade"`
}

func TestExtractDBColumns_SkipsUntaggedAndEmbeds(t *testing.T) {
	cols := ExtractDBColumns[batchRowMock]()

	// Embedded batch columns come through; the line slices are db:"-" and
	// must not.
	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "human_id")
	assert.Contains(t, cols, "status")
	assert.Contains(t, cols, "quality_grade")
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "plannedItems")
}

func TestStructToMap_StockTransaction(t *testing.T) {
	now := time.Now().UTC()
	unitCost := types.MustMoney("4.20")
	txn := inventory.NewStockTransaction(id.New(), inventory.TransactionIn, types.NewQuantityFromInt(10), &unitCost, "PO-9")
	txn.CreatedAt = now

	m := StructToMap(txn)

	assert.Equal(t, txn.ID, m["id"])
	assert.Equal(t, txn.AccountID, m["account_id"])
	assert.Equal(t, inventory.TransactionIn, m["kind"])
	assert.Equal(t, types.NewQuantityFromInt(10), m["quantity"])
	assert.Equal(t, txn.UnitCost, m["unit_cost"])
	assert.Equal(t, now, m["created_at"])
}

func TestStructToMap_EmbeddedFieldsFlattened(t *testing.T) {
	row := batchRowMock{
		Batch:        *production.NewBatch(id.New(), "BATCH-2026-0001", nil, "op-1"),
		QualityGrade: "A",
	}

	m := StructToMap(row)

	assert.Equal(t, "BATCH-2026-0001", m["human_id"])
	assert.Equal(t, production.StatusPlanned, m["status"])
	assert.Equal(t, "A", m["quality_grade"])
	_, hasLines := m["plannedItems"]
	assert.False(t, hasLines, "db:\"-\" fields stay out of the map")
}
