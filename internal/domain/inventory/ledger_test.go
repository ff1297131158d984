package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

func newLedgerFixture() (*Ledger, *fakeAccountRepo, *fakeTransactionRepo, *capturePublisher) {
	accounts := newFakeAccountRepo()
	txns := newFakeTransactionRepo()
	events := &capturePublisher{}
	ledger := NewLedger(accounts, txns, &fakeTxManager{}, events)
	return ledger, accounts, txns, events
}

func seedAccount(t *testing.T, repo *fakeAccountRepo, kind AccountKind, name string, qty, threshold types.Quantity) *StockAccount {
	t.Helper()
	account := NewStockAccount(kind, name, "kg", threshold)
	account.Quantity = qty
	require.NoError(t, repo.Create(context.Background(), account))
	return account
}

func TestLedger_Record_Purchase(t *testing.T) {
	ledger, accounts, txns, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar", 0, 0)

	unitCost := types.MustMoney("12.50")
	txn, err := ledger.Record(ctx, account.ID, TransactionIn, types.NewQuantityFromInt(100), &unitCost, "PO-42")
	require.NoError(t, err)

	assert.Equal(t, TransactionIn, txn.Kind)
	assert.Equal(t, types.NewQuantityFromInt(100), txn.Quantity)
	assert.Equal(t, types.NewQuantityFromInt(100), txn.SignedQuantity())
	require.NotNil(t, txn.TotalCost)
	assert.True(t, txn.TotalCost.Equal(types.MustMoney("1250")), "total cost = quantity x unit cost, got %s", txn.TotalCost)

	stored := accounts.stored(account.ID)
	assert.Equal(t, types.NewQuantityFromInt(100), stored.Quantity)
	assert.Equal(t, 2, stored.Version, "posting bumps the version")
	assert.Len(t, txns.byAccount(account.ID), 1)
}

func TestLedger_Record_ConsumptionIsSignedNegative(t *testing.T) {
	ledger, accounts, _, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindBottle, "Bottle 0.5l", types.NewQuantityFromInt(500), 0)

	txn, err := ledger.Record(ctx, account.ID, TransactionProductionConsumption, types.NewQuantityFromInt(120), nil, "BATCH-2026-0007")
	require.NoError(t, err)

	assert.True(t, txn.Quantity.IsPositive())
	assert.Equal(t, types.NewQuantityFromInt(120).Neg(), txn.SignedQuantity())
	assert.Equal(t, types.NewQuantityFromInt(380), accounts.stored(account.ID).Quantity)
}

func TestLedger_Record_InsufficientStockLeavesNoTrace(t *testing.T) {
	ledger, accounts, txns, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "CO2", types.NewQuantityFromInt(5), 0)

	_, err := ledger.Record(ctx, account.ID, TransactionDamage, types.NewQuantityFromInt(8), nil, "spill")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock), "got %v", err)

	stored := accounts.stored(account.ID)
	assert.Equal(t, types.NewQuantityFromInt(5), stored.Quantity, "rejected posting must not change the balance")
	assert.Equal(t, 1, stored.Version)
	assert.Empty(t, txns.byAccount(account.ID), "rejected posting must not write a ledger entry")
}

func TestLedger_Record_ExactDepletionAllowed(t *testing.T) {
	ledger, accounts, _, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Concentrate", types.NewQuantityFromInt(10), 0)

	_, err := ledger.Record(ctx, account.ID, TransactionDamage, types.NewQuantityFromInt(10), nil, "expired")
	require.NoError(t, err)
	assert.True(t, accounts.stored(account.ID).Quantity.IsZero())
}

func TestLedger_Record_RejectsNonPositiveQuantity(t *testing.T) {
	ledger, accounts, _, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar", 0, 0)

	for _, qty := range []types.Quantity{0, types.NewQuantityFromInt(-3)} {
		_, err := ledger.Record(ctx, account.ID, TransactionIn, qty, nil, "")
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidQuantity), "qty %s: got %v", qty, err)
	}
}

func TestLedger_Record_RejectsUnknownKind(t *testing.T) {
	ledger, accounts, _, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar", 0, 0)

	_, err := ledger.Record(ctx, account.ID, TransactionKind("transfer"), types.NewQuantityFromInt(1), nil, "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestLedger_Record_ThresholdEventFiresOnCrossingOnly(t *testing.T) {
	ledger, accounts, _, events := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar",
		types.NewQuantityFromInt(12), types.NewQuantityFromInt(10))

	// 12 -> 9 crosses the threshold.
	_, err := ledger.Record(ctx, account.ID, TransactionProductionConsumption, types.NewQuantityFromInt(3), nil, "BATCH-2026-0001")
	require.NoError(t, err)

	// 9 -> 7 is already below; no second alert.
	_, err = ledger.Record(ctx, account.ID, TransactionProductionConsumption, types.NewQuantityFromInt(2), nil, "BATCH-2026-0001")
	require.NoError(t, err)

	published := events.published()
	require.Len(t, published, 1)
	assert.Equal(t, EventStockBelowThreshold, published[0].EventType)
	assert.Equal(t, "StockAccount", published[0].AggregateType)
	assert.Equal(t, account.ID, published[0].AggregateID)
}

func TestLedger_Record_NoThresholdEventOnPurchase(t *testing.T) {
	ledger, accounts, _, events := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar",
		types.NewQuantityFromInt(2), types.NewQuantityFromInt(10))

	unitCost := types.MustMoney("1")
	_, err := ledger.Record(ctx, account.ID, TransactionIn, types.NewQuantityFromInt(3), &unitCost, "PO-1")
	require.NoError(t, err)
	assert.Empty(t, events.published())
}

func TestLedger_Record_SurfacesConcurrentModification(t *testing.T) {
	ledger, accounts, txns, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar", types.NewQuantityFromInt(50), 0)
	accounts.failUpdate = apperror.NewConcurrentModification("stock account", account.ID)

	_, err := ledger.Record(ctx, account.ID, TransactionDamage, types.NewQuantityFromInt(1), nil, "")
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))
	assert.Empty(t, txns.byAccount(account.ID))
}

func TestLedger_RecordLotConsumption_OneEntryPerLot(t *testing.T) {
	ledger, accounts, txns, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar", types.NewQuantityFromInt(100), 0)

	posted, err := ledger.RecordLotConsumption(ctx, account.ID, TransactionProductionConsumption, []LotDeduction{
		{LotID: id.New(), QuantityTaken: types.NewQuantityFromInt(60), UnitCost: types.MustMoney("5")},
		{LotID: id.New(), QuantityTaken: types.NewQuantityFromInt(20), UnitCost: types.MustMoney("7.50")},
	}, "BATCH-2026-0003")
	require.NoError(t, err)
	require.Len(t, posted, 2)

	assert.Equal(t, types.NewQuantityFromInt(60), posted[0].Quantity)
	require.NotNil(t, posted[0].TotalCost)
	assert.True(t, posted[0].TotalCost.Equal(types.MustMoney("300")), "got %s", posted[0].TotalCost)
	assert.Equal(t, types.NewQuantityFromInt(20), posted[1].Quantity)
	require.NotNil(t, posted[1].TotalCost)
	assert.True(t, posted[1].TotalCost.Equal(types.MustMoney("150")), "got %s", posted[1].TotalCost)

	stored := accounts.stored(account.ID)
	assert.Equal(t, types.NewQuantityFromInt(20), stored.Quantity)
	assert.Equal(t, 2, stored.Version, "one account write for the whole set")
	assert.Equal(t, 1, txns.batchCalls, "entries flush in one batch insert")
	assert.Len(t, txns.byAccount(account.ID), 2)
}

func TestLedger_RecordLotConsumption_InsufficientAggregateLeavesNoTrace(t *testing.T) {
	ledger, accounts, txns, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Malt", types.NewQuantityFromInt(30), 0)

	_, err := ledger.RecordLotConsumption(ctx, account.ID, TransactionDamage, []LotDeduction{
		{LotID: id.New(), QuantityTaken: types.NewQuantityFromInt(20), UnitCost: types.MustMoney("4")},
		{LotID: id.New(), QuantityTaken: types.NewQuantityFromInt(15), UnitCost: types.MustMoney("4")},
	}, "spill")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock), "got %v", err)

	stored := accounts.stored(account.ID)
	assert.Equal(t, types.NewQuantityFromInt(30), stored.Quantity)
	assert.Equal(t, 1, stored.Version)
	assert.Zero(t, txns.batchCalls)
	assert.Empty(t, txns.byAccount(account.ID))
}

func TestLedger_RecordLotConsumption_ThresholdEventFiresOnce(t *testing.T) {
	ledger, accounts, _, events := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar",
		types.NewQuantityFromInt(60), types.NewQuantityFromInt(50))

	_, err := ledger.RecordLotConsumption(ctx, account.ID, TransactionProductionConsumption, []LotDeduction{
		{LotID: id.New(), QuantityTaken: types.NewQuantityFromInt(10), UnitCost: types.MustMoney("5")},
		{LotID: id.New(), QuantityTaken: types.NewQuantityFromInt(10), UnitCost: types.MustMoney("5")},
	}, "BATCH-2026-0004")
	require.NoError(t, err)

	published := events.published()
	require.Len(t, published, 1, "one alert for the whole set")
	assert.Equal(t, EventStockBelowThreshold, published[0].EventType)
}

func TestLedger_RecordLotConsumption_Validation(t *testing.T) {
	ledger, accounts, _, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar", types.NewQuantityFromInt(100), 0)

	_, err := ledger.RecordLotConsumption(ctx, account.ID, TransactionProductionConsumption, nil, "x")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = ledger.RecordLotConsumption(ctx, account.ID, TransactionIn, []LotDeduction{
		{LotID: id.New(), QuantityTaken: types.NewQuantityFromInt(1), UnitCost: types.MustMoney("1")},
	}, "x")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "purchases are not lot consumptions")

	_, err = ledger.RecordLotConsumption(ctx, account.ID, TransactionDamage, []LotDeduction{
		{LotID: id.New(), QuantityTaken: types.Quantity(0), UnitCost: types.MustMoney("1")},
	}, "x")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidQuantity))
}

func TestLedger_Query(t *testing.T) {
	ledger, accounts, _, _ := newLedgerFixture()
	ctx := context.Background()
	account := seedAccount(t, accounts, AccountKindRawMaterial, "Sugar", 0, 0)

	unitCost := types.MustMoney("2")
	for _, ref := range []string{"PO-1", "PO-2", "PO-3"} {
		_, err := ledger.Record(ctx, account.ID, TransactionIn, types.NewQuantityFromInt(10), &unitCost, ref)
		require.NoError(t, err)
	}

	entries, err := ledger.Query(ctx, account.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "PO-3", entries[0].Reference, "newest first")
	assert.Equal(t, "PO-2", entries[1].Reference)

	rest, err := ledger.Query(ctx, account.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "PO-1", rest[0].Reference)
}

func TestLedger_Query_UnknownAccount(t *testing.T) {
	ledger, _, _, _ := newLedgerFixture()

	_, err := ledger.Query(context.Background(), id.New(), 10, 0)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
