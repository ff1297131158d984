package production

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain/inventory"
)

// txStore is implemented by the in-memory repos so joinTxManager can undo
// their writes when a transaction function fails.
type txStore interface {
	snapshot() any
	restore(snap any)
}

// joinTxManager mimics the context-carried transaction: nested calls join the
// outer unit, and an error in the outermost call restores every store to its
// pre-transaction state. This is what lets the tests observe all-or-nothing
// completion without a database.
type joinTxManager struct {
	stores []txStore
	depth  int
}

func (m *joinTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.depth > 0 {
		m.depth++
		err := fn(ctx)
		m.depth--
		return err
	}

	snaps := make([]any, len(m.stores))
	for i, s := range m.stores {
		snaps[i] = s.snapshot()
	}

	m.depth++
	err := fn(ctx)
	m.depth--

	if err != nil {
		for i, s := range m.stores {
			s.restore(snaps[i])
		}
	}
	return err
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[id.ID]*inventory.StockAccount
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[id.ID]*inventory.StockAccount)}
}

func (r *memAccountRepo) snapshot() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[id.ID]*inventory.StockAccount, len(r.accounts))
	for k, v := range r.accounts {
		cp := *v
		snap[k] = &cp
	}
	return snap
}

func (r *memAccountRepo) restore(snap any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = snap.(map[id.ID]*inventory.StockAccount)
}

func (r *memAccountRepo) Create(ctx context.Context, account *inventory.StockAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *memAccountRepo) GetByID(ctx context.Context, accountID id.ID) (*inventory.StockAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID]
	if !ok {
		return nil, apperror.NewNotFound("stock account", accountID)
	}
	cp := *stored
	return &cp, nil
}

func (r *memAccountRepo) GetForUpdate(ctx context.Context, accountID id.ID) (*inventory.StockAccount, error) {
	return r.GetByID(ctx, accountID)
}

func (r *memAccountRepo) UpdateQuantity(ctx context.Context, accountID id.ID, expectedVersion int, quantity types.Quantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID]
	if !ok {
		return apperror.NewNotFound("stock account", accountID)
	}
	if stored.Version != expectedVersion {
		return apperror.NewConcurrentModification("stock account", accountID)
	}
	stored.Quantity = quantity
	stored.Version = expectedVersion + 1
	return nil
}

func (r *memAccountRepo) List(ctx context.Context, kind *inventory.AccountKind) ([]*inventory.StockAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockAccount
	for _, a := range r.accounts {
		if kind != nil && a.Kind != *kind {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memAccountRepo) quantity(accountID id.ID) types.Quantity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[accountID].Quantity
}

type memLotRepo struct {
	mu   sync.Mutex
	lots []*inventory.StockLot
}

func newMemLotRepo() *memLotRepo {
	return &memLotRepo{}
}

func (r *memLotRepo) snapshot() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make([]*inventory.StockLot, len(r.lots))
	for i, l := range r.lots {
		cp := *l
		snap[i] = &cp
	}
	return snap
}

func (r *memLotRepo) restore(snap any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lots = snap.([]*inventory.StockLot)
}

func (r *memLotRepo) Create(ctx context.Context, lot *inventory.StockLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lot
	r.lots = append(r.lots, &cp)
	return nil
}

func (r *memLotRepo) GetOpenForUpdate(ctx context.Context, materialID id.ID) ([]*inventory.StockLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockLot
	for _, l := range r.lots {
		if l.MaterialID == materialID && l.QuantityRemaining.IsPositive() {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out, nil
}

func (r *memLotRepo) UpdateRemaining(ctx context.Context, lotID id.ID, remaining types.Quantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lots {
		if l.ID == lotID {
			l.QuantityRemaining = remaining
			return nil
		}
	}
	return apperror.NewNotFound("stock lot", lotID)
}

func (r *memLotRepo) ListByMaterial(ctx context.Context, materialID id.ID) ([]*inventory.StockLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockLot
	for _, l := range r.lots {
		if l.MaterialID == materialID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out, nil
}

type memTransactionRepo struct {
	mu         sync.Mutex
	txns       []*inventory.StockTransaction
	batchCalls int
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{}
}

func (r *memTransactionRepo) snapshot() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*inventory.StockTransaction(nil), r.txns...)
}

func (r *memTransactionRepo) restore(snap any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns = snap.([]*inventory.StockTransaction)
}

func (r *memTransactionRepo) Create(ctx context.Context, txn *inventory.StockTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *txn
	r.txns = append(r.txns, &cp)
	return nil
}

func (r *memTransactionRepo) CreateBatch(ctx context.Context, txns []*inventory.StockTransaction) error {
	r.mu.Lock()
	r.batchCalls++
	r.mu.Unlock()
	for _, txn := range txns {
		if err := r.Create(ctx, txn); err != nil {
			return err
		}
	}
	return nil
}

func (r *memTransactionRepo) ListByAccount(ctx context.Context, accountID id.ID, limit, offset int) ([]*inventory.StockTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockTransaction
	for i := len(r.txns) - 1; i >= 0; i-- {
		if r.txns[i].AccountID == accountID {
			cp := *r.txns[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memTransactionRepo) byAccount(accountID id.ID) []*inventory.StockTransaction {
	out, _ := r.ListByAccount(context.Background(), accountID, 0, 0)
	return out
}

type memBatchRepo struct {
	mu      sync.Mutex
	batches map[id.ID]*Batch
}

func newMemBatchRepo() *memBatchRepo {
	return &memBatchRepo{batches: make(map[id.ID]*Batch)}
}

func (r *memBatchRepo) snapshot() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[id.ID]*Batch, len(r.batches))
	for k, v := range r.batches {
		cp := *v
		snap[k] = &cp
	}
	return snap
}

func (r *memBatchRepo) restore(snap any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = snap.(map[id.ID]*Batch)
}

func (r *memBatchRepo) Create(ctx context.Context, batch *Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *batch
	r.batches[batch.ID] = &cp
	return nil
}

func (r *memBatchRepo) GetByID(ctx context.Context, batchID id.ID) (*Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("production batch", batchID)
	}
	cp := *stored
	return &cp, nil
}

func (r *memBatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*Batch, error) {
	return r.GetByID(ctx, batchID)
}

func (r *memBatchRepo) UpdateStatus(ctx context.Context, batch *Batch, expected Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.batches[batch.ID]
	if !ok {
		return apperror.NewNotFound("production batch", batch.ID)
	}
	if stored.Status != expected {
		return apperror.NewConcurrentModification("production batch", batch.ID)
	}
	cp := *batch
	r.batches[batch.ID] = &cp
	return nil
}

func (r *memBatchRepo) SaveActuals(ctx context.Context, batch *Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.batches[batch.ID]
	if !ok {
		return apperror.NewNotFound("production batch", batch.ID)
	}
	stored.ActualItems = batch.ActualItems
	stored.ActualMaterials = batch.ActualMaterials
	stored.Quality = batch.Quality
	return nil
}

func (r *memBatchRepo) List(ctx context.Context, filter ListFilter) ([]*Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Batch
	for _, b := range r.batches {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		if filter.ProductID != nil && b.ProductID != *filter.ProductID {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlannedAt.After(out[j].PlannedAt) })
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memBatchRepo) stored(batchID id.ID) *Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[batchID]
}

// seqRow and seqQuerier back the batch id service with an in-memory counter.

type seqRow struct {
	val int64
}

func (r seqRow) Scan(dest ...any) error {
	p, ok := dest[0].(*int64)
	if !ok {
		return fmt.Errorf("unexpected scan dest %T", dest[0])
	}
	*p = r.val
	return nil
}

type seqQuerier struct {
	mu      sync.Mutex
	current int64
}

func (q *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current++
	return seqRow{q.current}
}

type capturePublisher struct {
	mu     sync.Mutex
	events []inventory.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event inventory.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) published() []inventory.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]inventory.Event(nil), p.events...)
}
