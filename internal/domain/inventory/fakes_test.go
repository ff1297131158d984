package inventory

import (
	"context"
	"sort"
	"sync"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

// In-memory repository fakes. They hand out copies on reads so a caller
// mutating an entity without a matching Update* call does not leak into
// the stored state, mirroring how the real repos behave.

type fakeTxManager struct {
	mu    sync.Mutex
	calls int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return fn(ctx)
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[id.ID]*StockAccount

	failUpdate error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[id.ID]*StockAccount)}
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *StockAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, accountID id.ID) (*StockAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID]
	if !ok {
		return nil, apperror.NewNotFound("stock account", accountID)
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeAccountRepo) GetForUpdate(ctx context.Context, accountID id.ID) (*StockAccount, error) {
	return r.GetByID(ctx, accountID)
}

func (r *fakeAccountRepo) UpdateQuantity(ctx context.Context, accountID id.ID, expectedVersion int, quantity types.Quantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
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

func (r *fakeAccountRepo) List(ctx context.Context, kind *AccountKind) ([]*StockAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StockAccount
	for _, a := range r.accounts {
		if kind != nil && a.Kind != *kind {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// stored returns the live stored account for post-test assertions.
func (r *fakeAccountRepo) stored(accountID id.ID) *StockAccount {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[accountID]
}

type fakeLotRepo struct {
	mu   sync.Mutex
	lots []*StockLot

	failRemaining map[id.ID]error
}

func newFakeLotRepo() *fakeLotRepo {
	return &fakeLotRepo{}
}

func (r *fakeLotRepo) Create(ctx context.Context, lot *StockLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lot
	r.lots = append(r.lots, &cp)
	return nil
}

func (r *fakeLotRepo) GetOpenForUpdate(ctx context.Context, materialID id.ID) ([]*StockLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StockLot
	for _, l := range r.lots {
		if l.MaterialID == materialID && l.QuantityRemaining.IsPositive() {
			cp := *l
			out = append(out, &cp)
		}
	}
	// Stable keeps insertion order for equal timestamps, matching the
	// received_at ASC, id ASC ordering of the real query.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out, nil
}

func (r *fakeLotRepo) UpdateRemaining(ctx context.Context, lotID id.ID, remaining types.Quantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failRemaining[lotID]; ok {
		return err
	}
	for _, l := range r.lots {
		if l.ID == lotID {
			l.QuantityRemaining = remaining
			return nil
		}
	}
	return apperror.NewNotFound("stock lot", lotID)
}

func (r *fakeLotRepo) ListByMaterial(ctx context.Context, materialID id.ID) ([]*StockLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StockLot
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

func (r *fakeLotRepo) stored(lotID id.ID) *StockLot {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lots {
		if l.ID == lotID {
			return l
		}
	}
	return nil
}

type fakeTransactionRepo struct {
	mu         sync.Mutex
	txns       []*StockTransaction
	batchCalls int

	failCreate error
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{}
}

func (r *fakeTransactionRepo) Create(ctx context.Context, txn *StockTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	cp := *txn
	r.txns = append(r.txns, &cp)
	return nil
}

func (r *fakeTransactionRepo) CreateBatch(ctx context.Context, txns []*StockTransaction) error {
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

func (r *fakeTransactionRepo) ListByAccount(ctx context.Context, accountID id.ID, limit, offset int) ([]*StockTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StockTransaction
	for i := len(r.txns) - 1; i >= 0; i-- {
		if r.txns[i].AccountID == accountID {
			cp := *r.txns[i]
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeTransactionRepo) byAccount(accountID id.ID) []*StockTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StockTransaction
	for _, t := range r.txns {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
	fail   error
}

func (p *capturePublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) published() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}
