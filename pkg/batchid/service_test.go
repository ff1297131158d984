package batchid

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu   sync.Mutex
	vals map[int]int64 // year -> current_val
	err  error
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return &mockRow{err: m.err}
	}
	if m.vals == nil {
		m.vals = make(map[int]int64)
	}
	year := args[1].(int)
	m.vals[year]++
	return &mockRow{val: m.vals[year]}
}

func TestNext_Sequential(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q, DefaultConfig())
	ctx := context.Background()

	got := svc.Next(ctx, 2026)
	if got != "BATCH-2026-0001" {
		t.Errorf("expected BATCH-2026-0001, got %s", got)
	}

	got = svc.Next(ctx, 2026)
	if got != "BATCH-2026-0002" {
		t.Errorf("expected BATCH-2026-0002, got %s", got)
	}
}

func TestNext_YearScoped(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.Next(ctx, 2025)
	}

	// A new year restarts at 0001 regardless of the old year's counter.
	got := svc.Next(ctx, 2026)
	if got != "BATCH-2026-0001" {
		t.Errorf("expected BATCH-2026-0001, got %s", got)
	}
}

func TestNext_PadWidthOverflow(t *testing.T) {
	q := &mockQuerier{vals: map[int]int64{2026: 9999}}
	svc := New(q, DefaultConfig())

	got := svc.Next(context.Background(), 2026)
	if got != "BATCH-2026-10000" {
		t.Errorf("expected BATCH-2026-10000, got %s", got)
	}
}

func TestNext_ConcurrentDistinct(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q, DefaultConfig())
	ctx := context.Background()

	const n = 50
	ids := make(chan string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- svc.Next(ctx, 2026)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id issued: %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d distinct ids, got %d", n, len(seen))
	}
}

func TestNext_FallbackOnError(t *testing.T) {
	q := &mockQuerier{err: errors.New("connection refused")}
	svc := New(q, DefaultConfig())
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	}

	got := svc.Next(context.Background(), 2026)
	if !strings.HasPrefix(got, "BATCH-2026-T") {
		t.Errorf("expected fallback id with T marker, got %s", got)
	}

	// Fallback ids must never parse as sequence numbers.
	if n := ParseSequence(got); n != -1 {
		t.Errorf("expected -1 for fallback id, got %d", n)
	}
}

func TestParseSequence(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"BATCH-2026-0001", 1},
		{"BATCH-2026-0042", 42},
		{"BATCH-2026-10000", 10000},
		{"BATCH-2026-TABC123", -1},
		{"garbage", -1},
		{"", -1},
	}

	for _, tt := range tests {
		if got := ParseSequence(tt.in); got != tt.want {
			t.Errorf("ParseSequence(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
