// Package batchid provides human-readable production batch identifiers.
// Pattern: BATCH-<year>-<4-digit sequence>, year-scoped, starting at 0001.
package batchid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"bottleworks/pkg/logger"
)

// Config holds identifier formatting configuration.
type Config struct {
	// Prefix added to all identifiers
	Prefix string

	// PadWidth is the minimum sequence width (default 4)
	PadWidth int
}

// DefaultConfig returns the production batch numbering scheme.
func DefaultConfig() Config {
	return Config{
		Prefix:   "BATCH",
		PadWidth: 4,
	}
}

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service allocates batch identifiers. Sequence derivation is a single
// upsert-returning statement on sys_sequences, so concurrent callers never
// receive the same value. When derivation fails, planning is not blocked:
// Next degrades to a timestamp-based fallback id.
type Service struct {
	querier Querier
	cfg     Config
	now     func() time.Time
}

// New creates a batch id service.
func New(querier Querier, cfg Config) *Service {
	if cfg.Prefix == "" {
		cfg.Prefix = "BATCH"
	}
	if cfg.PadWidth == 0 {
		cfg.PadWidth = 4
	}
	return &Service{
		querier: querier,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Next returns the next identifier for the year: highest issued sequence
// plus one, or 0001 when the year has none.
func (s *Service) Next(ctx context.Context, year int) string {
	var num int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (sequence_type, year, current_val)
        VALUES ($1, $2, 1)
        ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, s.cfg.Prefix, year).Scan(&num)

	if err != nil {
		fallback := s.Fallback(year)
		logger.Warn(ctx, "batch id sequence unavailable, using fallback",
			"year", year,
			"fallback", fallback,
			"error", err,
		)
		return fallback
	}

	return fmt.Sprintf("%s-%d-%0*d", s.cfg.Prefix, year, s.cfg.PadWidth, num)
}

// Fallback builds a timestamp-based identifier for when sequence derivation
// fails. The T marker keeps fallback ids out of the numeric sequence space.
func (s *Service) Fallback(year int) string {
	nanos := s.now().UTC().UnixNano()
	return fmt.Sprintf("%s-%d-T%s", s.cfg.Prefix, year, strings.ToUpper(strconv.FormatInt(nanos, 36)))
}

// ParseSequence extracts the numeric suffix from a sequential identifier.
// Returns -1 for fallback or malformed ids.
func ParseSequence(formatted string) int64 {
	parts := strings.Split(formatted, "-")
	if len(parts) != 3 {
		return -1
	}
	num, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
