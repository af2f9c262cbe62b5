package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"gymclass/internal/repository/base"
	"gymclass/internal/service/ports"
)

// Store bundles the repositories behind the ports.Store boundary. The
// pool-backed Store opens a real transaction in Within; the transaction-
// bound copy it hands to fn joins the open transaction instead of nesting.
type Store struct {
	pool        *pgxpool.Pool // nil on transaction-bound copies
	templates   *TemplateRepository
	occurrences *OccurrenceRepository
	bookings    *BookingRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:        pool,
		templates:   NewTemplateRepository(pool),
		occurrences: NewOccurrenceRepository(pool),
		bookings:    NewBookingRepository(pool),
	}
}

func newTxStore(q base.Querier) *Store {
	return &Store{
		templates:   NewTemplateRepository(q),
		occurrences: NewOccurrenceRepository(q),
		bookings:    NewBookingRepository(q),
	}
}

func (s *Store) Templates() ports.TemplateRepo     { return s.templates }
func (s *Store) Occurrences() ports.OccurrenceRepo { return s.occurrences }
func (s *Store) Bookings() ports.BookingRepo       { return s.bookings }

// Within runs fn inside one transaction. Any error from fn (or the commit)
// rolls back every write fn made.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, s ports.Store) error) error {
	if s.pool == nil {
		// Already inside a transaction; join it.
		return fn(ctx, s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, newTxStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
