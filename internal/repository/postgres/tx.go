package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"cab/internal/repository"
)

type txKey struct{}

// Transactor is a PostgreSQL implementation of repository.Transactor.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

var _ repository.Transactor = (*Transactor)(nil)

// NewStores returns repositories that run outside any transaction.
func NewStores(db *sql.DB) repository.Stores {
	return repository.Stores{
		Bookings:  NewBookingRepository(db),
		Cars:      NewCarRepository(db),
		Drivers:   NewDriverRepository(db),
		Customers: NewCustomerRepository(db),
	}
}

// NewStoresWithTx returns repositories bound to tx.
func NewStoresWithTx(tx *sql.Tx) repository.Stores {
	return repository.Stores{
		Bookings:  NewBookingRepositoryWithTx(tx),
		Cars:      NewCarRepositoryWithTx(tx),
		Drivers:   NewDriverRepositoryWithTx(tx),
		Customers: NewCustomerRepositoryWithTx(tx),
	}
}

// WithinTx runs fn in a transaction with transaction-scoped repositories.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx), NewStoresWithTx(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithinSavepoint runs fn under a savepoint of the transaction in ctx.
func (t *Transactor) WithinSavepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	if !ok {
		return fn(ctx)
	}

	ident := pq.QuoteIdentifier(name)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+ident); err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+ident); rbErr != nil {
			return fmt.Errorf("failed to roll back savepoint %s: %v (cause: %w)", name, rbErr, err)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+ident); err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", name, err)
	}
	return nil
}
