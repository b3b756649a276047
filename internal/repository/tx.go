package repository

import "context"

// Stores groups the repositories bound to one unit of work.
type Stores struct {
	Bookings  BookingRepository
	Cars      CarRepository
	Drivers   DriverRepository
	Customers CustomerRepository
}

// Transactor runs functions inside a database transaction.
type Transactor interface {
	// WithinTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error

	// WithinSavepoint runs fn under a named savepoint of the transaction
	// carried by ctx. When fn fails only its own writes are rolled back and
	// the surrounding transaction stays usable. Without a transaction in ctx
	// fn runs as is.
	WithinSavepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error
}
