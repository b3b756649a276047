package postgres

import (
	"context"
	"database/sql"

	"cab/internal/domain"
	"cab/internal/repository"
)

// CustomerRepository is a PostgreSQL implementation of repository.CustomerRepository.
type CustomerRepository struct {
	q Querier
}

// NewCustomerRepository creates a new PostgreSQL customer repository.
func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{q: db}
}

// NewCustomerRepositoryWithTx creates a customer repository using a transaction.
func NewCustomerRepositoryWithTx(tx *sql.Tx) *CustomerRepository {
	return &CustomerRepository{q: tx}
}

var _ repository.CustomerRepository = (*CustomerRepository)(nil)

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `SELECT id, name, email, COALESCE(phone, '') FROM customers WHERE id = $1`
	return scanCustomer(r.q.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a customer by email address.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT id, name, email, COALESCE(phone, '') FROM customers WHERE email = $1`
	return scanCustomer(r.q.QueryRowContext(ctx, query, email))
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var customer domain.Customer
	if err := row.Scan(&customer.ID, &customer.Name, &customer.Email, &customer.Phone); err != nil {
		return nil, mapError(err)
	}
	return &customer, nil
}
