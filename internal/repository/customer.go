package repository

import (
	"context"

	"cab/internal/domain"
)

// CustomerRepository defines the read operations for customers.
type CustomerRepository interface {
	// GetByID retrieves a customer by ID.
	GetByID(ctx context.Context, id string) (*domain.Customer, error)

	// GetByEmail retrieves a customer by email address.
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}
