package repository

import (
	"context"

	"cab/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// FirstAvailablePoolDriver returns the available driver without an own
	// car with the lowest ID, locking its row. Returns ErrNotFound when the
	// pool is empty.
	FirstAvailablePoolDriver(ctx context.Context) (*domain.Driver, error)

	// Update updates an existing driver.
	Update(ctx context.Context, driver *domain.Driver) error
}
