package repository

import (
	"context"

	"cab/internal/domain"
)

// CarRepository defines the persistence operations for cars.
type CarRepository interface {
	// GetByID retrieves a car by ID.
	GetByID(ctx context.Context, id string) (*domain.Car, error)

	// GetByIDForUpdate retrieves a car and locks its row until the
	// surrounding transaction ends. Every slot decision for a car is made
	// while holding this lock.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Car, error)

	// ListByAvailability retrieves cars whose availability flag matches.
	ListByAvailability(ctx context.Context, available bool) ([]*domain.Car, error)

	// Update updates an existing car.
	Update(ctx context.Context, car *domain.Car) error
}
