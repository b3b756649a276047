package repository

import (
	"context"
	"time"

	"cab/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking. Returns ErrAlreadyExists on id collision.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetByIDForUpdate retrieves a booking and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error)

	// Update updates an existing booking.
	Update(ctx context.Context, booking *domain.Booking) error

	// Delete removes a booking.
	Delete(ctx context.Context, id string) error

	// ListAll retrieves every booking, newest first.
	ListAll(ctx context.Context) ([]*domain.Booking, error)

	// ListByCustomer retrieves the bookings owned by a customer.
	ListByCustomer(ctx context.Context, customerID string) ([]*domain.Booking, error)

	// ListByCarAndStatus retrieves the bookings of a car in the given status.
	ListByCarAndStatus(ctx context.Context, carID string, status domain.BookingStatus) ([]*domain.Booking, error)

	// ListUnassignedByStatus retrieves bookings in the given status with no driver.
	ListUnassignedByStatus(ctx context.Context, status domain.BookingStatus) ([]*domain.Booking, error)

	// ListDueForStart retrieves bookings in one of the statuses whose pickup
	// instant is at or before now. Rows without a derived pickup instant are
	// included so the caller can parse them itself.
	ListDueForStart(ctx context.Context, statuses []domain.BookingStatus, now time.Time) ([]*domain.Booking, error)

	// ExistsByCustomerAndDriver reports whether the customer has any booking
	// served by the driver.
	ExistsByCustomerAndDriver(ctx context.Context, customerID, driverID string) (bool, error)
}
