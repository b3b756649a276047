package redis

import (
	"context"
	"time"

	"cab/internal/domain"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	ReleaseBookingLock(ctx context.Context, bookingID string) error
	IsBookingLocked(ctx context.Context, bookingID string) (bool, error)
	AcquireSweeperLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseSweeperLock(ctx context.Context) error
}

// CacheStoreInterface defines the interface for booking caching.
type CacheStoreInterface interface {
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	SetBooking(ctx context.Context, booking *domain.Booking) error
	InvalidateBooking(ctx context.Context, bookingID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
