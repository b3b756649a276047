package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"cab/internal/domain"
)

// DefaultBookingCacheTTL bounds how stale a cached booking can get if an
// invalidation is lost.
const DefaultBookingCacheTTL = 30 * time.Second

const bookingCachePrefix = "cache:booking:"

// CacheStore handles booking caching in Redis.
type CacheStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore. A non-positive ttl uses the default.
func NewCacheStore(client redis.UniversalClient, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultBookingCacheTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

// CachedBooking is the JSON form of a booking held in the cache.
type CachedBooking struct {
	ID                      string    `json:"id"`
	CustomerID              string    `json:"customer_id"`
	CarID                   string    `json:"car_id"`
	DriverID                string    `json:"driver_id,omitempty"`
	PickupLocation          string    `json:"pickup_location"`
	Destination             string    `json:"destination"`
	PickupDate              string    `json:"pickup_date"`
	PickupTime              string    `json:"pickup_time"`
	PickupAt                time.Time `json:"pickup_at"`
	BookingDate             time.Time `json:"booking_date"`
	Distance                float64   `json:"distance"`
	DistanceFare            float64   `json:"distance_fare"`
	Tax                     float64   `json:"tax"`
	DriverFee               float64   `json:"driver_fee"`
	TotalAmount             float64   `json:"total_amount"`
	RefundAmount            float64   `json:"refund_amount"`
	DriverRequired          bool      `json:"driver_required"`
	DriverAssignmentMessage string    `json:"driver_assignment_message"`
	Status                  string    `json:"status"`
	CancellationReason      string    `json:"cancellation_reason,omitempty"`
	CancelledAt             time.Time `json:"cancelled_at"`
}

// GetBooking retrieves a booking from cache. Returns nil, nil on a miss.
func (s *CacheStore) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	data, err := s.client.Get(ctx, bookingCachePrefix+bookingID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cached CachedBooking
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.toDomain()
}

// SetBooking stores a booking in cache.
func (s *CacheStore) SetBooking(ctx context.Context, b *domain.Booking) error {
	data, err := json.Marshal(fromDomain(b))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, bookingCachePrefix+b.ID, data, s.ttl).Err()
}

// InvalidateBooking removes a booking from cache.
func (s *CacheStore) InvalidateBooking(ctx context.Context, bookingID string) error {
	return s.client.Del(ctx, bookingCachePrefix+bookingID).Err()
}

func fromDomain(b *domain.Booking) CachedBooking {
	return CachedBooking{
		ID:                      b.ID,
		CustomerID:              b.CustomerID,
		CarID:                   b.CarID,
		DriverID:                b.DriverID,
		PickupLocation:          b.PickupLocation,
		Destination:             b.Destination,
		PickupDate:              b.PickupDate,
		PickupTime:              b.PickupTime,
		PickupAt:                b.PickupAt,
		BookingDate:             b.BookingDate,
		Distance:                b.Distance,
		DistanceFare:            b.DistanceFare,
		Tax:                     b.Tax,
		DriverFee:               b.DriverFee,
		TotalAmount:             b.TotalAmount,
		RefundAmount:            b.RefundAmount,
		DriverRequired:          b.DriverRequired,
		DriverAssignmentMessage: b.DriverAssignmentMessage,
		Status:                  string(b.Status),
		CancellationReason:      b.CancellationReason,
		CancelledAt:             b.CancelledAt,
	}
}

func (c CachedBooking) toDomain() (*domain.Booking, error) {
	status, err := domain.ParseBookingStatus(c.Status)
	if err != nil {
		return nil, err
	}
	return &domain.Booking{
		ID:                      c.ID,
		CustomerID:              c.CustomerID,
		CarID:                   c.CarID,
		DriverID:                c.DriverID,
		PickupLocation:          c.PickupLocation,
		Destination:             c.Destination,
		PickupDate:              c.PickupDate,
		PickupTime:              c.PickupTime,
		PickupAt:                c.PickupAt,
		BookingDate:             c.BookingDate,
		Distance:                c.Distance,
		DistanceFare:            c.DistanceFare,
		Tax:                     c.Tax,
		DriverFee:               c.DriverFee,
		TotalAmount:             c.TotalAmount,
		RefundAmount:            c.RefundAmount,
		DriverRequired:          c.DriverRequired,
		DriverAssignmentMessage: c.DriverAssignmentMessage,
		Status:                  status,
		CancellationReason:      c.CancellationReason,
		CancelledAt:             c.CancelledAt,
	}, nil
}
