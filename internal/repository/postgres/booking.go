package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"cab/internal/domain"
	"cab/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

var _ repository.BookingRepository = (*BookingRepository)(nil)

const bookingColumns = `id, customer_id, car_id, driver_id, pickup_location, destination, pickup_date, pickup_time, pickup_at, booking_date,
	distance, distance_fare, tax, driver_fee, total_amount, refund_amount, driver_required, driver_assignment_message,
	status, cancellation_reason, cancelled_at`

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := r.q.ExecContext(ctx, query,
		b.ID,
		b.CustomerID,
		b.CarID,
		nullString(b.DriverID),
		b.PickupLocation,
		b.Destination,
		b.PickupDate,
		b.PickupTime,
		nullTime(b.PickupAt),
		b.BookingDate,
		b.Distance,
		b.DistanceFare,
		b.Tax,
		b.DriverFee,
		b.TotalAmount,
		b.RefundAmount,
		b.DriverRequired,
		b.DriverAssignmentMessage,
		string(b.Status),
		nullString(b.CancellationReason),
		nullTime(b.CancelledAt),
	)
	return mapError(err)
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a booking and locks its row.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return scanBooking(r.q.QueryRowContext(ctx, query, id))
}

// Update updates an existing booking.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `
		UPDATE bookings
		SET driver_id = $1, pickup_location = $2, destination = $3, pickup_date = $4, pickup_time = $5, pickup_at = $6,
			distance = $7, distance_fare = $8, tax = $9, driver_fee = $10, total_amount = $11, refund_amount = $12,
			driver_required = $13, driver_assignment_message = $14, status = $15, cancellation_reason = $16, cancelled_at = $17
		WHERE id = $18
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(b.DriverID),
		b.PickupLocation,
		b.Destination,
		b.PickupDate,
		b.PickupTime,
		nullTime(b.PickupAt),
		b.Distance,
		b.DistanceFare,
		b.Tax,
		b.DriverFee,
		b.TotalAmount,
		b.RefundAmount,
		b.DriverRequired,
		b.DriverAssignmentMessage,
		string(b.Status),
		nullString(b.CancellationReason),
		nullTime(b.CancelledAt),
		b.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

// Delete removes a booking.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// ListAll retrieves every booking, newest first.
func (r *BookingRepository) ListAll(ctx context.Context) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY booking_date DESC, id`
	return r.list(ctx, query)
}

// ListByCustomer retrieves the bookings owned by a customer.
func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1 ORDER BY booking_date DESC, id`
	return r.list(ctx, query, customerID)
}

// ListByCarAndStatus retrieves the bookings of a car in the given status.
func (r *BookingRepository) ListByCarAndStatus(ctx context.Context, carID string, status domain.BookingStatus) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE car_id = $1 AND status = $2 ORDER BY pickup_date, pickup_time`
	return r.list(ctx, query, carID, string(status))
}

// ListUnassignedByStatus retrieves bookings in the given status with no driver.
func (r *BookingRepository) ListUnassignedByStatus(ctx context.Context, status domain.BookingStatus) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = $1 AND driver_id IS NULL ORDER BY pickup_date, pickup_time`
	return r.list(ctx, query, string(status))
}

// ListDueForStart retrieves active bookings whose pickup instant has passed.
func (r *BookingRepository) ListDueForStart(ctx context.Context, statuses []domain.BookingStatus, now time.Time) ([]*domain.Booking, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = ANY($1) AND (pickup_at IS NULL OR pickup_at <= $2)
		ORDER BY pickup_at NULLS FIRST, id
	`
	return r.list(ctx, query, pq.Array(names), now)
}

// ExistsByCustomerAndDriver reports whether the customer has any booking served by the driver.
func (r *BookingRepository) ExistsByCustomerAndDriver(ctx context.Context, customerID, driverID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM bookings WHERE customer_id = $1 AND driver_id = $2)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, customerID, driverID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var driverID, cancellationReason sql.NullString
	var pickupAt, cancelledAt sql.NullTime
	var status string

	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.CarID,
		&driverID,
		&b.PickupLocation,
		&b.Destination,
		&b.PickupDate,
		&b.PickupTime,
		&pickupAt,
		&b.BookingDate,
		&b.Distance,
		&b.DistanceFare,
		&b.Tax,
		&b.DriverFee,
		&b.TotalAmount,
		&b.RefundAmount,
		&b.DriverRequired,
		&b.DriverAssignmentMessage,
		&status,
		&cancellationReason,
		&cancelledAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if b.Status, err = domain.ParseBookingStatus(status); err != nil {
		return nil, err
	}
	b.DriverID = driverID.String
	b.CancellationReason = cancellationReason.String
	if pickupAt.Valid {
		b.PickupAt = pickupAt.Time
	}
	if cancelledAt.Valid {
		b.CancelledAt = cancelledAt.Time
	}

	return &b, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
