package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"cab/internal/domain"
	"cab/internal/repository"
)

var bookingColumnNames = []string{
	"id", "customer_id", "car_id", "driver_id", "pickup_location", "destination", "pickup_date", "pickup_time",
	"pickup_at", "booking_date", "distance", "distance_fare", "tax", "driver_fee", "total_amount", "refund_amount",
	"driver_required", "driver_assignment_message", "status", "cancellation_reason", "cancelled_at",
}

func newMock(t *testing.T) (*BookingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBookingRepository(db), mock
}

func TestBookingRepository_GetByIDScansNullableColumns(t *testing.T) {
	repo, mock := newMock(t)
	bookedAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	pickupAt := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM bookings WHERE id = \\$1").
		WithArgs("bk-1").
		WillReturnRows(sqlmock.NewRows(bookingColumnNames).AddRow(
			"bk-1", "cust-1", "car-1", nil, "Colombo", "Kandy", "2025-03-10", "10:00",
			pickupAt, bookedAt, 10.0, 15.0, 2.5, 0.0, 917.5, 0.0,
			false, "Driver not requested.", "PENDING", nil, nil,
		))

	b, err := repo.GetByID(context.Background(), "bk-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.DriverID != "" {
		t.Errorf("expected empty driver id, got %q", b.DriverID)
	}
	if b.Status != domain.BookingStatusPending {
		t.Errorf("expected PENDING, got %s", b.Status)
	}
	if !b.PickupAt.Equal(pickupAt) {
		t.Errorf("expected pickup at %s, got %s", pickupAt, b.PickupAt)
	}
	if !b.CancelledAt.IsZero() {
		t.Errorf("expected zero cancelled_at, got %s", b.CancelledAt)
	}
	if b.TotalAmount != 917.5 {
		t.Errorf("expected total 917.5, got %v", b.TotalAmount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("FROM bookings WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(bookingColumnNames))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingRepository_GetByIDRejectsUnknownStatus(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("FROM bookings WHERE id = \\$1").
		WillReturnRows(sqlmock.NewRows(bookingColumnNames).AddRow(
			"bk-1", "cust-1", "car-1", nil, "A", "B", "2025-03-10", "10:00",
			nil, now, 0.0, 0.0, 2.5, 0.0, 2.5, 0.0,
			false, "", "ARCHIVED", nil, nil,
		))

	if _, err := repo.GetByID(context.Background(), "bk-1"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestBookingRepository_CreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &domain.Booking{ID: "bk-1", Status: domain.BookingStatusPending})
	if !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestBookingRepository_UpdateMissingRow(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.Booking{ID: "ghost", Status: domain.BookingStatusCancelled})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingRepository_DeleteMissingRow(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("DELETE FROM bookings WHERE id = \\$1").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingRepository_ListDueForStart(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = ANY($1) AND (pickup_at IS NULL OR pickup_at <= $2)")).
		WithArgs(sqlmock.AnyArg(), now).
		WillReturnRows(sqlmock.NewRows(bookingColumnNames).
			AddRow("bk-1", "cust-1", "car-1", "drv-1", "A", "B", "2025-03-10", "10:00",
				now.Add(-2*time.Hour), now, 5.0, 7.5, 2.5, 50.0, 160.0, 0.0,
				true, "Driver assigned successfully.", "CONFIRMED", nil, nil).
			AddRow("bk-2", "cust-2", "car-2", nil, "A", "B", "2025-03-10", "11:30",
				now.Add(-30*time.Minute), now, 0.0, 0.0, 2.5, 0.0, 102.5, 0.0,
				false, "Driver not requested.", "PENDING", nil, nil))

	bookings, err := repo.ListDueForStart(context.Background(), domain.ActiveStatuses(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(bookings))
	}
	if bookings[0].DriverID != "drv-1" || bookings[0].Status != domain.BookingStatusConfirmed {
		t.Errorf("unexpected first booking: %+v", bookings[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingRepository_ExistsByCustomerAndDriver(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("cust-1", "drv-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByCustomerAndDriver(context.Background(), "cust-1", "drv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected booking to exist")
	}
}
