package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"cab/internal/domain"
	"cab/internal/repository"
)

func TestTransactor_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cars").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context, stores repository.Stores) error {
		return stores.Cars.Update(ctx, &domain.Car{ID: "car-1", Available: false})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context, stores repository.Stores) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactor_SavepointRollsBackOnlyInnerWork(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SAVEPOINT "assign_driver"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ROLLBACK TO SAVEPOINT "assign_driver"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txr := NewTransactor(db)
	inner := errors.New("driver update failed")

	err = txr.WithinTx(context.Background(), func(ctx context.Context, stores repository.Stores) error {
		spErr := txr.WithinSavepoint(ctx, "assign_driver", func(ctx context.Context) error {
			return inner
		})
		if !errors.Is(spErr, inner) {
			t.Errorf("expected inner error, got %v", spErr)
		}
		return stores.Bookings.Create(ctx, &domain.Booking{ID: "bk-1", Status: domain.BookingStatusPending})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDriverRepository_EmptyPool(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM drivers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "car_id", "available", "has_own_car"}))

	_, err = NewDriverRepository(db).FirstAvailablePoolDriver(context.Background())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCarRepository_GetByIDForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM cars WHERE id = \\$1 FOR UPDATE").
		WithArgs("car-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "brand", "model", "license_plate", "capacity", "base_rate", "driver_rate", "assigned_driver_id", "available"}).
			AddRow("car-1", "Toyota", "Prius", "CAB-1001", int64(4), 900.0, 0.0, "drv-9", true))

	car, err := NewCarRepository(db).GetByIDForUpdate(context.Background(), "car-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !car.HasFixedDriver() || car.AssignedDriverID != "drv-9" {
		t.Errorf("expected fixed driver drv-9, got %+v", car)
	}
	if car.Capacity != 4 {
		t.Errorf("expected capacity 4, got %d", car.Capacity)
	}
}
