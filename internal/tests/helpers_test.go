package tests

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"cab/internal/clock"
	"cab/internal/domain"
	"cab/internal/service"
)

// colombo is fixed so tests don't depend on the host's zone database.
var colombo = time.FixedZone("+0530", 5*60*60+30*60)

// testNow is Monday 2025-03-10 09:00 local time.
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, colombo)

const (
	testCustomerID    = "cust-1"
	testCustomerEmail = "amal@example.com"
	otherCustomerID   = "cust-2"
	testCarID         = "car-1"
)

type testEnv struct {
	store    *MockStore
	clock    *clock.Fixed
	locks    *MockLockStore
	cache    *MockCacheStore
	notifier *MockNotifier
	logHook  *test.Hook
	logger   *logrus.Logger
	service  *service.BookingService
}

// newTestEnv returns a booking service over an in-memory store seeded with
// two customers and one available car with a base rate of 1000.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger, hook := test.NewNullLogger()
	env := &testEnv{
		store:    NewMockStore(),
		clock:    clock.NewFixed(testNow),
		locks:    NewMockLockStore(),
		cache:    NewMockCacheStore(),
		notifier: NewMockNotifier(),
		logHook:  hook,
		logger:   logger,
	}

	env.store.AddCustomer(&domain.Customer{ID: testCustomerID, Name: "Amal Perera", Email: testCustomerEmail})
	env.store.AddCustomer(&domain.Customer{ID: otherCustomerID, Name: "Nimali Silva", Email: "nimali@example.com"})
	env.store.AddCar(&domain.Car{ID: testCarID, Brand: "Toyota", Model: "Prius", LicensePlate: "CAB-1234", Capacity: 4, BaseRate: 1000, Available: true})

	fares := service.NewFareCalculator(service.DefaultFareConfig())
	env.service = service.NewBookingService(service.BookingServiceDeps{
		Transactor:   env.store,
		Stores:       env.store.Stores(),
		Clock:        env.clock,
		Availability: service.NewAvailabilityChecker(logger),
		Assigner:     service.NewDriverAssigner(fares),
		Fares:        fares,
		Notifier:     env.notifier,
		LockStore:    env.locks,
		CacheStore:   env.cache,
		Logger:       logger,
	})
	return env
}

// newSweeper returns a sweeper sharing env's store, clock and locks.
func (env *testEnv) newSweeper() *service.Sweeper {
	return service.NewSweeper(service.SweeperDeps{
		Transactor: env.store,
		Bookings:   env.store.Bookings,
		Clock:      env.clock,
		LockStore:  env.locks,
		CacheStore: env.cache,
		Logger:     env.logger,
	})
}

// bookingRequest returns a valid request for the test car, pickup tomorrow
// at 10:00, 10 km, no driver.
func bookingRequest() service.CreateBookingRequest {
	return service.CreateBookingRequest{
		CustomerID:     testCustomerID,
		CarID:          testCarID,
		PickupLocation: "Colombo Fort",
		Destination:    "Bandaranaike Airport",
		PickupDate:     "2025-03-11",
		PickupTime:     "10:00",
		Distance:       10,
	}
}

func (env *testEnv) mustCreate(t *testing.T, req service.CreateBookingRequest) *domain.Booking {
	t.Helper()
	booking, err := env.service.CreateBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	return booking
}

func (env *testEnv) mustConfirm(t *testing.T, bookingID string) *domain.Booking {
	t.Helper()
	booking, err := env.service.ConfirmBooking(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("ConfirmBooking failed: %v", err)
	}
	return booking
}

// addBooking stores a booking directly, bypassing the service.
func (env *testEnv) addBooking(id, carID, date, tm string, status domain.BookingStatus) *domain.Booking {
	b := &domain.Booking{
		ID:             id,
		CustomerID:     testCustomerID,
		CarID:          carID,
		PickupLocation: "Colombo Fort",
		Destination:    "Kandy",
		PickupDate:     date,
		PickupTime:     tm,
		BookingDate:    testNow.Add(-time.Hour),
		TotalAmount:    100,
		Status:         status,
	}
	if at, err := service.ParsePickupDateTime(date, tm, colombo); err == nil {
		b.PickupAt = at
	}
	env.store.AddBooking(b)
	return b
}
