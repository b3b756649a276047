package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"cab/internal/domain"
	"cab/internal/redis"
	"cab/internal/repository"
	"cab/internal/service"
)

var (
	_ repository.Transactor         = (*MockStore)(nil)
	_ repository.BookingRepository  = (*MockBookingRepository)(nil)
	_ repository.CarRepository      = (*MockCarRepository)(nil)
	_ repository.DriverRepository   = (*MockDriverRepository)(nil)
	_ repository.CustomerRepository = (*MockCustomerRepository)(nil)
	_ redis.LockStoreInterface      = (*MockLockStore)(nil)
	_ redis.CacheStoreInterface     = (*MockCacheStore)(nil)
	_ service.Notifier              = (*MockNotifier)(nil)
)

// ──────────────────────────────────────────────
// MOCK STORE
// ──────────────────────────────────────────────

// MockStore is an in-memory implementation of the booking repositories and
// the Transactor. Transactions are serialized and roll back by restoring a
// snapshot, savepoints included.
type MockStore struct {
	mu        sync.RWMutex
	bookings  map[string]*domain.Booking
	cars      map[string]*domain.Car
	drivers   map[string]*domain.Driver
	customers map[string]*domain.Customer

	txMu sync.Mutex

	Bookings  *MockBookingRepository
	Cars      *MockCarRepository
	Drivers   *MockDriverRepository
	Customers *MockCustomerRepository

	// Counters for verification
	TxCount        int32
	RollbackCount  int32
	SavepointCount int32
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	m := &MockStore{
		bookings:  make(map[string]*domain.Booking),
		cars:      make(map[string]*domain.Car),
		drivers:   make(map[string]*domain.Driver),
		customers: make(map[string]*domain.Customer),
	}
	m.Bookings = &MockBookingRepository{store: m}
	m.Cars = &MockCarRepository{store: m}
	m.Drivers = &MockDriverRepository{store: m}
	m.Customers = &MockCustomerRepository{store: m}
	return m
}

// Stores returns the repositories as a repository.Stores.
func (m *MockStore) Stores() repository.Stores {
	return repository.Stores{
		Bookings:  m.Bookings,
		Cars:      m.Cars,
		Drivers:   m.Drivers,
		Customers: m.Customers,
	}
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) error {
	atomic.AddInt32(&m.TxCount, 1)
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(ctx, m.Stores()); err != nil {
		atomic.AddInt32(&m.RollbackCount, 1)
		m.restore(snap)
		return err
	}
	return nil
}

func (m *MockStore) WithinSavepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	atomic.AddInt32(&m.SavepointCount, 1)
	snap := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	bookings  map[string]domain.Booking
	cars      map[string]domain.Car
	drivers   map[string]domain.Driver
	customers map[string]domain.Customer
}

func (m *MockStore) snapshot() storeSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return storeSnapshot{
		bookings:  copyValues(m.bookings),
		cars:      copyValues(m.cars),
		drivers:   copyValues(m.drivers),
		customers: copyValues(m.customers),
	}
}

func (m *MockStore) restore(s storeSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = copyPointers(s.bookings)
	m.cars = copyPointers(s.cars)
	m.drivers = copyPointers(s.drivers)
	m.customers = copyPointers(s.customers)
}

func copyValues[T any](in map[string]*T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = *v
	}
	return out
}

func copyPointers[T any](in map[string]T) map[string]*T {
	out := make(map[string]*T, len(in))
	for k, v := range in {
		v := v
		out[k] = &v
	}
	return out
}

// AddBooking adds a booking to the mock store.
func (m *MockStore) AddBooking(b *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *b
	m.bookings[b.ID] = &c
}

// AddCar adds a car to the mock store.
func (m *MockStore) AddCar(car *domain.Car) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *car
	m.cars[car.ID] = &c
}

// AddDriver adds a driver to the mock store.
func (m *MockStore) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *driver
	m.drivers[driver.ID] = &c
}

// AddCustomer adds a customer to the mock store.
func (m *MockStore) AddCustomer(customer *domain.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *customer
	m.customers[customer.ID] = &c
}

// GetBooking returns a copy of a booking for test assertions, or nil.
func (m *MockStore) GetBooking(id string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil
	}
	c := *b
	return &c
}

// GetCar returns a copy of a car for test assertions, or nil.
func (m *MockStore) GetCar(id string) *domain.Car {
	m.mu.RLock()
	defer m.mu.RUnlock()
	car, ok := m.cars[id]
	if !ok {
		return nil
	}
	c := *car
	return &c
}

// GetDriver returns a copy of a driver for test assertions, or nil.
func (m *MockStore) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil
	}
	c := *d
	return &c
}

// CountBookings returns the number of stored bookings.
func (m *MockStore) CountBookings() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookings)
}

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	store *MockStore

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	ListError   error
	// UpdateErrors fails Update for specific booking ids.
	UpdateErrors map[string]error
}

func (r *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	atomic.AddInt32(&r.CreateCallCount, 1)
	if r.CreateError != nil {
		return r.CreateError
	}
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bookings[booking.ID]; exists {
		return repository.ErrAlreadyExists
	}
	c := *booking
	m.bookings[booking.ID] = &c
	return nil
}

func (r *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *MockBookingRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *MockBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	atomic.AddInt32(&r.UpdateCallCount, 1)
	if err := r.UpdateErrors[booking.ID]; err != nil {
		return err
	}
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[booking.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *booking
	m.bookings[booking.ID] = &c
	return nil
}

func (r *MockBookingRepository) Delete(ctx context.Context, id string) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (r *MockBookingRepository) ListAll(ctx context.Context) ([]*domain.Booking, error) {
	return r.list(func(b *domain.Booking) bool { return true })
}

func (r *MockBookingRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Booking, error) {
	return r.list(func(b *domain.Booking) bool { return b.CustomerID == customerID })
}

func (r *MockBookingRepository) ListByCarAndStatus(ctx context.Context, carID string, status domain.BookingStatus) ([]*domain.Booking, error) {
	return r.list(func(b *domain.Booking) bool { return b.CarID == carID && b.Status == status })
}

func (r *MockBookingRepository) ListUnassignedByStatus(ctx context.Context, status domain.BookingStatus) ([]*domain.Booking, error) {
	return r.list(func(b *domain.Booking) bool { return b.Status == status && b.DriverID == "" })
}

func (r *MockBookingRepository) ListDueForStart(ctx context.Context, statuses []domain.BookingStatus, now time.Time) ([]*domain.Booking, error) {
	return r.list(func(b *domain.Booking) bool {
		for _, s := range statuses {
			if b.Status == s {
				return b.PickupAt.IsZero() || !b.PickupAt.After(now)
			}
		}
		return false
	})
}

func (r *MockBookingRepository) ExistsByCustomerAndDriver(ctx context.Context, customerID, driverID string) (bool, error) {
	bookings, err := r.list(func(b *domain.Booking) bool { return b.CustomerID == customerID && b.DriverID == driverID })
	return len(bookings) > 0, err
}

// list returns copies of matching bookings, newest first.
func (r *MockBookingRepository) list(match func(b *domain.Booking) bool) ([]*domain.Booking, error) {
	if r.ListError != nil {
		return nil, r.ListError
	}
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Booking, 0)
	for _, b := range m.bookings {
		if match(b) {
			c := *b
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].BookingDate.Equal(result[j].BookingDate) {
			return result[i].BookingDate.After(result[j].BookingDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK CAR REPOSITORY
// ──────────────────────────────────────────────

// MockCarRepository is a mock implementation of CarRepository.
type MockCarRepository struct {
	store *MockStore

	// Counters for verification
	LockCallCount int32

	// Error injection
	UpdateError error
}

func (r *MockCarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	car, ok := m.cars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *car
	return &c, nil
}

func (r *MockCarRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Car, error) {
	atomic.AddInt32(&r.LockCallCount, 1)
	return r.GetByID(ctx, id)
}

func (r *MockCarRepository) ListByAvailability(ctx context.Context, available bool) ([]*domain.Car, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Car, 0)
	for _, car := range m.cars {
		if car.Available == available {
			c := *car
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MockCarRepository) Update(ctx context.Context, car *domain.Car) error {
	if r.UpdateError != nil {
		return r.UpdateError
	}
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cars[car.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *car
	m.cars[car.ID] = &c
	return nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	store *MockStore

	// Counters for verification
	UpdateCallCount int32

	// Error injection
	GetError    error
	PoolError   error
	UpdateError error
}

func (r *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	if r.GetError != nil {
		return nil, r.GetError
	}
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (r *MockDriverRepository) FirstAvailablePoolDriver(ctx context.Context) (*domain.Driver, error) {
	if r.PoolError != nil {
		return nil, r.PoolError
	}
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	var first *domain.Driver
	for _, d := range m.drivers {
		if !d.Available || d.HasOwnCar {
			continue
		}
		if first == nil || d.ID < first.ID {
			first = d
		}
	}
	if first == nil {
		return nil, repository.ErrNotFound
	}
	c := *first
	return &c, nil
}

func (r *MockDriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&r.UpdateCallCount, 1)
	if r.UpdateError != nil {
		return r.UpdateError
	}
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[driver.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *driver
	m.drivers[driver.ID] = &c
	return nil
}

// ──────────────────────────────────────────────
// MOCK CUSTOMER REPOSITORY
// ──────────────────────────────────────────────

// MockCustomerRepository is a mock implementation of CustomerRepository.
type MockCustomerRepository struct {
	store *MockStore
}

func (r *MockCustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockCustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	m := r.store
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.customers {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	return m.acquire("lock:booking:"+bookingID, ttl)
}

func (m *MockLockStore) ReleaseBookingLock(ctx context.Context, bookingID string) error {
	return m.release("lock:booking:" + bookingID)
}

func (m *MockLockStore) IsBookingLocked(ctx context.Context, bookingID string) (bool, error) {
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	return m.IsLocked(bookingID), nil
}

func (m *MockLockStore) AcquireSweeperLock(ctx context.Context, ttl time.Duration) (bool, error) {
	return m.acquire("lock:sweeper", ttl)
}

func (m *MockLockStore) ReleaseSweeperLock(ctx context.Context) error {
	return m.release("lock:sweeper")
}

func (m *MockLockStore) acquire(key string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) release(key string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

// IsLocked checks if a booking is locked (for test assertions).
func (m *MockLockStore) IsLocked(bookingID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:booking:"+bookingID]
	return exists && time.Now().Before(expiry)
}

// Hold takes a booking lock as if another replica owned it.
func (m *MockLockStore) Hold(bookingID string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks["lock:booking:"+bookingID] = time.Now().Add(ttl)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStore.
type MockCacheStore struct {
	mu       sync.Mutex
	bookings map[string]domain.Booking

	// Counters
	HitCount        int32
	InvalidateCount int32

	// OnInvalidate, when set, runs before an entry is dropped.
	OnInvalidate func(bookingID string)
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{bookings: make(map[string]domain.Booking)}
}

func (m *MockCacheStore) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	return &b, nil
}

func (m *MockCacheStore) SetBooking(ctx context.Context, b *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = *b
	return nil
}

func (m *MockCacheStore) InvalidateBooking(ctx context.Context, bookingID string) error {
	atomic.AddInt32(&m.InvalidateCount, 1)
	if m.OnInvalidate != nil {
		m.OnInvalidate(bookingID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookings, bookingID)
	return nil
}

// Has reports whether a booking is cached.
func (m *MockCacheStore) Has(bookingID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bookings[bookingID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// SentNotification is a notification captured by MockNotifier.
type SentNotification struct {
	Recipient string
	Subject   string
	Body      string
}

// MockNotifier records notifications instead of sending them.
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentNotification

	// Error injection
	Err error
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, recipientEmail, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentNotification{Recipient: recipientEmail, Subject: subject, Body: body})
	return nil
}

// Sent returns the notifications sent so far.
func (m *MockNotifier) Sent() []SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentNotification(nil), m.sent...)
}
