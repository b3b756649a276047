package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cab/internal/clock"
	"cab/internal/domain"
	"cab/internal/redis"
	"cab/internal/repository"
)

const (
	defaultBookingLockTTL = 10 * time.Second
	assignDriverSavepoint = "assign_driver"
)

// BookingServiceDeps contains all dependencies needed by BookingService.
// LockStore, CacheStore and Notifier are optional.
type BookingServiceDeps struct {
	Transactor   repository.Transactor
	Stores       repository.Stores
	Clock        clock.Clock
	Availability *AvailabilityChecker
	Assigner     *DriverAssigner
	Fares        *FareCalculator
	Notifier     Notifier
	Templates    NotificationTemplates
	LockStore    redis.LockStoreInterface
	CacheStore   redis.CacheStoreInterface
	LockTTL      time.Duration
	Logger       logrus.FieldLogger
}

// BookingService handles the booking lifecycle.
type BookingService struct {
	tx           repository.Transactor
	stores       repository.Stores
	clock        clock.Clock
	availability *AvailabilityChecker
	assigner     *DriverAssigner
	fares        *FareCalculator
	notifier     Notifier
	templates    NotificationTemplates
	lockStore    redis.LockStoreInterface
	cacheStore   redis.CacheStoreInterface
	lockTTL      time.Duration
	logger       logrus.FieldLogger
}

// NewBookingService creates a new BookingService.
func NewBookingService(deps BookingServiceDeps) *BookingService {
	lockTTL := deps.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultBookingLockTTL
	}
	return &BookingService{
		tx:           deps.Transactor,
		stores:       deps.Stores,
		clock:        deps.Clock,
		availability: deps.Availability,
		assigner:     deps.Assigner,
		fares:        deps.Fares,
		notifier:     deps.Notifier,
		templates:    deps.Templates,
		lockStore:    deps.LockStore,
		cacheStore:   deps.CacheStore,
		lockTTL:      lockTTL,
		logger:       deps.Logger,
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	BookingID      string // optional, generated when empty
	CustomerID     string
	CarID          string
	PickupLocation string
	Destination    string
	PickupDate     string // YYYY-MM-DD
	PickupTime     string // HH:MM
	Distance       float64
	DriverRequired bool
}

// CreateBooking reserves a car, and a driver when requested, for a pickup.
//
// The car row stays locked from the availability check until the booking is
// written, so two requests for the same car are decided one after the other.
// A pickup that has already passed starts the booking immediately.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	pickupAt, err := s.validateCreateRequest(req)
	if err != nil {
		return nil, err
	}

	customer, err := s.stores.Customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, notFound("customer", req.CustomerID, err)
	}

	bookingID := req.BookingID
	if bookingID == "" {
		bookingID = uuid.New().String()
	}

	var booking *domain.Booking
	var car *domain.Car

	err = s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		car, err = stores.Cars.GetByIDForUpdate(ctx, req.CarID)
		if err != nil {
			return notFound("car", req.CarID, err)
		}

		available, err := s.availability.IsAvailable(ctx, stores.Bookings, car, req.PickupDate, req.PickupTime, "")
		if err != nil {
			return err
		}
		if !available {
			return ErrCarUnavailable
		}

		now := s.clock.Now()
		booking = &domain.Booking{
			ID:             bookingID,
			CustomerID:     req.CustomerID,
			CarID:          car.ID,
			PickupLocation: req.PickupLocation,
			Destination:    req.Destination,
			PickupDate:     req.PickupDate,
			PickupTime:     req.PickupTime,
			PickupAt:       pickupAt,
			BookingDate:    now,
			Distance:       req.Distance,
			DriverRequired: req.DriverRequired,
			Status:         domain.BookingStatusPending,
		}

		assignment := unassigned(MsgDriverNotRequested)
		if req.DriverRequired {
			assignment = s.assignDriver(ctx, stores, car)
			if !assignment.Assigned() {
				booking.DriverRequired = false
			}
		}
		booking.DriverID = assignment.DriverID
		booking.DriverAssignmentMessage = assignment.Message

		fare := s.fares.Quote(car.BaseRate, req.Distance, assignment.Assigned())
		booking.DistanceFare = fare.DistanceFare
		booking.Tax = fare.Tax
		booking.DriverFee = fare.DriverFee
		booking.TotalAmount = fare.Total

		if pickupAt.Before(now.Truncate(time.Minute)) {
			car.Available = false
			if err := stores.Cars.Update(ctx, car); err != nil {
				return internalError("update car", err)
			}
			if err := booking.Start(); err != nil {
				return stateError(err)
			}
		}

		if err := stores.Bookings.Create(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return fmt.Errorf("%w: booking %s already exists", ErrInvalidArgument, bookingID)
			}
			return internalError("create booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"car_id":     booking.CarID,
		"driver_id":  booking.DriverID,
		"status":     booking.Status,
	}).Info("booking created")

	s.notify(ctx, customer.Email, s.templates.BookingCreated(booking, customer, car))
	return booking, nil
}

// assignDriver runs driver assignment under a savepoint. Failures, a missing
// fixed driver included, are logged and degrade to no driver.
func (s *BookingService) assignDriver(ctx context.Context, stores repository.Stores, car *domain.Car) DriverAssignment {
	var assignment DriverAssignment
	err := s.tx.WithinSavepoint(ctx, assignDriverSavepoint, func(ctx context.Context) error {
		var err error
		assignment, err = s.assigner.Assign(ctx, stores.Drivers, car)
		return err
	})
	if err == nil {
		return assignment
	}

	s.logger.WithFields(logrus.Fields{
		"car_id":    car.ID,
		"driver_id": car.AssignedDriverID,
	}).WithError(err).Error("driver assignment failed")
	return unassigned(MsgDriverAssignmentFailed)
}

// validateCreateRequest validates the request and returns the pickup instant.
func (s *BookingService) validateCreateRequest(req CreateBookingRequest) (time.Time, error) {
	switch {
	case strings.TrimSpace(req.CustomerID) == "":
		return time.Time{}, ErrInvalidCustomerID
	case strings.TrimSpace(req.CarID) == "":
		return time.Time{}, ErrInvalidCarID
	case strings.TrimSpace(req.PickupLocation) == "":
		return time.Time{}, ErrInvalidPickupLocation
	case strings.TrimSpace(req.Destination) == "":
		return time.Time{}, ErrInvalidDestination
	case req.Distance < 0:
		return time.Time{}, ErrNegativeDistance
	}

	day, err := time.ParseInLocation(domain.PickupDateLayout, req.PickupDate, s.clock.Location())
	if err != nil {
		return time.Time{}, ErrInvalidPickupDate
	}
	at, err := time.Parse(domain.PickupTimeLayout, req.PickupTime)
	if err != nil {
		return time.Time{}, ErrInvalidPickupTime
	}

	return time.Date(day.Year(), day.Month(), day.Day(), at.Hour(), at.Minute(), 0, 0, s.clock.Location()), nil
}

// ConfirmBooking moves a PENDING booking to CONFIRMED. The slot is checked
// again against the car's other confirmed bookings.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	var booking *domain.Booking
	err := s.withBookingLock(ctx, bookingID, func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
			var err error
			booking, err = stores.Bookings.GetByIDForUpdate(ctx, bookingID)
			if err != nil {
				return notFound("booking", bookingID, err)
			}
			if booking.Status != domain.BookingStatusPending {
				return ErrBookingNotPending
			}

			car, err := stores.Cars.GetByIDForUpdate(ctx, booking.CarID)
			if err != nil {
				return notFound("car", booking.CarID, err)
			}
			conflict, err := s.availability.HasConflict(ctx, stores.Bookings, car.ID, booking.PickupDate, booking.PickupTime, booking.ID)
			if err != nil {
				return err
			}
			if conflict {
				return ErrCarUnavailable
			}

			if err := booking.Confirm(); err != nil {
				return stateError(err)
			}
			return internalError("update booking", stores.Bookings.Update(ctx, booking))
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("booking_id", bookingID).Info("booking confirmed")
	s.notifyStatus(ctx, booking, "Booking Confirmed")
	return booking, nil
}

// CancelBooking cancels a customer's booking, frees its car and driver and
// records the refund.
func (s *BookingService) CancelBooking(ctx context.Context, customerID, bookingID, reason string) (*domain.Booking, error) {
	if customerID == "" {
		return nil, ErrInvalidCustomerID
	}
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	var booking *domain.Booking
	err := s.withBookingLock(ctx, bookingID, func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
			var err error
			booking, err = stores.Bookings.GetByIDForUpdate(ctx, bookingID)
			if err != nil {
				return notFound("booking", bookingID, err)
			}
			if booking.CustomerID != customerID {
				return ErrBookingNotOwned
			}
			if strings.TrimSpace(reason) == "" {
				return ErrEmptyCancelReason
			}
			if !booking.CanBeCancelled() {
				return ErrBookingNotCancellable
			}

			pickupAt, err := ParsePickupDateTime(booking.PickupDate, booking.PickupTime, s.clock.Location())
			if err != nil {
				return err
			}

			now := s.clock.Now()
			if err := booking.Cancel(reason, now); err != nil {
				return stateError(err)
			}
			if err := s.release(ctx, stores, booking); err != nil {
				return err
			}
			booking.RefundAmount = s.fares.Refund(booking.TotalAmount, pickupAt, now)

			return internalError("update booking", stores.Bookings.Update(ctx, booking))
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"refund":     booking.RefundAmount,
	}).Info("booking cancelled")
	s.notifyStatus(ctx, booking, "Booking Cancelled")
	return booking, nil
}

// DeleteBooking removes a PENDING booking and frees its car and driver.
// Confirmed or started bookings must be cancelled instead.
func (s *BookingService) DeleteBooking(ctx context.Context, customerID, bookingID string) error {
	if customerID == "" {
		return ErrInvalidCustomerID
	}
	if bookingID == "" {
		return ErrInvalidBookingID
	}

	err := s.withBookingLock(ctx, bookingID, func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
			booking, err := stores.Bookings.GetByIDForUpdate(ctx, bookingID)
			if err != nil {
				return notFound("booking", bookingID, err)
			}
			if booking.CustomerID != customerID {
				return ErrBookingNotOwned
			}
			if !booking.CanBeDeleted() {
				return ErrBookingNotDeletable
			}
			if err := s.release(ctx, stores, booking); err != nil {
				return err
			}
			return internalError("delete booking", stores.Bookings.Delete(ctx, bookingID))
		})
	})
	if err != nil {
		return err
	}

	s.logger.WithField("booking_id", bookingID).Info("booking deleted")
	return nil
}

// release makes the booking's car and driver available again.
func (s *BookingService) release(ctx context.Context, stores repository.Stores, booking *domain.Booking) error {
	car, err := stores.Cars.GetByIDForUpdate(ctx, booking.CarID)
	if err != nil {
		return notFound("car", booking.CarID, err)
	}
	if !car.Available {
		car.Available = true
		if err := stores.Cars.Update(ctx, car); err != nil {
			return internalError("update car", err)
		}
	}

	if !booking.HasDriver() {
		return nil
	}
	driver, err := stores.Drivers.GetByID(ctx, booking.DriverID)
	if err != nil {
		return notFound("driver", booking.DriverID, err)
	}
	if !driver.Available {
		driver.Available = true
		if err := stores.Drivers.Update(ctx, driver); err != nil {
			return internalError("update driver", err)
		}
	}
	return nil
}

// GetCustomerBookings returns the bookings owned by a customer.
func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID string) ([]*domain.Booking, error) {
	if customerID == "" {
		return nil, ErrInvalidCustomerID
	}
	bookings, err := s.stores.Bookings.ListByCustomer(ctx, customerID)
	return bookings, internalError("list customer bookings", err)
}

// GetBookingDetails returns one booking if it belongs to the customer.
func (s *BookingService) GetBookingDetails(ctx context.Context, customerID, bookingID string) (*domain.Booking, error) {
	if customerID == "" {
		return nil, ErrInvalidCustomerID
	}
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	booking := s.cached(ctx, bookingID)
	if booking == nil {
		var err error
		booking, err = s.stores.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, notFound("booking", bookingID, err)
		}
		if !s.bookingLocked(ctx, bookingID) {
			s.cache(ctx, booking)
		}
	}

	if booking.CustomerID != customerID {
		return nil, ErrBookingNotOwned
	}
	return booking, nil
}

// GetAllBookings returns every booking.
func (s *BookingService) GetAllBookings(ctx context.Context) ([]*domain.Booking, error) {
	bookings, err := s.stores.Bookings.ListAll(ctx)
	return bookings, internalError("list bookings", err)
}

// GetAvailableBookings returns PENDING bookings that have no driver yet.
func (s *BookingService) GetAvailableBookings(ctx context.Context) ([]*domain.Booking, error) {
	bookings, err := s.stores.Bookings.ListUnassignedByStatus(ctx, domain.BookingStatusPending)
	return bookings, internalError("list available bookings", err)
}

// HasBookingWithDriver reports whether the customer with the given email has
// ever booked the driver. Unknown emails have no bookings.
func (s *BookingService) HasBookingWithDriver(ctx context.Context, customerEmail, driverID string) (bool, error) {
	if driverID == "" {
		return false, ErrInvalidDriverID
	}
	customer, err := s.stores.Customers.GetByEmail(ctx, customerEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, internalError("load customer", err)
	}

	exists, err := s.stores.Bookings.ExistsByCustomerAndDriver(ctx, customer.ID, driverID)
	if err != nil {
		return false, internalError("check driver bookings", err)
	}
	return exists, nil
}

// ListCars returns cars filtered by their availability flag.
func (s *BookingService) ListCars(ctx context.Context, available bool) ([]*domain.Car, error) {
	cars, err := s.stores.Cars.ListByAvailability(ctx, available)
	return cars, internalError("list cars", err)
}

// withBookingLock serializes mutations of one booking across replicas. The
// row lock taken inside the transaction still applies when Redis is down.
// A successful mutation drops the cached booking before the lock is released.
func (s *BookingService) withBookingLock(ctx context.Context, bookingID string, fn func() error) error {
	mutate := func() error {
		if err := fn(); err != nil {
			return err
		}
		s.invalidate(ctx, bookingID)
		return nil
	}

	if s.lockStore == nil {
		return mutate()
	}

	locked, err := s.lockStore.AcquireBookingLock(ctx, bookingID, s.lockTTL)
	if err != nil {
		s.logger.WithField("booking_id", bookingID).WithError(err).Warn("booking lock unavailable, relying on row lock")
		return mutate()
	}
	if !locked {
		return ErrBookingBusy
	}
	defer func() {
		if err := s.lockStore.ReleaseBookingLock(context.WithoutCancel(ctx), bookingID); err != nil {
			s.logger.WithField("booking_id", bookingID).WithError(err).Warn("failed to release booking lock")
		}
	}()

	return mutate()
}

func (s *BookingService) cached(ctx context.Context, bookingID string) *domain.Booking {
	if s.cacheStore == nil {
		return nil
	}
	booking, err := s.cacheStore.GetBooking(ctx, bookingID)
	if err != nil {
		s.logger.WithField("booking_id", bookingID).WithError(err).Debug("booking cache read failed")
		return nil
	}
	return booking
}

// bookingLocked reports whether a mutation of the booking may be in flight.
// An unanswerable lock store counts as locked so a possibly stale row is
// never cached.
func (s *BookingService) bookingLocked(ctx context.Context, bookingID string) bool {
	if s.lockStore == nil {
		return false
	}
	locked, err := s.lockStore.IsBookingLocked(ctx, bookingID)
	if err != nil {
		s.logger.WithField("booking_id", bookingID).WithError(err).Debug("booking lock check failed")
		return true
	}
	return locked
}

func (s *BookingService) cache(ctx context.Context, booking *domain.Booking) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.SetBooking(ctx, booking); err != nil {
		s.logger.WithField("booking_id", booking.ID).WithError(err).Debug("booking cache write failed")
	}
}

func (s *BookingService) invalidate(ctx context.Context, bookingID string) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.InvalidateBooking(context.WithoutCancel(ctx), bookingID); err != nil {
		s.logger.WithField("booking_id", bookingID).WithError(err).Warn("failed to invalidate booking cache")
	}
}

// notifyStatus looks up the booking's customer and sends a status update.
func (s *BookingService) notifyStatus(ctx context.Context, booking *domain.Booking, statusMessage string) {
	if s.notifier == nil {
		return
	}
	customer, err := s.stores.Customers.GetByID(ctx, booking.CustomerID)
	if err != nil {
		s.logger.WithField("booking_id", booking.ID).WithError(err).Error("failed to load customer for notification")
		return
	}
	s.notify(ctx, customer.Email, s.templates.StatusChanged(booking, customer, statusMessage))
}

// notify sends n and only logs failures; the booking change is already committed.
func (s *BookingService) notify(ctx context.Context, recipient string, n Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipient, n.Subject, n.Body); err != nil {
		s.logger.WithFields(logrus.Fields{
			"recipient": recipient,
			"subject":   n.Subject,
		}).WithError(err).Error("failed to send notification")
	}
}
