package service

import (
	"context"
	"errors"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"cab/internal/clock"
	"cab/internal/domain"
	"cab/internal/redis"
	"cab/internal/repository"
)

const (
	defaultSweepInterval = 5 * time.Second
	defaultSweepLockTTL  = 30 * time.Second
	sweepTransactionName = "BookingSweeper/Sweep"
)

// SweeperDeps contains all dependencies needed by Sweeper. LockStore,
// CacheStore and NewRelicApp are optional.
type SweeperDeps struct {
	Transactor     repository.Transactor
	Bookings       repository.BookingRepository
	Clock          clock.Clock
	LockStore      redis.LockStoreInterface
	CacheStore     redis.CacheStoreInterface
	NewRelicApp    *newrelic.Application
	Interval       time.Duration
	LockTTL        time.Duration
	BookingLockTTL time.Duration
	Logger         logrus.FieldLogger
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Due     int // bookings whose pickup has passed
	Started int // moved to IN_PROGRESS by this sweep
	Skipped int // changed concurrently, locked elsewhere, or unparseable
	Failed  int
}

// Sweeper starts bookings whose pickup time has passed. It talks to the rest
// of the system only through the database, so any replica can run it.
type Sweeper struct {
	tx             repository.Transactor
	bookings       repository.BookingRepository
	clock          clock.Clock
	lockStore      redis.LockStoreInterface
	cacheStore     redis.CacheStoreInterface
	nrApp          *newrelic.Application
	interval       time.Duration
	lockTTL        time.Duration
	bookingLockTTL time.Duration
	logger         logrus.FieldLogger

	cron *cron.Cron
}

// NewSweeper creates a new Sweeper.
func NewSweeper(deps SweeperDeps) *Sweeper {
	s := &Sweeper{
		tx:             deps.Transactor,
		bookings:       deps.Bookings,
		clock:          deps.Clock,
		lockStore:      deps.LockStore,
		cacheStore:     deps.CacheStore,
		nrApp:          deps.NewRelicApp,
		interval:       deps.Interval,
		lockTTL:        deps.LockTTL,
		bookingLockTTL: deps.BookingLockTTL,
		logger:         deps.Logger,
	}
	if s.interval <= 0 {
		s.interval = defaultSweepInterval
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultSweepLockTTL
	}
	if s.bookingLockTTL <= 0 {
		s.bookingLockTTL = defaultBookingLockTTL
	}
	return s
}

// Start schedules sweeps every interval until Stop is called or ctx ends.
// Runs never overlap within a process, and the Redis leader lock keeps
// replicas from sweeping at the same time.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New(
		cron.WithLocation(s.clock.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.logger))),
	)
	if _, err := s.cron.AddFunc("@every "+s.interval.String(), func() { s.tick(ctx) }); err != nil {
		return err
	}
	s.cron.Start()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.WithField("interval", s.interval.String()).Info("booking sweeper started")
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Sweeper) tick(ctx context.Context) {
	if s.lockStore != nil {
		leader, err := s.lockStore.AcquireSweeperLock(ctx, s.lockTTL)
		if err != nil {
			s.logger.WithError(err).Warn("sweeper lock unavailable, skipping run")
			return
		}
		if !leader {
			return
		}
		defer func() {
			if err := s.lockStore.ReleaseSweeperLock(context.WithoutCancel(ctx)); err != nil {
				s.logger.WithError(err).Warn("failed to release sweeper lock")
			}
		}()
	}

	var txn *newrelic.Transaction
	if s.nrApp != nil {
		txn = s.nrApp.StartTransaction(sweepTransactionName)
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	result, err := s.Sweep(ctx)
	if err != nil {
		if txn != nil {
			txn.NoticeError(err)
		}
		s.logger.WithError(err).Error("booking sweep failed")
		return
	}
	if txn != nil {
		txn.AddAttribute("due", result.Due)
		txn.AddAttribute("started", result.Started)
		txn.AddAttribute("failed", result.Failed)
	}
	if result.Due > 0 {
		s.logger.WithFields(logrus.Fields{
			"due":     result.Due,
			"started": result.Started,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		}).Info("booking sweep completed")
	}
}

// Sweep moves every PENDING or CONFIRMED booking whose pickup is at or
// before now to IN_PROGRESS and marks its car unavailable. Each booking is
// handled in its own transaction; a failure is logged and counted without
// stopping the sweep. Running it twice in a row changes nothing the second
// time.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.clock.Now()

	candidates, err := s.bookings.ListDueForStart(ctx, domain.ActiveStatuses(), now)
	if err != nil {
		return result, internalError("list due bookings", err)
	}

	for _, b := range candidates {
		log := s.logger.WithFields(logrus.Fields{"booking_id": b.ID, "car_id": b.CarID})

		pickupAt, err := ParsePickupDateTime(b.PickupDate, b.PickupTime, s.clock.Location())
		if err != nil {
			result.Skipped++
			log.WithError(err).Warn("skipping booking with unparseable pickup")
			continue
		}
		if pickupAt.After(now) {
			continue
		}
		result.Due++

		started, err := s.startBooking(ctx, b.ID, pickupAt)
		switch {
		case err != nil:
			result.Failed++
			log.WithError(err).Error("failed to start booking")
		case started:
			result.Started++
			log.Info("booking started, pickup time passed")
		default:
			result.Skipped++
		}
	}

	return result, nil
}

// startBooking re-reads the booking under lock and starts it if it is still
// active. Returns false when there was nothing to do.
func (s *Sweeper) startBooking(ctx context.Context, bookingID string, pickupAt time.Time) (bool, error) {
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireBookingLock(ctx, bookingID, s.bookingLockTTL)
		if err == nil && !locked {
			return false, nil
		}
		if err == nil {
			defer func() {
				_ = s.lockStore.ReleaseBookingLock(context.WithoutCancel(ctx), bookingID)
			}()
		}
	}

	started := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		booking, err := stores.Bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		if !booking.Status.IsActive() {
			return nil
		}

		car, err := stores.Cars.GetByIDForUpdate(ctx, booking.CarID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.logger.WithFields(logrus.Fields{"booking_id": bookingID, "car_id": booking.CarID}).Warn("car of due booking not found")
		case err != nil:
			return err
		case car.Available:
			car.Available = false
			if err := stores.Cars.Update(ctx, car); err != nil {
				return err
			}
		}

		if err := booking.Start(); err != nil {
			return stateError(err)
		}
		if booking.PickupAt.IsZero() {
			booking.PickupAt = pickupAt
		}
		if err := stores.Bookings.Update(ctx, booking); err != nil {
			return err
		}
		started = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if started && s.cacheStore != nil {
		if err := s.cacheStore.InvalidateBooking(ctx, bookingID); err != nil {
			s.logger.WithField("booking_id", bookingID).WithError(err).Warn("failed to invalidate booking cache")
		}
	}
	return started, nil
}
