package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"cab/internal/app"
	"cab/internal/clock"
	"cab/internal/config"
	"cab/internal/handler"
	"cab/internal/logger"
	"cab/internal/notify"
	internalRedis "cab/internal/redis"
	"cab/internal/repository/postgres"
	"cab/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logger.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info("connected to Redis")

	clk, err := clock.NewSystem(cfg.Booking.TimeZone)
	if err != nil {
		log.WithError(err).Fatal("invalid booking time zone")
	}

	// Notifications go through the asynq queue when enabled, otherwise they
	// are written to the log.
	var notifier service.Notifier = service.NewLogNotifier(log)
	var queueClient *asynq.Client
	var worker *notify.Worker
	if cfg.Queue.Enabled {
		redisOpt := app.NewQueueRedisOpt(cfg.Redis, cfg.Queue)
		queueClient = asynq.NewClient(redisOpt)
		defer queueClient.Close()
		notifier = notify.NewQueueNotifier(queueClient, cfg.Queue.MaxRetry, log)

		worker = notify.NewWorker(redisOpt, cfg.Queue.Concurrency, service.NewLogNotifier(log), log)
		if err := worker.Start(); err != nil {
			log.WithError(err).Fatal("failed to start notification worker")
		}
		log.Info("notification worker started")
	}

	bookingService, sweeper := wireServices(db, redisClient, nrApp, clk, notifier, log, cfg)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sweeper.Enabled {
		if err := sweeper.Start(runCtx); err != nil {
			log.WithError(err).Fatal("failed to start booking sweeper")
		}
	}

	router := app.NewRouter(app.RouterDeps{
		BookingHandler: handler.NewBookingHandler(bookingService),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-runCtx.Done()
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	sweeper.Stop()
	if worker != nil {
		worker.Shutdown()
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info("server exited")
}

// wireServices wires the booking service and the reconciliation sweeper.
func wireServices(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, clk clock.Clock, notifier service.Notifier, log *logrus.Logger, cfg *config.Config) (*service.BookingService, *service.Sweeper) {
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Booking.CacheTTL)

	transactor := postgres.NewTransactor(db)
	stores := postgres.NewStores(db)

	fares := service.NewFareCalculator(service.FareConfig{
		DistanceRate:        cfg.Booking.DistanceRate,
		Tax:                 cfg.Booking.Tax,
		DriverFee:           cfg.Booking.DriverFee,
		CancellationWindow:  cfg.Booking.CancellationWindow,
		CancellationFeeRate: cfg.Booking.CancellationFeeRate,
	})

	bookingService := service.NewBookingService(service.BookingServiceDeps{
		Transactor:   transactor,
		Stores:       stores,
		Clock:        clk,
		Availability: service.NewAvailabilityChecker(log),
		Assigner:     service.NewDriverAssigner(fares),
		Fares:        fares,
		Notifier:     notifier,
		Templates:    service.NotificationTemplates{Brand: cfg.Booking.NotificationSubjectPrefix},
		LockStore:    lockStore,
		CacheStore:   cacheStore,
		LockTTL:      cfg.Booking.LockTTL,
		Logger:       log,
	})

	sweeper := service.NewSweeper(service.SweeperDeps{
		Transactor:     transactor,
		Bookings:       stores.Bookings,
		Clock:          clk,
		LockStore:      lockStore,
		CacheStore:     cacheStore,
		NewRelicApp:    nrApp,
		Interval:       cfg.Sweeper.Interval,
		LockTTL:        cfg.Sweeper.LockTTL,
		BookingLockTTL: cfg.Booking.LockTTL,
		Logger:         log.WithField("component", "sweeper"),
	})

	return bookingService, sweeper
}
