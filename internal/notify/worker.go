package notify

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"cab/internal/service"
)

// NewServeMux routes booking:notify tasks to sender.
func NewServeMux(sender service.Notifier, logger logrus.FieldLogger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBookingNotify, HandleBookingNotify(sender, logger))
	return mux
}

// HandleBookingNotify returns the handler that delivers a queued notification.
// A returned error makes asynq retry the task.
func HandleBookingNotify(sender service.Notifier, logger logrus.FieldLogger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := ParsePayload(task)
		if err != nil {
			logger.WithError(err).Error("dropping notification task")
			return asynq.SkipRetry
		}

		if err := sender.Notify(ctx, p.Recipient, p.Subject, p.Body); err != nil {
			logger.WithFields(logrus.Fields{
				"recipient": p.Recipient,
				"subject":   p.Subject,
			}).WithError(err).Warn("notification delivery failed")
			return err
		}
		return nil
	}
}

// Worker runs the asynq server that consumes notification tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker creates a worker reading from the given Redis connection.
func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, sender service.Notifier, logger *logrus.Logger) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		Logger:      logger,
	})
	return &Worker{server: server, mux: NewServeMux(sender, logger)}
}

// Start begins processing tasks in background goroutines.
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
