package notify

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Enqueuer is the part of asynq.Client used by QueueNotifier.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier hands notifications to the worker through an asynq queue,
// so a slow mail provider never holds up a booking request.
type QueueNotifier struct {
	client   Enqueuer
	maxRetry int
	logger   logrus.FieldLogger
}

// NewQueueNotifier creates a new QueueNotifier.
func NewQueueNotifier(client Enqueuer, maxRetry int, logger logrus.FieldLogger) *QueueNotifier {
	return &QueueNotifier{client: client, maxRetry: maxRetry, logger: logger}
}

// Notify enqueues a booking:notify task.
func (q *QueueNotifier) Notify(ctx context.Context, recipientEmail, subject, body string) error {
	task, err := NewBookingNotifyTask(Payload{
		Recipient: recipientEmail,
		Subject:   subject,
		Body:      body,
	}, asynq.MaxRetry(q.maxRetry))
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":   info.ID,
		"queue":     info.Queue,
		"recipient": recipientEmail,
	}).Debug("notification enqueued")
	return nil
}
