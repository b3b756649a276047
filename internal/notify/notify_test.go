package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Payload
	err  error
}

func (r *recordingSender) Notify(ctx context.Context, recipientEmail, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, Payload{Recipient: recipientEmail, Subject: subject, Body: body})
	return nil
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	r.opts = append(r.opts, opts)
	return &asynq.TaskInfo{ID: "task-1", Queue: "default"}, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Task payload
// ────────────────────────────────────────────────────────────────────────────

func TestNewBookingNotifyTask_RoundTripsPayload(t *testing.T) {
	want := Payload{Recipient: "amal@example.com", Subject: "MegaCityCab - Booking Confirmed #b-1", Body: "hello"}

	task, err := NewBookingNotifyTask(want)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TypeBookingNotify {
		t.Errorf("expected type %s, got %s", TypeBookingNotify, task.Type())
	}

	got, err := ParsePayload(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestParsePayload_RejectsBadPayloads(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
	}{
		{"not json", []byte("{")},
		{"missing recipient", []byte(`{"subject":"s","body":"b"}`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePayload(asynq.NewTask(TypeBookingNotify, tc.payload)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Queue notifier
// ────────────────────────────────────────────────────────────────────────────

func TestQueueNotifier_EnqueuesTask(t *testing.T) {
	logger, _ := test.NewNullLogger()
	enq := &recordingEnqueuer{}
	n := NewQueueNotifier(enq, 3, logger)

	if err := n.Notify(context.Background(), "amal@example.com", "subject", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(enq.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(enq.tasks))
	}
	p, err := ParsePayload(enq.tasks[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Recipient != "amal@example.com" || p.Subject != "subject" || p.Body != "body" {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestQueueNotifier_ReturnsEnqueueError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	boom := errors.New("redis down")
	n := NewQueueNotifier(&recordingEnqueuer{err: boom}, 3, logger)

	err := n.Notify(context.Background(), "amal@example.com", "subject", "body")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped enqueue error, got %v", err)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Worker handler
// ────────────────────────────────────────────────────────────────────────────

func TestHandleBookingNotify_DeliversPayload(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sender := &recordingSender{}
	handler := HandleBookingNotify(sender, logger)

	task, _ := NewBookingNotifyTask(Payload{Recipient: "amal@example.com", Subject: "s", Body: "b"})
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Recipient != "amal@example.com" {
		t.Errorf("expected one delivery to amal@example.com, got %+v", sender.sent)
	}
}

func TestHandleBookingNotify_SkipsRetryForBadPayload(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sender := &recordingSender{}
	handler := HandleBookingNotify(sender, logger)

	err := handler.ProcessTask(context.Background(), asynq.NewTask(TypeBookingNotify, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected SkipRetry, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no delivery, got %d", len(sender.sent))
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.ErrorLevel {
		t.Error("expected an error log entry")
	}
}

func TestHandleBookingNotify_ReturnsDeliveryErrorForRetry(t *testing.T) {
	logger, _ := test.NewNullLogger()
	boom := errors.New("smtp unavailable")
	handler := HandleBookingNotify(&recordingSender{err: boom}, logger)

	task, _ := NewBookingNotifyTask(Payload{Recipient: "amal@example.com", Subject: "s", Body: "b"})
	if err := handler.ProcessTask(context.Background(), task); !errors.Is(err, boom) {
		t.Errorf("expected delivery error, got %v", err)
	}
}
