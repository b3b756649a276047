package notify

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeBookingNotify is the task type for customer booking notifications.
const TypeBookingNotify = "booking:notify"

// Payload is the body of a booking:notify task.
type Payload struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// NewBookingNotifyTask builds a booking:notify task.
func NewBookingNotifyTask(p Payload, opts ...asynq.Option) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return asynq.NewTask(TypeBookingNotify, b, opts...), nil
}

// ParsePayload decodes the body of a booking:notify task.
func ParsePayload(task *asynq.Task) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return Payload{}, fmt.Errorf("invalid notification payload: %w", err)
	}
	if p.Recipient == "" {
		return Payload{}, fmt.Errorf("invalid notification payload: recipient is empty")
	}
	return p, nil
}
