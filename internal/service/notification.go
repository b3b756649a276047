package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"cab/internal/domain"
)

// Notifier delivers a message to a customer. Delivery is best-effort: the
// booking operations log a returned error and carry on.
type Notifier interface {
	Notify(ctx context.Context, recipientEmail, subject, body string) error
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	logger logrus.FieldLogger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, recipientEmail, subject, body string) error {
	n.logger.WithFields(logrus.Fields{
		"recipient": recipientEmail,
		"subject":   subject,
	}).Info(body)
	return nil
}

// Notification is a rendered customer message.
type Notification struct {
	Subject string
	Body    string
}

// NotificationTemplates renders booking notifications.
type NotificationTemplates struct {
	Brand string
}

// BookingCreated renders the confirmation sent after a booking is made.
func (t NotificationTemplates) BookingCreated(b *domain.Booking, customer *domain.Customer, car *domain.Car) Notification {
	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", customer.Name)
	fmt.Fprintf(&body, "Thank you for booking with %s. Your booking ID is %s.\n\n", t.brand(), b.ID)
	fmt.Fprintf(&body, "Pickup: %s on %s at %s\n", b.PickupLocation, b.PickupDate, b.PickupTime)
	fmt.Fprintf(&body, "Destination: %s\n", b.Destination)
	if car != nil {
		fmt.Fprintf(&body, "Vehicle: %s %s (%s)\n", car.Brand, car.Model, car.LicensePlate)
	}
	fmt.Fprintf(&body, "Driver: %s\n\n", b.DriverAssignmentMessage)
	fmt.Fprintf(&body, "Base rate: %.2f\n", b.TotalAmount-b.DistanceFare-b.Tax-b.DriverFee)
	fmt.Fprintf(&body, "Distance fare (%.1f km): %.2f\n", b.Distance, b.DistanceFare)
	fmt.Fprintf(&body, "Tax: %.2f\n", b.Tax)
	if b.DriverFee > 0 {
		fmt.Fprintf(&body, "Driver fee: %.2f\n", b.DriverFee)
	}
	fmt.Fprintf(&body, "Total: %.2f\n\n", b.TotalAmount)
	fmt.Fprintf(&body, "Status: %s\n", b.Status)

	return Notification{
		Subject: fmt.Sprintf("%s - Booking Confirmation #%s", t.brand(), b.ID),
		Body:    body.String(),
	}
}

// StatusChanged renders a status update such as "Booking Confirmed".
func (t NotificationTemplates) StatusChanged(b *domain.Booking, customer *domain.Customer, statusMessage string) Notification {
	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", customer.Name)
	fmt.Fprintf(&body, "Your booking with ID: %s has been %s.\n\n", b.ID, strings.ToLower(statusMessage))
	if b.Status == domain.BookingStatusCancelled && b.RefundAmount > 0 {
		fmt.Fprintf(&body, "A refund of %.2f will be processed to your original payment method.\n\n", b.RefundAmount)
	}
	fmt.Fprintf(&body, "Thank you for choosing %s!\n", t.brand())

	return Notification{
		Subject: fmt.Sprintf("%s - %s #%s", t.brand(), statusMessage, b.ID),
		Body:    body.String(),
	}
}

func (t NotificationTemplates) brand() string {
	if t.Brand == "" {
		return "MegaCityCab"
	}
	return t.Brand
}
