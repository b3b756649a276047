package domain

import (
	"fmt"
	"time"
)

// Date and time layouts used for pickup fields.
const (
	PickupDateLayout     = "2006-01-02"
	PickupTimeLayout     = "15:04"
	PickupDateTimeLayout = "2006-01-02 15:04:05"
)

// Booking is a customer's reservation of a car (and optionally a driver) for
// a pickup at a given date and time.
type Booking struct {
	ID             string
	CustomerID     string
	CarID          string
	DriverID       string // empty when no driver is assigned
	PickupLocation string
	Destination    string
	PickupDate     string
	PickupTime     string
	PickupAt       time.Time // derived from PickupDate/PickupTime, zero when unparseable
	BookingDate    time.Time

	Distance     float64
	DistanceFare float64
	Tax          float64
	DriverFee    float64
	TotalAmount  float64
	RefundAmount float64

	DriverRequired          bool
	DriverAssignmentMessage string

	Status             BookingStatus
	CancellationReason string
	CancelledAt        time.Time
}

// HasDriver reports whether a driver is assigned to the booking.
func (b *Booking) HasDriver() bool {
	return b.DriverID != ""
}

// CanBeCancelled returns true while the booking is PENDING or CONFIRMED.
func (b *Booking) CanBeCancelled() bool {
	return b.Status.CanTransitionTo(BookingStatusCancelled)
}

// CanBeDeleted returns true only for PENDING bookings.
func (b *Booking) CanBeDeleted() bool {
	return b.Status == BookingStatusPending
}

// Confirm moves a PENDING booking to CONFIRMED.
func (b *Booking) Confirm() error {
	if b.Status != BookingStatusPending {
		return fmt.Errorf("%w: cannot confirm booking in %s state", ErrInvalidTransition, b.Status)
	}
	b.Status = BookingStatusConfirmed
	return nil
}

// Cancel moves an active booking to CANCELLED and records the reason.
func (b *Booking) Cancel(reason string, at time.Time) error {
	if !b.CanBeCancelled() {
		return fmt.Errorf("%w: cannot cancel booking in %s state", ErrInvalidTransition, b.Status)
	}
	b.Status = BookingStatusCancelled
	b.CancellationReason = reason
	b.CancelledAt = at
	return nil
}

// Start forces an active booking into IN_PROGRESS. Used when the pickup time
// has been reached.
func (b *Booking) Start() error {
	if !b.Status.CanTransitionTo(BookingStatusInProgress) {
		return fmt.Errorf("%w: cannot start booking in %s state", ErrInvalidTransition, b.Status)
	}
	b.Status = BookingStatusInProgress
	return nil
}
