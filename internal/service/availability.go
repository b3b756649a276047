package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"cab/internal/domain"
	"cab/internal/repository"
)

// SlotWindow is the minimum gap between two pickups of the same car on the
// same day.
const SlotWindow = time.Hour

// AvailabilityChecker decides whether a car can take a pickup slot.
type AvailabilityChecker struct {
	logger logrus.FieldLogger
}

// NewAvailabilityChecker creates a new AvailabilityChecker.
func NewAvailabilityChecker(logger logrus.FieldLogger) *AvailabilityChecker {
	return &AvailabilityChecker{logger: logger}
}

// IsAvailable reports whether car can be booked for the requested slot. A
// car flagged unavailable is rejected outright; otherwise the slot must not
// overlap any CONFIRMED booking of the car other than excludeID.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, bookings repository.BookingRepository, car *domain.Car, date, tm, excludeID string) (bool, error) {
	if !car.Available {
		return false, nil
	}
	conflict, err := a.HasConflict(ctx, bookings, car.ID, date, tm, excludeID)
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

// HasConflict reports whether any CONFIRMED booking of the car, other than
// excludeID, overlaps the slot.
func (a *AvailabilityChecker) HasConflict(ctx context.Context, bookings repository.BookingRepository, carID, date, tm, excludeID string) (bool, error) {
	confirmed, err := bookings.ListByCarAndStatus(ctx, carID, domain.BookingStatusConfirmed)
	if err != nil {
		return false, internalError("list confirmed bookings", err)
	}

	for _, existing := range confirmed {
		if existing.ID == excludeID {
			continue
		}
		overlaps, err := Overlaps(existing.PickupDate, existing.PickupTime, date, tm)
		if err != nil {
			// Stored rows with unreadable slots do not block the car.
			a.logger.WithFields(logrus.Fields{
				"car_id":     carID,
				"booking_id": existing.ID,
			}).WithError(err).Warn("skipping booking with unparseable pickup slot")
			continue
		}
		if overlaps {
			return true, nil
		}
	}
	return false, nil
}

// Overlaps reports whether two pickup slots collide: same calendar date and
// less than SlotWindow apart. Dates may carry a time suffix, only the date
// part is compared.
func Overlaps(existingDate, existingTime, requestedDate, requestedTime string) (bool, error) {
	d1, err := parseDay(existingDate)
	if err != nil {
		return false, err
	}
	d2, err := parseDay(requestedDate)
	if err != nil {
		return false, err
	}
	if !d1.Equal(d2) {
		return false, nil
	}

	t1, err := time.Parse(domain.PickupTimeLayout, existingTime)
	if err != nil {
		return false, err
	}
	t2, err := time.Parse(domain.PickupTimeLayout, requestedTime)
	if err != nil {
		return false, err
	}

	diff := t1.Sub(t2)
	if diff < 0 {
		diff = -diff
	}
	return diff < SlotWindow, nil
}

func parseDay(value string) (time.Time, error) {
	if len(value) > len(domain.PickupDateLayout) {
		value = value[:len(domain.PickupDateLayout)]
	}
	return time.Parse(domain.PickupDateLayout, value)
}
