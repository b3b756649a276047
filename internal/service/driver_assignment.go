package service

import (
	"context"
	"errors"
	"fmt"

	"cab/internal/domain"
	"cab/internal/repository"
)

// Messages recorded on the booking after driver assignment.
const (
	MsgDriverAssigned         = "Driver assigned successfully."
	MsgNoDriversAvailable     = "No drivers available."
	MsgDriverAssignmentFailed = "Failed to assign driver due to an error."
	MsgDriverNotRequested     = "Driver not requested."
)

// DriverAssignment is the outcome of a driver assignment attempt.
type DriverAssignment struct {
	DriverID string
	Fee      float64
	Message  string
}

// Assigned reports whether a driver was reserved.
func (a DriverAssignment) Assigned() bool {
	return a.DriverID != ""
}

func unassigned(message string) DriverAssignment {
	return DriverAssignment{Message: message}
}

// DriverAssigner reserves a driver for a booking.
type DriverAssigner struct {
	fares *FareCalculator
}

// NewDriverAssigner creates a new DriverAssigner.
func NewDriverAssigner(fares *FareCalculator) *DriverAssigner {
	return &DriverAssigner{fares: fares}
}

// Assign picks a driver for car and marks it unavailable.
//
// A car with a fixed driver only ever gets that driver; if the driver record
// is missing ErrAssignedDriverMissing is returned. Other cars take the
// first available pool driver. When nobody is free the result carries
// MsgNoDriversAvailable and a nil error. Any other error is returned as is
// and the caller decides how to degrade.
func (d *DriverAssigner) Assign(ctx context.Context, drivers repository.DriverRepository, car *domain.Car) (DriverAssignment, error) {
	var driver *domain.Driver
	var err error

	if car.HasFixedDriver() {
		driver, err = drivers.GetByID(ctx, car.AssignedDriverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return DriverAssignment{}, fmt.Errorf("driver %s of car %s: %w", car.AssignedDriverID, car.ID, ErrAssignedDriverMissing)
			}
			return DriverAssignment{}, err
		}
		if !driver.Available {
			return unassigned(MsgNoDriversAvailable), nil
		}
	} else {
		driver, err = drivers.FirstAvailablePoolDriver(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return unassigned(MsgNoDriversAvailable), nil
			}
			return DriverAssignment{}, err
		}
	}

	driver.Available = false
	if err := drivers.Update(ctx, driver); err != nil {
		return DriverAssignment{}, err
	}

	return DriverAssignment{
		DriverID: driver.ID,
		Fee:      d.fares.DriverFee(),
		Message:  MsgDriverAssigned,
	}, nil
}
