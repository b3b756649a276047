package service

import (
	"errors"
	"fmt"

	"cab/internal/domain"
	"cab/internal/repository"
)

// Error kinds. Every error returned by the booking operations wraps exactly
// one of these, so callers can classify with errors.Is.
var (
	// ErrNotFound is returned when a referenced car, driver, customer or booking does not exist.
	ErrNotFound = repository.ErrNotFound

	// ErrInvalidArgument is returned for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidBooking is returned when a business rule rejects the booking.
	ErrInvalidBooking = errors.New("invalid booking")

	// ErrInvalidState is returned when an operation is illegal for the booking's status.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized is returned when the caller does not own the booking.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal is returned for parse failures and unexpected persistence errors.
	ErrInternal = errors.New("internal error")
)

var (
	ErrInvalidCustomerID     = fmt.Errorf("%w: customer id is required", ErrInvalidArgument)
	ErrInvalidCarID          = fmt.Errorf("%w: car id is required", ErrInvalidArgument)
	ErrInvalidBookingID      = fmt.Errorf("%w: booking id is required", ErrInvalidArgument)
	ErrInvalidDriverID       = fmt.Errorf("%w: driver id is required", ErrInvalidArgument)
	ErrInvalidPickupLocation = fmt.Errorf("%w: pickup location is required", ErrInvalidArgument)
	ErrInvalidDestination    = fmt.Errorf("%w: destination is required", ErrInvalidArgument)
	ErrInvalidPickupDate     = fmt.Errorf("%w: pickup date must be formatted as YYYY-MM-DD", ErrInvalidArgument)
	ErrInvalidPickupTime     = fmt.Errorf("%w: pickup time must be formatted as HH:MM", ErrInvalidArgument)
	ErrNegativeDistance      = fmt.Errorf("%w: distance must not be negative", ErrInvalidArgument)
	ErrEmptyCancelReason     = fmt.Errorf("%w: cancellation reason is required", ErrInvalidArgument)

	ErrCarUnavailable = fmt.Errorf("%w: car is not available for the requested time", ErrInvalidBooking)

	ErrBookingNotPending     = fmt.Errorf("%w: only pending bookings can be confirmed", ErrInvalidState)
	ErrBookingNotCancellable = fmt.Errorf("%w: booking cannot be cancelled in its current state", ErrInvalidState)
	ErrBookingNotDeletable   = fmt.Errorf("%w: only pending bookings can be deleted", ErrInvalidState)
	ErrBookingBusy           = fmt.Errorf("%w: booking is being modified", ErrInvalidState)

	ErrBookingNotOwned = fmt.Errorf("%w: booking does not belong to customer", ErrUnauthorized)

	// ErrAssignedDriverMissing is a data-integrity failure: the car names a
	// fixed driver that does not exist.
	ErrAssignedDriverMissing = fmt.Errorf("%w: car's assigned driver does not exist", ErrNotFound)

	ErrUnparseablePickup = fmt.Errorf("%w: pickup date cannot be parsed", ErrInternal)
)

// internalError wraps unexpected store failures with ErrInternal. Errors that
// already carry a kind pass through unchanged.
func internalError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}

// notFound decorates a store NotFound with the entity that was missing.
func notFound(entity, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return internalError("load "+entity, err)
}

// stateError converts a rejected transition into ErrInvalidState.
func stateError(err error) error {
	if errors.Is(err, domain.ErrInvalidTransition) {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return err
}

func isClassified(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrInvalidArgument, ErrInvalidBooking, ErrInvalidState, ErrUnauthorized, ErrInternal} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
