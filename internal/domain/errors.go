package domain

import "errors"

// ErrInvalidTransition is returned when a booking is asked to move to a state
// the transition table does not allow from its current state.
var ErrInvalidTransition = errors.New("invalid booking status transition")
