package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when an insert collides with an existing key.
	ErrAlreadyExists = errors.New("entity already exists")
)
