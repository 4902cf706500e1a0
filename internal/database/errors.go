package database

import "errors"

var (
	// ErrCapacityExceeded means the (cottage, day) counter is at max_capacity.
	ErrCapacityExceeded = errors.New("cottage is fully booked for this date")

	// ErrDuplicateBooking means the user already holds a non-cancelled
	// reservation for the same cottage and check-in day.
	ErrDuplicateBooking = errors.New("cottage already booked by this user for this check-in date")

	// ErrNotFound means no such reservation.
	ErrNotFound = errors.New("reservation not found")

	// ErrUnknownCottage means the cottage id is not in the configured catalog.
	ErrUnknownCottage = errors.New("unknown cottage id")

	// ErrConcurrentModification means a versioned update lost the race.
	ErrConcurrentModification = errors.New("reservation was modified concurrently")
)
