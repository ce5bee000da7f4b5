package errors

import (
	"errors"

	"innkeep/pkg/interval"
)

var (
	ErrInvalidRange = interval.ErrInvalidRange

	ErrRoomNotFound = errors.New("room not found")

	ErrRoomExists = errors.New("room with this name already exists")

	ErrRoomAlreadyBooked = errors.New("room is already booked for the requested period")

	ErrBookingNotFound = errors.New("booking not found")

	// ErrDuplicateReference means a generated reference collides with a live booking.
	ErrDuplicateReference = errors.New("booking reference already in use")

	// ErrReferenceExhausted means no unique reference was found within the retry budget.
	ErrReferenceExhausted = errors.New("could not generate a unique booking reference")

	// ErrRoomBusy means the room lock could not be acquired before the wait timeout.
	ErrRoomBusy = errors.New("room is locked by another booking, try again")

	// ErrConflict is returned when booking mutations are attempted outside Allocate.
	ErrConflict = errors.New("booking mutation outside of room allocation")
)
