package repository

import (
	"context"

	"innkeep/pkg/interval"
	"innkeep/pkg/model"
)

// RoomRepository owns rooms and their bookings. Reads return copies.
// Booking mutations are only possible inside Allocate.
type RoomRepository interface {
	ListRooms(ctx context.Context) ([]*model.Room, error)
	FindRoomByName(ctx context.Context, name string) (*model.Room, error)
	FindBookingByReference(ctx context.Context, reference string) (*model.Booking, error)
	ListBookings(ctx context.Context) ([]*model.Booking, error)
	ListBookingsOverlapping(ctx context.Context, window interval.Interval) ([]*model.Booking, error)
	CreateRoom(ctx context.Context, room *model.Room) error
	DeleteRoom(ctx context.Context, name string) (*model.Room, error)

	// Allocate runs fn while holding the exclusive lock of the room. Staged
	// changes made through the Allocation are committed only when fn returns
	// nil; otherwise they are discarded and fn's error is returned.
	Allocate(ctx context.Context, roomID string, fn AllocateFunc) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type AllocateFunc func(ctx context.Context, alloc Allocation) error

// Allocation is valid only for the duration of the AllocateFunc it was
// handed to. Any use afterwards fails with ErrConflict.
type Allocation interface {
	// Room returns a snapshot of the room including staged changes.
	Room() *model.Room
	AddBooking(booking *model.Booking) error
	RemoveBooking(reference string) (*model.Booking, error)
}
