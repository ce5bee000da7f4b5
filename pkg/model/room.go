package model

import (
	"time"
)

// Room owns its bookings. Bookings are never shared between rooms and are
// removed together with the room.
type Room struct {
	ID          string     `json:"id" bson:"_id"`
	Name        string     `json:"name" bson:"name" validate:"required,max=64,roomname"`
	Description string     `json:"description" bson:"description" validate:"max=500"`
	Beds        int        `json:"beds" bson:"beds" validate:"required,min=1,max=50"`
	Price       Price      `json:"price" bson:"price" validate:"gte=0"`
	Bookings    []*Booking `json:"bookings" bson:"-"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

type RoomCreate struct {
	Name        string `json:"name" validate:"required,max=64,roomname"`
	Description string `json:"description" validate:"max=500"`
	Beds        int    `json:"beds" validate:"required,min=1,max=50"`
	Price       Price  `json:"price" validate:"gte=0"`
}

// Clone returns a deep copy so callers never share booking slices with
// the repository.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	out.Bookings = make([]*Booking, 0, len(r.Bookings))
	for _, b := range r.Bookings {
		out.Bookings = append(out.Bookings, b.Clone())
	}
	return &out
}
