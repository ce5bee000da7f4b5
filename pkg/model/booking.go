package model

import (
	"time"

	"innkeep/pkg/interval"
)

// Booking refers back to its room by identifier only.
type Booking struct {
	ID        string    `json:"id" bson:"_id"`
	RoomID    string    `json:"room_id" bson:"room_id"`
	RoomName  string    `json:"room_name" bson:"room_name"`
	StartTime time.Time `json:"start_time" bson:"start_time"`
	EndTime   time.Time `json:"end_time" bson:"end_time"`
	Reference string    `json:"reference" bson:"reference"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type BookingRequest struct {
	StartTime *time.Time `json:"start_time" validate:"required"`
	EndTime   *time.Time `json:"end_time" validate:"required"`
}

type BookingConfirmation struct {
	Reference string    `json:"reference"`
	RoomName  string    `json:"room_name"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (b *Booking) Interval() interval.Interval {
	return interval.Interval{Start: b.StartTime, End: b.EndTime}
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	return &out
}

func (b *Booking) Confirmation() BookingConfirmation {
	return BookingConfirmation{
		Reference: b.Reference,
		RoomName:  b.RoomName,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
	}
}
