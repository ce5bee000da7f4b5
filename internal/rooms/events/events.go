package events

import (
	"context"
	"fmt"
	"time"

	"innkeep/pkg/kafka"
	"innkeep/pkg/middleware"
	"innkeep/pkg/model"
)

const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"

	SchemaVersion = "1"
	Source        = "innkeep-rooms"
)

// BookingEvent is the payload published for every committed booking change.
type BookingEvent struct {
	Type       string    `json:"type"`
	Reference  string    `json:"reference"`
	RoomID     string    `json:"room_id"`
	RoomName   string    `json:"room_name"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, booking *model.Booking) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		Reference:  booking.Reference,
		RoomID:     booking.RoomID,
		RoomName:   booking.RoomName,
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher is notified after a booking change has been committed.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking) error
	BookingCancelled(ctx context.Context, booking *model.Booking) error
}

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer producer
}

func NewKafkaPublisher(p producer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (p *KafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, BookingCreated, booking)
}

func (p *KafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, BookingCancelled, booking)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, booking *model.Booking) error {
	// keyed by room so one room's events stay ordered on a partition
	builder := kafka.NewMessage().
		WithKey(booking.RoomID).
		WithValue(NewBookingEvent(eventType, booking)).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source)

	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		builder = builder.WithCorrelationID(requestID)
	}

	msg, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to encode %s for %s: %w", eventType, booking.Reference, err)
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s for %s: %w", eventType, booking.Reference, err)
	}
	return nil
}

type NopPublisher struct{}

func (NopPublisher) BookingCreated(context.Context, *model.Booking) error   { return nil }
func (NopPublisher) BookingCancelled(context.Context, *model.Booking) error { return nil }
