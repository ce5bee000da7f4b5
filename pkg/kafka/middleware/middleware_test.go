package kafka_middleware

import (
	"context"
	"errors"
	"testing"

	"innkeep/pkg/kafka"
	"innkeep/pkg/logger"
)

func event(eventType string) kafka.Message {
	return kafka.Message{Key: "room-1", Headers: map[string]string{kafka.HeaderEventType: eventType}}
}

func TestMetrics_PerEventType(t *testing.T) {
	m := NewMetrics()
	publish := m.ProducerMiddleware()
	consume := m.ConsumerMiddleware()

	ok := func(context.Context, kafka.Message) error { return nil }
	fail := func(context.Context, kafka.Message) error { return errors.New("broker down") }

	ctx := context.Background()
	_ = publish(ctx, event("booking.created"), ok)
	_ = publish(ctx, event("booking.created"), ok)
	_ = publish(ctx, event("booking.cancelled"), fail)
	_ = consume(ctx, event(""), ok)

	published := m.Published()
	if len(published) != 2 {
		t.Fatalf("expected 2 event types, got %+v", published)
	}
	if published[0].EventType != "booking.cancelled" || published[0].Failed != 1 {
		t.Errorf("unexpected cancelled stat %+v", published[0])
	}
	if published[1].EventType != "booking.created" || published[1].OK != 2 {
		t.Errorf("unexpected created stat %+v", published[1])
	}

	consumed := m.Consumed()
	if len(consumed) != 1 || consumed[0].EventType != "unknown" || consumed[0].OK != 1 {
		t.Errorf("unexpected consumed stats %+v", consumed)
	}

	m.LogMetrics(logger.Discard())
}

func TestLoggingMiddleware_PassesErrorThrough(t *testing.T) {
	want := errors.New("boom")
	log := logger.Discard()

	err := LoggingProducerMiddleware(log)(context.Background(), event("booking.created"),
		func(context.Context, kafka.Message) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("producer: expected %v, got %v", want, err)
	}

	err = LoggingConsumerMiddleware(log)(context.Background(), event("booking.created"),
		func(context.Context, kafka.Message) error { return nil })
	if err != nil {
		t.Errorf("consumer: unexpected error %v", err)
	}
}
