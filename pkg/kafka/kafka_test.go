package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"innkeep/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu      sync.Mutex
	err     error
	written []kafka.Message
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := &Producer{writer: writer, topic: "booking-events", log: logger.Discard()}

	var order []string
	p.Use(func(ctx context.Context, msg Message, next PublishFunc) error {
		order = append(order, "outer")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next PublishFunc) error {
		order = append(order, "inner:"+msg.Topic)
		return next(ctx, msg)
	})

	msg, _ := NewMessage().WithKey("room-1").WithRawValue([]byte(`{}`)).Build()
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(writer.written) != 1 || string(writer.written[0].Key) != "room-1" {
		t.Fatalf("unexpected writes %+v", writer.written)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner:booking-events" {
		t.Errorf("unexpected middleware order %v", order)
	}
}

func TestProducer_RejectsInvalid(t *testing.T) {
	p := &Producer{writer: &fakeWriter{}, topic: "booking-events", log: logger.Discard()}

	if err := p.Publish(context.Background(), Message{Value: []byte(`{}`)}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "room-1"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}

	_ = p.Close()
	if err := p.Publish(context.Background(), Message{Key: "room-1", Value: []byte(`{}`)}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestProducer_DeadLettersRejectedWrite(t *testing.T) {
	brokerErr := errors.New("message too large")
	dlq := &fakeWriter{}
	p := &Producer{
		writer:    &fakeWriter{err: brokerErr},
		dlqWriter: dlq,
		topic:     "booking-events",
		log:       logger.Discard(),
	}

	msg, _ := NewMessage().WithKey("room-1").WithRawValue([]byte(`{}`)).Build()
	if err := p.Publish(context.Background(), msg); !errors.Is(err, brokerErr) {
		t.Fatalf("expected broker error, got %v", err)
	}
	if len(dlq.written) != 1 {
		t.Fatalf("expected one dead letter, got %d", len(dlq.written))
	}
	if got := headerValue(dlq.written[0], HeaderOriginalTopic); got != "booking-events" {
		t.Errorf("expected original topic header, got %q", got)
	}
}

func newTestConsumer(reader messageReader, dlq messageWriter, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:     reader,
		dlqWriter:  dlq,
		topic:      "booking-events",
		groupID:    "audit",
		maxRetries: 2,
		handler:    handler,
		log:        logger.Discard(),
	}
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	c := newTestConsumer(nil, &fakeWriter{}, func(ctx context.Context, msg Message) error {
		calls++
		if calls < 3 {
			return NewTransientError("store down", nil)
		}
		if msg.GetRetryCount() != 2 {
			t.Errorf("expected retry count 2 on final attempt, got %d", msg.GetRetryCount())
		}
		return nil
	})

	if err := c.process(context.Background(), Message{Headers: map[string]string{}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestConsumer_DeadLetters(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"permanent fails once", NewPermanentError("bad schema", nil), 1},
		{"transient exhausts retries", NewTransientError("store down", nil), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dlq := &fakeWriter{}
			calls := 0
			c := newTestConsumer(nil, dlq, func(context.Context, Message) error {
				calls++
				return tt.err
			})

			if err := c.process(context.Background(), Message{Headers: map[string]string{}}); err == nil {
				t.Fatal("expected error")
			}
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
			if len(dlq.written) != 1 || headerValue(dlq.written[0], HeaderDLQGroup) != "audit" {
				t.Errorf("expected one dead letter from group audit, got %+v", dlq.written)
			}
		})
	}
}

func TestConsumer_StartCommitsEveryMessage(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte("ok")},
		{Offset: 2, Value: []byte("poison")},
		{Offset: 3, Value: []byte("ok")},
	}}
	dlq := &fakeWriter{}

	var handled []string
	c := newTestConsumer(reader, dlq, func(_ context.Context, msg Message) error {
		handled = append(handled, string(msg.Value))
		if string(msg.Value) == "poison" {
			return NewPermanentError("undecodable", nil)
		}
		return nil
	})
	c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		return next(ctx, msg)
	})

	if err := c.Start(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected reader EOF, got %v", err)
	}
	if len(handled) != 3 {
		t.Errorf("expected 3 handled messages, got %v", handled)
	}
	if len(reader.committed) != 3 {
		t.Errorf("expected all offsets committed, got %v", reader.committed)
	}
	if len(dlq.written) != 1 {
		t.Errorf("expected poison message dead-lettered, got %d", len(dlq.written))
	}

	if err := c.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrConsumerClosed) {
		t.Errorf("expected ErrConsumerClosed, got %v", err)
	}
}
