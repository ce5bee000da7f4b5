package events

import (
	"context"
	"fmt"
	"sync"

	"innkeep/pkg/kafka"
	"innkeep/pkg/logger"
)

// Auditor consumes booking events and keeps running totals per event type.
type Auditor struct {
	log    *logger.Logger
	mu     sync.Mutex
	counts map[string]int
}

func NewAuditor(log *logger.Logger) *Auditor {
	return &Auditor{
		log:    log,
		counts: make(map[string]int),
	}
}

// Handle rejects payloads it cannot interpret as permanent failures so
// the consumer dead-letters them instead of retrying.
func (a *Auditor) Handle(ctx context.Context, msg kafka.Message) error {
	if version, ok := msg.Headers[kafka.HeaderSchemaVersion]; ok && version != SchemaVersion {
		return kafka.NewPermanentError("unsupported booking event schema", fmt.Errorf("schema version %q", version)).
			WithDetail("event_id", msg.GetEventID())
	}

	var event BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("malformed booking event", err).
			WithDetail("event_id", msg.GetEventID())
	}

	switch event.Type {
	case BookingCreated, BookingCancelled:
	default:
		return kafka.NewPermanentError("unknown booking event type", fmt.Errorf("%w: %q", kafka.ErrInvalidMessage, event.Type))
	}

	a.mu.Lock()
	a.counts[event.Type]++
	a.mu.Unlock()

	a.log.Info("Booking event audited",
		"event_type", event.Type,
		"event_id", msg.GetEventID(),
		"correlation_id", msg.GetCorrelationID(),
		"reference", event.Reference,
		"room", event.RoomName,
		"start_time", event.StartTime,
		"end_time", event.EndTime,
	)
	return nil
}

func (a *Auditor) Counts() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}
