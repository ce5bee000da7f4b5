package kafka_middleware

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"innkeep/pkg/kafka"
	"innkeep/pkg/logger"
)

type counter struct {
	ok       atomic.Int64
	failed   atomic.Int64
	duration atomic.Int64
}

func (c *counter) observe(start time.Time, err error) {
	c.duration.Add(int64(time.Since(start)))
	if err != nil {
		c.failed.Add(1)
		return
	}
	c.ok.Add(1)
}

func (c *counter) average() time.Duration {
	total := c.ok.Load() + c.failed.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(c.duration.Load() / total)
}

// Metrics counts published and consumed messages per event type.
type Metrics struct {
	mu        sync.Mutex
	published map[string]*counter
	consumed  map[string]*counter
}

type Stat struct {
	EventType  string
	OK         int64
	Failed     int64
	AvgLatency time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{
		published: make(map[string]*counter),
		consumed:  make(map[string]*counter),
	}
}

func (m *Metrics) counterFor(set map[string]*counter, eventType string) *counter {
	if eventType == "" {
		eventType = "unknown"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := set[eventType]
	if !ok {
		c = &counter{}
		set[eventType] = c
	}
	return c
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.PublishFunc) error {
		start := time.Now()
		err := next(ctx, msg)
		m.counterFor(m.published, msg.GetEventType()).observe(start, err)
		return err
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.counterFor(m.consumed, msg.GetEventType()).observe(start, err)
		return err
	}
}

func (m *Metrics) Published() []Stat {
	return m.snapshot(m.published)
}

func (m *Metrics) Consumed() []Stat {
	return m.snapshot(m.consumed)
}

func (m *Metrics) snapshot(set map[string]*counter) []Stat {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]Stat, 0, len(set))
	for eventType, c := range set {
		stats = append(stats, Stat{
			EventType:  eventType,
			OK:         c.ok.Load(),
			Failed:     c.failed.Load(),
			AvgLatency: c.average(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].EventType < stats[j].EventType })
	return stats
}

func (m *Metrics) LogMetrics(log *logger.Logger) {
	for _, s := range m.Published() {
		log.Info("Kafka publish metrics", "event_type", s.EventType, "ok", s.OK, "failed", s.Failed, "avg_latency", s.AvgLatency)
	}
	for _, s := range m.Consumed() {
		log.Info("Kafka consume metrics", "event_type", s.EventType, "ok", s.OK, "failed", s.Failed, "avg_latency", s.AvgLatency)
	}
}
