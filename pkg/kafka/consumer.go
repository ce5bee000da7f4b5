package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	kafka_config "innkeep/pkg/kafka/config"
	"innkeep/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

// Consumer reads a topic as part of a consumer group. Offsets are committed
// only after a message was handled or dead-lettered, giving at-least-once
// delivery to the handler.
type Consumer struct {
	reader       messageReader
	dlqWriter    messageWriter
	topic        string
	groupID      string
	maxRetries   int
	retryBackoff time.Duration
	handler      MessageHandler
	middleware   []ConsumerMiddleware
	log          *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewConsumer(cfg *kafka_config.Config, log *logger.Logger, topic, groupID, dlqTopic string, handler MessageHandler) (*Consumer, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("kafka config cannot be nil")
	case log == nil:
		return nil, errors.New("logger cannot be nil")
	case topic == "":
		return nil, errors.New("topic cannot be empty")
	case groupID == "":
		return nil, errors.New("group ID cannot be empty")
	case handler == nil:
		return nil, errors.New("message handler cannot be nil")
	}

	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          topic,
			GroupID:        groupID,
			MaxWait:        cfg.ConsumerMaxWait,
			CommitInterval: cfg.ConsumerCommitInterval,
			SessionTimeout: cfg.ConsumerSessionTimeout,
			StartOffset:    cfg.ConsumerStartOffset,
			Logger:         kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger:    errorLogger(log),
		}),
		topic:        topic,
		groupID:      groupID,
		maxRetries:   cfg.ConsumerMaxRetries,
		retryBackoff: cfg.ConsumerRetryBackoff,
		handler:      handler,
		log:          log,
	}
	if dlqTopic != "" {
		c.dlqWriter = newWriter(cfg, dlqTopic, kafka.RequireAll, log)
	}
	return c, nil
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start blocks until ctx is cancelled or the reader fails permanently.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) || ClassifyError(err) != ErrorTypeTransient {
				return err
			}
			c.log.Warn("Failed to fetch kafka message", "topic", c.topic, "error", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		msg := fromKafka(km)
		if err := c.process(ctx, msg); err != nil && ctx.Err() != nil {
			// shutting down mid-retry: leave the offset for the next owner
			return ctx.Err()
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil {
			c.log.Error("Failed to commit kafka offset", "topic", km.Topic, "offset", km.Offset, "error", err)
		}
	}
}

// process runs the handler, retrying transient failures with doubling
// backoff, and dead-letters the message once retries are spent.
func (c *Consumer) process(ctx context.Context, msg Message) error {
	handle := c.chain()
	backoff := c.retryBackoff

	for {
		err := handle(ctx, msg)
		if err == nil {
			return nil
		}

		attempts := msg.GetRetryCount()
		if !ShouldRetry(err, attempts, c.maxRetries) {
			c.deadLetter(ctx, msg, err)
			return err
		}

		c.log.Warn("Retrying kafka message",
			"attempt", attempts+1,
			"max_retries", c.maxRetries,
			"backoff", backoff,
			"event_id", msg.GetEventID(),
			"error", err,
		)
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
		msg.IncrementRetryCount()
	}
}

func (c *Consumer) chain() MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	handle := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw, next := c.middleware[i], handle
		handle = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handle
}

func (c *Consumer) deadLetter(ctx context.Context, msg Message, cause error) {
	if c.dlqWriter == nil {
		c.log.Error("Dropping kafka message", "topic", c.topic, "offset", msg.Offset, "event_id", msg.GetEventID(), "error", cause)
		return
	}

	dead := deadLetter(msg, c.topic, cause)
	dead.Headers[HeaderDLQGroup] = c.groupID
	if err := c.dlqWriter.WriteMessages(ctx, dead.toKafka()); err != nil {
		c.log.Error("Failed to dead-letter kafka message", "topic", c.topic, "offset", msg.Offset, "error", err, "cause", cause)
		return
	}
	c.log.Warn("Kafka message dead-lettered",
		"topic", c.topic,
		"offset", msg.Offset,
		"event_id", msg.GetEventID(),
		"error_type", ClassifyError(cause).String(),
		"error", cause,
	)
}

// Close waits for Start to return, so cancel its context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	err := c.reader.Close()
	if c.dlqWriter != nil {
		err = errors.Join(err, c.dlqWriter.Close())
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
