package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"innkeep/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

const (
	EnvBrokers = "KAFKA_BROKERS"

	EnvProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"

	EnvConsumerStartOffset    = "KAFKA_CONSUMER_START_OFFSET"
	EnvConsumerMaxWait        = "KAFKA_CONSUMER_MAX_WAIT"
	EnvConsumerCommitInterval = "KAFKA_CONSUMER_COMMIT_INTERVAL"
	EnvConsumerSessionTimeout = "KAFKA_CONSUMER_SESSION_TIMEOUT"
	EnvConsumerMaxRetries     = "KAFKA_CONSUMER_MAX_RETRIES"
	EnvConsumerRetryBackoff   = "KAFKA_CONSUMER_RETRY_BACKOFF"

	EnvEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)

const (
	DefaultBrokers = "localhost:9092"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"

	DefaultConsumerStartOffset    = kafka.FirstOffset
	DefaultConsumerMaxWait        = 500 * time.Millisecond
	DefaultConsumerCommitInterval = time.Second
	DefaultConsumerSessionTimeout = 10 * time.Second
	DefaultConsumerMaxRetries     = 3
	DefaultConsumerRetryBackoff   = 200 * time.Millisecond

	DefaultEnableMiddleware = true
)

var compressionCodecs = map[string]compress.Compression{
	"none":   compress.None,
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
}

var requiredAcks = map[int]kafka.RequiredAcks{
	-1: kafka.RequireAll,
	0:  kafka.RequireNone,
	1:  kafka.RequireOne,
}

// Config holds the broker settings shared by the booking event producer
// and the audit consumer.
type Config struct {
	Brokers []string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int
	ProducerCompression  string

	// ConsumerStartOffset only applies to a group with no committed offset.
	ConsumerStartOffset    int64
	ConsumerMaxWait        time.Duration
	ConsumerCommitInterval time.Duration
	ConsumerSessionTimeout time.Duration
	ConsumerMaxRetries     int
	ConsumerRetryBackoff   time.Duration

	EnableMiddleware bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Brokers: splitBrokers(envStr(EnvBrokers, DefaultBrokers)),

		ProducerMaxAttempts:  envInt(EnvProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: envDuration(EnvProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  envInt(EnvProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  strings.ToLower(envStr(EnvProducerCompression, DefaultProducerCompression)),

		ConsumerStartOffset:    int64(envInt(EnvConsumerStartOffset, int(DefaultConsumerStartOffset))),
		ConsumerMaxWait:        envDuration(EnvConsumerMaxWait, DefaultConsumerMaxWait),
		ConsumerCommitInterval: envDuration(EnvConsumerCommitInterval, DefaultConsumerCommitInterval),
		ConsumerSessionTimeout: envDuration(EnvConsumerSessionTimeout, DefaultConsumerSessionTimeout),
		ConsumerMaxRetries:     envInt(EnvConsumerMaxRetries, DefaultConsumerMaxRetries),
		ConsumerRetryBackoff:   envDuration(EnvConsumerRetryBackoff, DefaultConsumerRetryBackoff),

		EnableMiddleware: envBool(EnvEnableMiddleware, DefaultEnableMiddleware),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var problems []string

	if len(cfg.Brokers) == 0 {
		problems = append(problems, "at least one broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			problems = append(problems, fmt.Sprintf("broker %d is empty", i))
		}
	}
	if cfg.ProducerMaxAttempts <= 0 {
		problems = append(problems, fmt.Sprintf("producer max attempts must be positive, got %d", cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("producer batch timeout must be positive, got %s", cfg.ProducerBatchTimeout))
	}
	if _, ok := compressionCodecs[cfg.ProducerCompression]; !ok {
		problems = append(problems, fmt.Sprintf("unknown producer compression %q", cfg.ProducerCompression))
	}
	if _, ok := requiredAcks[cfg.ProducerRequireAcks]; !ok {
		problems = append(problems, fmt.Sprintf("producer require acks must be -1, 0 or 1, got %d", cfg.ProducerRequireAcks))
	}
	if cfg.ConsumerStartOffset != kafka.FirstOffset && cfg.ConsumerStartOffset != kafka.LastOffset {
		problems = append(problems, fmt.Sprintf("consumer start offset must be %d (first) or %d (last), got %d",
			kafka.FirstOffset, kafka.LastOffset, cfg.ConsumerStartOffset))
	}
	for name, d := range map[string]time.Duration{
		"consumer max wait":        cfg.ConsumerMaxWait,
		"consumer commit interval": cfg.ConsumerCommitInterval,
		"consumer session timeout": cfg.ConsumerSessionTimeout,
	} {
		if d <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %s", name, d))
		}
	}
	if cfg.ConsumerMaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("consumer max retries cannot be negative, got %d", cfg.ConsumerMaxRetries))
	}
	if cfg.ConsumerRetryBackoff < 0 {
		problems = append(problems, fmt.Sprintf("consumer retry backoff cannot be negative, got %s", cfg.ConsumerRetryBackoff))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid kafka configuration: %s", strings.Join(problems, "; "))
}

func (cfg *Config) Compression() compress.Compression {
	return compressionCodecs[cfg.ProducerCompression]
}

func (cfg *Config) RequiredAcks() kafka.RequiredAcks {
	if acks, ok := requiredAcks[cfg.ProducerRequireAcks]; ok {
		return acks
	}
	return kafka.RequireAll
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
		"consumer_retry_backoff", cfg.ConsumerRetryBackoff,
		"enable_middleware", cfg.EnableMiddleware,
	)
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		brokers = append(brokers, strings.TrimSpace(broker))
	}
	return brokers
}

func envStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
