package config

import "time"

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"

	DefaultStorageBackend = StorageMemory
	DefaultInventoryFile  = ""

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "innkeep"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultReferenceLength      = 10
	DefaultReferenceMaxAttempts = 5

	DefaultLockTTL          = 45 * time.Second
	DefaultLockWaitTimeout  = 5 * time.Second
	DefaultLockPollInterval = 25 * time.Millisecond

	DefaultEventsEnabled         = false
	DefaultBookingEventsTopic    = "booking-events"
	DefaultBookingEventsDLQTopic = "dlq-booking-events"
	DefaultBookingEventsGroupID  = "booking-events-audit"
)
