package main

import (
	"context"

	"innkeep/internal/rooms/events"
	"innkeep/internal/rooms/handler"
	"innkeep/internal/rooms/repository"
	"innkeep/internal/rooms/service"
	"innkeep/internal/rooms/validator"
	"innkeep/pkg/app"
	"innkeep/pkg/config"
	"innkeep/pkg/inventory"
	"innkeep/pkg/kafka"
	kafka_config "innkeep/pkg/kafka/config"
	kafka_middleware "innkeep/pkg/kafka/middleware"
	"innkeep/pkg/reference"
)

const ServiceName = "rooms"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Rooms service")

	application := app.NewApplication(cfg)

	repo := initRepository(cfg)
	application.OnShutdown("room repository", repo.Close)

	seedInventory(cfg, repo)

	publisher := initPublisher(cfg, application)
	roomValidator := validator.NewRoomValidator(cfg.Log)
	roomService := service.NewRoomService(
		repo,
		roomValidator,
		reference.NewAlphanumeric(),
		publisher,
		cfg,
	)
	cfg.Log.Info("Room service initialized")

	application.SetApp(
		handler.NewHealthHandler(repo, cfg.Log),
		handler.NewRoomHandler(roomService, roomValidator, cfg.Log),
	)
	application.Run()
}

func initRepository(cfg *config.Config) repository.RoomRepository {
	if cfg.UsesMongo() {
		cfg.SetMongo()
		cfg.Log.Info("Using Mongo room repository", "database", cfg.MongoDatabaseName)
		return repository.NewMongoRoomRepository(cfg)
	}
	cfg.Log.Info("Using in-memory room repository")
	return repository.NewMemoryRoomRepository()
}

func seedInventory(cfg *config.Config, repo repository.RoomRepository) {
	if cfg.InventoryFile == "" {
		return
	}

	rooms, err := inventory.Load(cfg.InventoryFile)
	if err != nil {
		cfg.Log.Fatal("Failed to load inventory", "file", cfg.InventoryFile, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if _, err := inventory.Seed(ctx, repo, rooms, cfg.Log); err != nil {
		cfg.Log.Fatal("Failed to seed inventory", "file", cfg.InventoryFile, "error", err)
	}
}

func initPublisher(cfg *config.Config, application *app.Application) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Booking events disabled")
		return events.NopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Failed to load Kafka configuration", "error", err)
	}
	kafkaLog := cfg.Log.WithComponent("kafka-producer")
	kafkaCfg.LogConfiguration(kafkaLog)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaLog, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(kafkaLog))
		producer.Use(metrics.ProducerMiddleware())
	}

	application.OnShutdown("booking events producer", func(context.Context) error {
		metrics.LogMetrics(kafkaLog)
		return producer.Close()
	})

	cfg.Log.Info("Booking events enabled", "topic", producer.Topic())
	return events.NewKafkaPublisher(producer)
}
