package main

import (
	"context"
	"time"

	mongoMigration "innkeep/internal/migrations/mongo"
	"innkeep/internal/rooms/repository"
	"innkeep/pkg/config"
	"innkeep/pkg/inventory"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Mongo migration job")
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Client, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	if cfg.InventoryFile != "" {
		seed(ctx, cfg)
	}
	cfg.Log.Info("Migration completed successfully")
}

func seed(ctx context.Context, cfg *config.Config) {
	rooms, err := inventory.Load(cfg.InventoryFile)
	if err != nil {
		cfg.Log.Fatal("Failed to load inventory", "file", cfg.InventoryFile, "error", err)
	}
	if _, err := inventory.Seed(ctx, repository.NewMongoRoomRepository(cfg), rooms, cfg.Log); err != nil {
		cfg.Log.Fatal("Failed to seed inventory", "error", err)
	}
}
