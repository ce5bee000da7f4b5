package repository

import (
	"context"
	"errors"
	"time"

	"innkeep/pkg/config"
	"innkeep/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	RoomLocksCollectionName = "Room_locks"
	roomLockPrefix          = "room_lock_"
)

var errLockHeld = errors.New("room lock is held by another owner")

// RoomLockRepository provides operations for advisory room locks
type RoomLockRepository interface {
	Acquire(ctx context.Context, roomID string, owner string, ttl time.Duration) (*model.RoomLock, error)
	Release(ctx context.Context, lock *model.RoomLock) error
}

type mongoRoomLockRepository struct {
	collection *mongo.Collection
}

func NewRoomLockRepository(cfg *config.Config) RoomLockRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoRoomLockRepository{
		collection: db.Collection(RoomLocksCollectionName),
	}
}

func RoomLockID(roomID string) string {
	return roomLockPrefix + roomID
}

// Acquire returns errLockHeld while a live lock exists. An expired lock is
// taken over even if the TTL monitor has not reaped it yet.
func (r *mongoRoomLockRepository) Acquire(ctx context.Context, roomID string, owner string, ttl time.Duration) (*model.RoomLock, error) {
	now := time.Now().UTC()
	lock := &model.RoomLock{
		ID:        RoomLockID(roomID),
		RoomID:    roomID,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return lock, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lock.ID,
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return nil, err
	}
	if result.DeletedCount == 0 {
		return nil, errLockHeld
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errLockHeld
		}
		return nil, err
	}
	return lock, nil
}

// Release only removes the lock if it is still owned by the caller
func (r *mongoRoomLockRepository) Release(ctx context.Context, lock *model.RoomLock) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lock.ID, "owner": lock.Owner})
	return err
}
