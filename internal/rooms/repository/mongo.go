package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	roomserrors "innkeep/internal/rooms/errors"
	"innkeep/pkg/config"
	mongotx "innkeep/pkg/db/mongo"
	"innkeep/pkg/interval"
	"innkeep/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RoomsCollectionName    = "Rooms"
	BookingsCollectionName = "Bookings"
)

type mongoRoomRepository struct {
	cfg       *config.Config
	db        *mongo.Database
	rooms     *mongo.Collection
	bookings  *mongo.Collection
	locks     RoomLockRepository
	txManager mongotx.TransactionManager
	local     *keyedMutex
	owner     string
}

func NewMongoRoomRepository(cfg *config.Config) RoomRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoRoomRepository{
		cfg:       cfg,
		db:        db,
		rooms:     db.Collection(RoomsCollectionName),
		bookings:  db.Collection(BookingsCollectionName),
		locks:     NewRoomLockRepository(cfg),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo.Client),
		local:     newKeyedMutex(),
		owner:     uuid.NewString(),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without losing the session.
func (r *mongoRoomRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoRoomRepository) ListRooms(ctx context.Context) ([]*model.Room, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.rooms.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find rooms: %w", err)
	}
	defer cursor.Close(ctx)

	rooms := make([]*model.Room, 0)
	if err = cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}

	bookings, err := r.findBookings(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	byRoom := make(map[string][]*model.Booking, len(rooms))
	for _, b := range bookings {
		byRoom[b.RoomID] = append(byRoom[b.RoomID], b)
	}
	for _, room := range rooms {
		room.Bookings = byRoom[room.ID]
		if room.Bookings == nil {
			room.Bookings = make([]*model.Booking, 0)
		}
	}

	return rooms, nil
}

func (r *mongoRoomRepository) FindRoomByName(ctx context.Context, name string) (*model.Room, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.loadRoom(ctx, bson.M{"name": name})
}

func (r *mongoRoomRepository) loadRoom(ctx context.Context, filter bson.M) (*model.Room, error) {
	var room model.Room
	if err := r.rooms.FindOne(ctx, filter).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, roomserrors.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}

	bookings, err := r.findBookings(ctx, bson.M{"room_id": room.ID})
	if err != nil {
		return nil, err
	}
	room.Bookings = bookings
	return &room, nil
}

func (r *mongoRoomRepository) FindBookingByReference(ctx context.Context, reference string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	if err := r.bookings.FindOne(ctx, bson.M{"reference": reference}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, roomserrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoRoomRepository) ListBookings(ctx context.Context) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findBookings(ctx, bson.M{})
}

func (r *mongoRoomRepository) ListBookingsOverlapping(ctx context.Context, window interval.Interval) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findBookings(ctx, buildOverlapFilter(window))
}

// buildCommitOverlapFilter matches stored bookings of roomID that overlap b,
// ignoring the references the same commit removes.
func buildCommitOverlapFilter(roomID string, b *model.Booking, removed []string) bson.M {
	filter := buildOverlapFilter(interval.Interval{Start: b.StartTime, End: b.EndTime})
	filter["room_id"] = roomID
	if len(removed) > 0 {
		filter["reference"] = bson.M{"$nin": removed}
	}
	return filter
}

// buildOverlapFilter is the half-open overlap test expressed as a query
func buildOverlapFilter(window interval.Interval) bson.M {
	return bson.M{
		"start_time": bson.M{"$lt": window.End},
		"end_time":   bson.M{"$gt": window.Start},
	}
}

func (r *mongoRoomRepository) findBookings(ctx context.Context, filter bson.M) ([]*model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.bookings.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*model.Booking, 0)
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoRoomRepository) CreateRoom(ctx context.Context, room *model.Room) error {
	if err := checkInitialBookings(room.Bookings); err != nil {
		return err
	}

	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.rooms.InsertOne(sessCtx, room); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return mongotx.Abort(roomserrors.ErrRoomExists)
			}
			return fmt.Errorf("failed to create room: %w", err)
		}

		if len(room.Bookings) == 0 {
			return nil
		}

		docs := make([]any, 0, len(room.Bookings))
		for _, b := range room.Bookings {
			if b.ID == "" {
				b.ID = uuid.NewString()
			}
			b.RoomID = room.ID
			b.RoomName = room.Name
			if b.CreatedAt.IsZero() {
				b.CreatedAt = room.CreatedAt
			}
			docs = append(docs, b)
		}
		if _, err := r.bookings.InsertMany(sessCtx, docs); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return mongotx.Abort(roomserrors.ErrDuplicateReference)
			}
			return fmt.Errorf("failed to create bookings: %w", err)
		}
		return nil
	})
	return unwrapDomainError(err)
}

func (r *mongoRoomRepository) DeleteRoom(ctx context.Context, name string) (*model.Room, error) {
	room, err := r.FindRoomByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var removed *model.Room
	err = r.withRoomLock(ctx, room.ID, func(ctx context.Context) error {
		return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			current, err := r.loadRoom(sessCtx, bson.M{"_id": room.ID})
			if err != nil {
				return mongotx.Abort(err)
			}
			if _, err := r.bookings.DeleteMany(sessCtx, bson.M{"room_id": room.ID}); err != nil {
				return fmt.Errorf("failed to delete bookings: %w", err)
			}
			if _, err := r.rooms.DeleteOne(sessCtx, bson.M{"_id": room.ID}); err != nil {
				return fmt.Errorf("failed to delete room: %w", err)
			}
			removed = current
			return nil
		})
	})
	if err != nil {
		return nil, unwrapDomainError(err)
	}

	return removed, nil
}

func (r *mongoRoomRepository) Allocate(ctx context.Context, roomID string, fn AllocateFunc) error {
	return r.withRoomLock(ctx, roomID, func(ctx context.Context) error {
		readCtx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
		room, err := r.loadRoom(readCtx, bson.M{"_id": roomID})
		cancel()
		if err != nil {
			return err
		}

		alloc := newAllocation(ctx, room, r)
		if err := fn(ctx, alloc); err != nil {
			alloc.seal()
			alloc.rollback()
			return err
		}

		added, removed := alloc.seal()
		if len(added) == 0 && len(removed) == 0 {
			return nil
		}
		return unwrapDomainError(r.commit(ctx, roomID, added, removed))
	})
}

// commit applies staged changes in one transaction. The booking_version bump
// makes concurrent commits on one room write-conflict, and overlaps are
// recounted inside the transaction so a lapsed room lock cannot double-book.
func (r *mongoRoomRepository) commit(ctx context.Context, roomID string, added, removed []*model.Booking) error {
	references := make([]string, 0, len(removed))
	for _, b := range removed {
		references = append(references, b.Reference)
	}

	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := r.rooms.UpdateOne(sessCtx, bson.M{"_id": roomID}, bson.M{"$inc": bson.M{"booking_version": 1}})
		if err != nil {
			return fmt.Errorf("failed to touch room: %w", err)
		}
		if result.MatchedCount == 0 {
			return mongotx.Abort(roomserrors.ErrRoomNotFound)
		}

		if len(references) > 0 {
			filter := bson.M{"room_id": roomID, "reference": bson.M{"$in": references}}
			if _, err := r.bookings.DeleteMany(sessCtx, filter); err != nil {
				return fmt.Errorf("failed to delete bookings: %w", err)
			}
		}

		for _, b := range added {
			count, err := r.bookings.CountDocuments(sessCtx, buildCommitOverlapFilter(roomID, b, references), options.Count().SetLimit(1))
			if err != nil {
				return fmt.Errorf("failed to check booking overlap: %w", err)
			}
			if count > 0 {
				return mongotx.Abort(roomserrors.ErrRoomAlreadyBooked)
			}
		}

		if len(added) > 0 {
			now := time.Now().UTC().Truncate(time.Millisecond)
			docs := make([]any, 0, len(added))
			for _, b := range added {
				if b.ID == "" {
					b.ID = uuid.NewString()
				}
				if b.CreatedAt.IsZero() {
					b.CreatedAt = now
				}
				docs = append(docs, b)
			}
			if _, err := r.bookings.InsertMany(sessCtx, docs); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return mongotx.Abort(roomserrors.ErrDuplicateReference)
				}
				return fmt.Errorf("failed to create bookings: %w", err)
			}
		}

		return nil
	})
}

// withRoomLock serialises fn against every other holder of the room, first
// within this process and then across instances through the lock collection.
func (r *mongoRoomRepository) withRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	unlock, err := r.local.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	lock, err := r.acquireRoomLock(ctx, roomID)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
		defer cancel()
		if err := r.locks.Release(releaseCtx, lock); err != nil {
			r.cfg.Log.Warn("Failed to release room lock",
				"room_id", roomID,
				"lock_id", lock.ID,
				"error", err,
			)
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}

	if time.Now().UTC().After(lock.ExpiresAt) {
		r.cfg.Log.Warn("Room lock expired while held",
			"room_id", roomID,
			"lock_id", lock.ID,
			"expired_at", lock.ExpiresAt,
		)
	}
	return nil
}

func (r *mongoRoomRepository) acquireRoomLock(ctx context.Context, roomID string) (*model.RoomLock, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.cfg.LockWaitTimeout)
	defer cancel()

	ticker := time.NewTicker(r.cfg.LockPollInterval)
	defer ticker.Stop()

	owner := r.owner + "/" + uuid.NewString()
	for {
		lock, err := r.locks.Acquire(waitCtx, roomID, owner, r.cfg.LockTTL)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, errLockHeld) && waitCtx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire room lock: %w", err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, roomserrors.ErrRoomBusy
		case <-ticker.C:
		}
	}
}

func (r *mongoRoomRepository) Reserve(ctx context.Context, _ string, reference string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.bookings.CountDocuments(ctx, bson.M{"reference": reference}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check booking reference: %w", err)
	}
	if count > 0 {
		return roomserrors.ErrDuplicateReference
	}
	return nil
}

// Release is a no-op; the unique reference index settles races at commit.
func (r *mongoRoomRepository) Release(string, string) {}

func (r *mongoRoomRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.db.Client().Ping(ctx, nil)
}

// Close is a no-op; the shared client is disconnected by the config owner.
func (r *mongoRoomRepository) Close(context.Context) error {
	return nil
}

// unwrapDomainError strips transaction wrapping from domain sentinels
func unwrapDomainError(err error) error {
	for _, sentinel := range []error{
		roomserrors.ErrRoomNotFound,
		roomserrors.ErrRoomExists,
		roomserrors.ErrDuplicateReference,
		roomserrors.ErrRoomAlreadyBooked,
		roomserrors.ErrInvalidRange,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}
