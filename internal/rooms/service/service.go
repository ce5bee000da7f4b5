package service

import (
	"context"
	"errors"
	"time"

	roomserrors "innkeep/internal/rooms/errors"
	"innkeep/internal/rooms/events"
	"innkeep/internal/rooms/repository"
	"innkeep/internal/rooms/validator"
	"innkeep/pkg/config"
	apperrors "innkeep/pkg/errors"
	"innkeep/pkg/model"
	"innkeep/pkg/reference"
)

type RoomService interface {
	ListRooms(ctx context.Context) ([]*model.Room, error)
	GetRoom(ctx context.Context, name string) (*model.Room, error)
	CreateRoom(ctx context.Context, room *model.RoomCreate) (*model.Room, error)
	DeleteRoom(ctx context.Context, name string) (*model.Room, error)

	RoomsWithCapacityAndAvailability(ctx context.Context, minBeds int, start, end time.Time) ([]*model.Room, error)

	BookRoom(ctx context.Context, roomName string, start, end time.Time) (*model.Booking, error)
	CancelBooking(ctx context.Context, reference string) (*model.Booking, error)
	GetBooking(ctx context.Context, reference string) (*model.Booking, error)

	BookingsDuring(ctx context.Context, start, end time.Time) ([]*model.Booking, error)
}

type roomService struct {
	repo       repository.RoomRepository
	validator  *validator.RoomValidator
	references reference.Generator
	publisher  events.Publisher
	cfg        *config.Config
}

func NewRoomService(
	repo repository.RoomRepository,
	validator *validator.RoomValidator,
	references reference.Generator,
	publisher events.Publisher,
	cfg *config.Config,
) RoomService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &roomService{
		repo:       repo,
		validator:  validator,
		references: references,
		publisher:  publisher,
		cfg:        cfg,
	}
}

// toAppError maps domain errors to their API form. The domain error stays
// reachable through errors.Is.
func toAppError(err error, internalMessage string) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, roomserrors.ErrInvalidRange):
		return apperrors.InvalidInput("start_time must be before end_time").WithCause(roomserrors.ErrInvalidRange)
	case errors.Is(err, roomserrors.ErrRoomNotFound):
		return apperrors.NotFound("Room").WithCause(roomserrors.ErrRoomNotFound)
	case errors.Is(err, roomserrors.ErrBookingNotFound):
		return apperrors.NotFound("Booking").WithCause(roomserrors.ErrBookingNotFound)
	case errors.Is(err, roomserrors.ErrRoomAlreadyBooked):
		return apperrors.Conflict("Room is already booked for the requested period").WithCause(roomserrors.ErrRoomAlreadyBooked)
	case errors.Is(err, roomserrors.ErrRoomExists):
		return apperrors.Conflict("Room with this name already exists").WithCause(roomserrors.ErrRoomExists)
	case errors.Is(err, roomserrors.ErrRoomBusy):
		return apperrors.Unavailable("Room").WithCause(roomserrors.ErrRoomBusy)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("Operation timed out").WithCause(err)
	default:
		return apperrors.Internal(internalMessage, err)
	}
}
