package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"innkeep/internal/rooms/service"
	"innkeep/internal/rooms/validator"
	apperrors "innkeep/pkg/errors"
	httputil "innkeep/pkg/http"
	"innkeep/pkg/interval"
	"innkeep/pkg/logger"
	"innkeep/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RoomHandler struct {
	service   service.RoomService
	validator *validator.RoomValidator
	log       *logger.Logger
}

func NewRoomHandler(service service.RoomService, validator *validator.RoomValidator, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		service:   service,
		validator: validator,
		log:       log,
	}
}

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/rooms", h.ListRooms)
	router.POST("/api/v1/rooms", h.CreateRoom)
	router.GET("/api/v1/rooms/available", h.AvailableRooms)
	router.GET("/api/v1/rooms/name/:name", h.GetRoom)
	router.DELETE("/api/v1/rooms/name/:name", h.DeleteRoom)
	router.POST("/api/v1/rooms/name/:name/bookings", h.BookRoom)

	router.GET("/api/v1/bookings", h.BookingsDuring)
	router.GET("/api/v1/bookings/ref/:reference", h.GetBooking)
	router.DELETE("/api/v1/bookings/ref/:reference", h.CancelBooking)
}

func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.writeError(w, "ListRooms", err)
		return
	}

	if err := httputil.WriteList(w, rooms, len(rooms)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListRooms", "operation", "WriteList", "error", err)
	}
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RoomCreate
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, "CreateRoom", err)
		return
	}

	room, err := h.service.CreateRoom(r.Context(), &req)
	if err != nil {
		h.writeError(w, "CreateRoom", err)
		return
	}

	if err := httputil.WriteCreated(w, room); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateRoom", "operation", "WriteCreated", "error", err)
	}
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, err := h.service.GetRoom(r.Context(), ps.ByName("name"))
	if err != nil {
		h.writeError(w, "GetRoom", err)
		return
	}

	if err := httputil.WriteSuccess(w, room); err != nil {
		h.log.Error("failed to write success response", "handler", "GetRoom", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := h.service.DeleteRoom(r.Context(), ps.ByName("name")); err != nil {
		h.writeError(w, "DeleteRoom", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *RoomHandler) AvailableRooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	minBeds, err := httputil.ExtractMinBeds(r)
	if err != nil {
		h.writeError(w, "AvailableRooms", err)
		return
	}

	start, end, err := httputil.ParseTimeRange(r)
	if err != nil {
		h.writeError(w, "AvailableRooms", err)
		return
	}

	rooms, err := h.service.RoomsWithCapacityAndAvailability(r.Context(), minBeds, start, end)
	if err != nil {
		h.writeError(w, "AvailableRooms", err)
		return
	}

	if err := httputil.WriteList(w, rooms, len(rooms)); err != nil {
		h.log.Error("failed to write list response", "handler", "AvailableRooms", "operation", "WriteList", "error", err)
	}
}

func (h *RoomHandler) BookRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.BookingRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, "BookRoom", err)
		return
	}

	if err := h.validator.ValidateBookingRequest(&req); err != nil {
		h.writeError(w, "BookRoom", apperrors.InvalidInput("start_time and end_time are required").
			WithDetails(map[string]any{"error": err.Error()}).
			WithCause(interval.ErrInvalidRange))
		return
	}

	booking, err := h.service.BookRoom(r.Context(), ps.ByName("name"), req.StartTime.UTC(), req.EndTime.UTC())
	if err != nil {
		h.writeError(w, "BookRoom", err)
		return
	}

	if err := httputil.WriteCreated(w, booking.Confirmation()); err != nil {
		h.log.Error("failed to write created response", "handler", "BookRoom", "operation", "WriteCreated", "error", err)
	}
}

func (h *RoomHandler) BookingsDuring(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, end, err := httputil.ParseTimeRange(r)
	if err != nil {
		h.writeError(w, "BookingsDuring", err)
		return
	}

	bookings, err := h.service.BookingsDuring(r.Context(), start, end)
	if err != nil {
		h.writeError(w, "BookingsDuring", err)
		return
	}

	if err := httputil.WriteList(w, bookings, len(bookings)); err != nil {
		h.log.Error("failed to write list response", "handler", "BookingsDuring", "operation", "WriteList", "error", err)
	}
}

func (h *RoomHandler) GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetBooking(r.Context(), ps.ByName("reference"))
	if err != nil {
		h.writeError(w, "GetBooking", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetBooking", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) CancelBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := h.service.CancelBooking(r.Context(), ps.ByName("reference")); err != nil {
		h.writeError(w, "CancelBooking", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *RoomHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if appErr := apperrors.AsAppError(err); appErr.Code == apperrors.CodeInternal {
		h.log.Error("request failed", "handler", handler, "error", err)
	}
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	var parseErr *time.ParseError
	switch {
	case errors.As(err, &tooLarge):
		return apperrors.PayloadTooLarge(tooLarge.Limit)
	case errors.As(err, &parseErr):
		return apperrors.InvalidInput("start_time and end_time must be RFC 3339 timestamps").
			WithCause(interval.ErrInvalidRange)
	default:
		return apperrors.InvalidInput("Invalid request body")
	}
}
