package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"innkeep/pkg/model"
)

// RoomsClient talks to the rooms HTTP API.
type RoomsClient struct {
	httpClient *HttpClient
}

func NewRoomsClient(baseURL string) *RoomsClient {
	return &RoomsClient{httpClient: NewHttpClient(baseURL)}
}

func (c *RoomsClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *RoomsClient) CreateRoom(ctx context.Context, room *model.RoomCreate) (*model.Room, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/rooms", room)
	if err != nil {
		return nil, err
	}
	var out model.Room
	if err := decodeData(resp, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RoomsClient) ListRooms(ctx context.Context) ([]*model.Room, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/rooms")
	if err != nil {
		return nil, err
	}
	var out []*model.Room
	if err := decodeData(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RoomsClient) GetRoom(ctx context.Context, name string) (*model.Room, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/rooms/name/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	var out model.Room
	if err := decodeData(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RoomsClient) DeleteRoom(ctx context.Context, name string) error {
	resp, err := c.httpClient.DELETE(ctx, "/api/v1/rooms/name/"+url.PathEscape(name))
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusNoContent)
}

func (c *RoomsClient) AvailableRooms(ctx context.Context, minBeds int, start, end time.Time) ([]*model.Room, error) {
	q := rangeQuery(start, end)
	q.Set("min_beds", strconv.Itoa(minBeds))

	resp, err := c.httpClient.GET(ctx, "/api/v1/rooms/available?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var out []*model.Room
	if err := decodeData(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BookRoom sends idempotencyKey when non-empty so a retried request
// returns the original confirmation.
func (c *RoomsClient) BookRoom(ctx context.Context, name string, start, end time.Time, idempotencyKey string) (*model.BookingConfirmation, error) {
	body := model.BookingRequest{StartTime: &start, EndTime: &end}
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	resp, err := c.httpClient.POSTWithHeaders(ctx, "/api/v1/rooms/name/"+url.PathEscape(name)+"/bookings", body, headers)
	if err != nil {
		return nil, err
	}
	var out model.BookingConfirmation
	if err := decodeData(resp, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RoomsClient) BookingsDuring(ctx context.Context, start, end time.Time) ([]*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings?"+rangeQuery(start, end).Encode())
	if err != nil {
		return nil, err
	}
	var out []*model.Booking
	if err := decodeData(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RoomsClient) GetBooking(ctx context.Context, reference string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/ref/"+url.PathEscape(reference))
	if err != nil {
		return nil, err
	}
	var out model.Booking
	if err := decodeData(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RoomsClient) CancelBooking(ctx context.Context, reference string) error {
	resp, err := c.httpClient.DELETE(ctx, "/api/v1/bookings/ref/"+url.PathEscape(reference))
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusNoContent)
}

func rangeQuery(start, end time.Time) url.Values {
	q := url.Values{}
	q.Set("start_time", start.UTC().Format(time.RFC3339))
	q.Set("end_time", end.UTC().Format(time.RFC3339))
	return q
}

func expectStatus(resp *Response, want int) error {
	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	return nil
}

func decodeData(resp *Response, want int, target any) error {
	if err := expectStatus(resp, want); err != nil {
		return err
	}
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return fmt.Errorf("could not decode response wrapper: %s: %w", resp, err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data: %s: %w", resp, err)
	}
	return nil
}
