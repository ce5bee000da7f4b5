package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "innkeep/pkg/errors"
	"innkeep/pkg/interval"
)

// ParseTimeRange reads RFC 3339 start_time and end_time query parameters.
// Unparseable or missing instants are reported as an invalid range.
func ParseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	query := r.URL.Query()

	start, err := parseInstant("start_time", query.Get("start_time"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseInstant("end_time", query.Get("end_time"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseInstant(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperrors.InvalidInput(fmt.Sprintf("%s is required", name)).
			WithCause(interval.ErrInvalidRange)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter: %s", name, value)).
			WithDetails(map[string]any{"expected_format": time.RFC3339}).
			WithCause(interval.ErrInvalidRange)
	}
	return t.UTC(), nil
}

// ExtractMinBeds defaults to 1 when the parameter is absent.
func ExtractMinBeds(r *http.Request) (int, error) {
	s := r.URL.Query().Get("min_beds")
	if s == "" {
		return 1, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, apperrors.InvalidInput("invalid min_beds parameter: " + s)
	}
	return v, nil
}
