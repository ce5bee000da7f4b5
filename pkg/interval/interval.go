package interval

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("start must be before end")

// Interval is a half-open time range [Start, End). Back-to-back intervals,
// where one ends exactly when the other begins, do not overlap.
type Interval struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

func New(start, end time.Time) (Interval, error) {
	if !IsValidRange(start, end) {
		return Interval{}, ErrInvalidRange
	}
	return Interval{Start: start, End: end}, nil
}

// IsValidRange reports whether start is strictly before end.
// Zero-length and inverted ranges are rejected.
func IsValidRange(start, end time.Time) bool {
	return start.Before(end)
}

// Overlaps reports whether a and b share at least one instant.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i, other)
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) Valid() bool {
	return IsValidRange(i.Start, i.End)
}
