// Package timegrid maps wall-clock times onto a horizontal pixel axis
// and back. It is the geometry layer of the timetable: rendering asks
// "where does 10:30 sit", drag-style edits ask "what time is 412px,
// snapped and kept inside the day window".
package timegrid

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrWindow is returned for windows violating 0 <= start < end <= 24.
	ErrWindow = errors.New("invalid time window")
	// ErrScale is returned for non-positive pixels-per-hour scales.
	ErrScale = errors.New("invalid pixel scale")
	// ErrDoesNotFit is returned when a duration is longer than the window.
	ErrDoesNotFit = errors.New("duration does not fit window")
)

// Window is the visible slice of the day, in whole hours.
// EndHour may be 24 to include the minute before midnight.
type Window struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

func (w Window) Validate() error {
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("%w: [%d, %d)", ErrWindow, w.StartHour, w.EndHour)
	}
	return nil
}

// StartMin and EndMin are the window bounds as minutes of day.
func (w Window) StartMin() int { return w.StartHour * 60 }
func (w Window) EndMin() int   { return w.EndHour * 60 }

// Minutes is the window length.
func (w Window) Minutes() int { return (w.EndHour - w.StartHour) * 60 }

// Contains reports whether the minute of day lies inside the window.
func (w Window) Contains(min int) bool {
	return min >= w.StartMin() && min <= w.EndMin()
}

// TimeToOffset converts a "HH:MM" time to a pixel offset from the left
// edge of the window at the given horizontal scale. Times before the
// window start map to negative offsets; the caller decides whether to
// clamp or reject those.
func TimeToOffset(t string, w Window, pxPerHour float64) (float64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if pxPerHour <= 0 {
		return 0, fmt.Errorf("%w: %v px/h", ErrScale, pxPerHour)
	}
	min, err := ParseClock(t)
	if err != nil {
		return 0, err
	}
	return float64(min-w.StartMin()) * pxPerHour / 60, nil
}

// MinuteToOffset is TimeToOffset for an already-parsed minute of day.
func MinuteToOffset(min int, w Window, pxPerHour float64) float64 {
	return float64(min-w.StartMin()) * pxPerHour / 60
}

// OffsetToTime converts a pixel offset back to a minute of day, snapped
// to the nearest multiple of snap minutes and clamped so that an event
// of the given duration stays fully inside the window. Snapping rounds
// half away from zero. Clamping shifts the start; it never shortens the
// duration. snap <= 0 disables snapping; duration 0 is a point in time.
func OffsetToTime(px float64, w Window, pxPerHour float64, snap, duration int) (int, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if pxPerHour <= 0 {
		return 0, fmt.Errorf("%w: %v px/h", ErrScale, pxPerHour)
	}
	if duration < 0 {
		duration = 0
	}
	if duration > w.Minutes() {
		return 0, fmt.Errorf("%w: %dm into [%02d:00, %02d:00)",
			ErrDoesNotFit, duration, w.StartHour, w.EndHour)
	}

	min := w.StartMin() + snapMinutes(px*60/pxPerHour, snap)

	// Keep [min, min+duration] inside the window by shifting the start.
	if lo := w.StartMin(); min < lo {
		min = lo
	}
	if hi := w.EndMin() - duration; min > hi {
		min = hi
	}
	return min, nil
}

func snapMinutes(raw float64, snap int) int {
	if snap <= 0 {
		return int(math.Round(raw))
	}
	return int(math.Round(raw/float64(snap))) * snap
}
