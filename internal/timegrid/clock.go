package timegrid

import (
	"errors"
	"fmt"
)

// ErrInvalidClock is returned for times that are not strict "HH:MM".
var ErrInvalidClock = errors.New("invalid clock time")

// ParseClock parses a strict "HH:MM" wall-clock time and returns the
// minute of day (0..1439). Hours 0-23, minutes 0-59, both zero-padded
// to two digits. Anything else is rejected.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q (want HH:MM)", ErrInvalidClock, s)
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("%w: %q (want HH:MM)", ErrInvalidClock, s)
	}
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q (hour 0-23, minute 0-59)", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

// ParseClockEnd is ParseClock extended with "24:00", the exclusive end
// of a full-day range. Range ends use it so a slot may close exactly at
// midnight; "24:01" and beyond stay invalid.
func ParseClockEnd(s string) (int, error) {
	if s == "24:00" {
		return 24 * 60, nil
	}
	return ParseClock(s)
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// FormatClock renders a minute of day as "HH:MM". The hour wraps mod 24
// so values produced by window arithmetic stay displayable.
func FormatClock(min int) string {
	min %= 24 * 60
	if min < 0 {
		min += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// FormatClockEnd is FormatClock except that minute 1440 renders as
// "24:00" instead of wrapping to "00:00". Use it for range ends so a
// slot closing at midnight survives a format/parse round trip.
func FormatClockEnd(min int) string {
	if min == 24*60 {
		return "24:00"
	}
	return FormatClock(min)
}

// DurationMinutes returns end minus start in minutes of the same day.
// The end may be "24:00". The result is negative when end precedes
// start; callers that require a positive duration validate that
// themselves.
func DurationMinutes(start, end string) (int, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClockEnd(end)
	if err != nil {
		return 0, err
	}
	return e - s, nil
}
