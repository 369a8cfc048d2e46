package timegrid

import (
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:00", 540, true},
		{"23:59", 1439, true},
		{"10:05", 605, true},
		{"", 0, false},
		{"9:00", 0, false},
		{"09:0", 0, false},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"ab:cd", 0, false},
		{"12-30", 0, false},
		{"12:300", 0, false},
		{" 9:00", 0, false},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		if c.ok {
			if err != nil {
				t.Fatalf("ParseClock(%q): unexpected error %v", c.in, err)
			}
			if got != c.want {
				t.Fatalf("ParseClock(%q) = %d, want %d", c.in, got, c.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("ParseClock(%q): expected error, got %d", c.in, got)
		}
		if !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("ParseClock(%q): error %v is not ErrInvalidClock", c.in, err)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{540, "09:00"},
		{1439, "23:59"},
		{1440, "00:00"},
		{1500, "01:00"},
		{-60, "23:00"},
	}
	for _, c := range cases {
		if got := FormatClock(c.in); got != c.want {
			t.Fatalf("FormatClock(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for min := 0; min < 24*60; min++ {
		got, err := ParseClock(FormatClock(min))
		if err != nil {
			t.Fatalf("round trip %d: %v", min, err)
		}
		if got != min {
			t.Fatalf("round trip %d: got %d", min, got)
		}
	}
}

func TestClockEndBoundary(t *testing.T) {
	if got, err := ParseClockEnd("24:00"); err != nil || got != 1440 {
		t.Fatalf("ParseClockEnd(24:00) = %d, %v; want 1440, nil", got, err)
	}
	if got, err := ParseClockEnd("23:59"); err != nil || got != 1439 {
		t.Fatalf("ParseClockEnd(23:59) = %d, %v; want 1439, nil", got, err)
	}
	for _, in := range []string{"24:01", "25:00", "24:0"} {
		if _, err := ParseClockEnd(in); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("ParseClockEnd(%q): got %v, want ErrInvalidClock", in, err)
		}
	}

	if got := FormatClockEnd(1440); got != "24:00" {
		t.Fatalf("FormatClockEnd(1440) = %q, want 24:00", got)
	}
	if got := FormatClockEnd(600); got != "10:00" {
		t.Fatalf("FormatClockEnd(600) = %q, want 10:00", got)
	}
	// Round trip at the midnight boundary.
	if got, err := ParseClockEnd(FormatClockEnd(1440)); err != nil || got != 1440 {
		t.Fatalf("midnight round trip = %d, %v", got, err)
	}
}

func TestDurationMinutes(t *testing.T) {
	if d, err := DurationMinutes("10:00", "11:30"); err != nil || d != 90 {
		t.Fatalf("DurationMinutes = %d, %v; want 90, nil", d, err)
	}
	if d, err := DurationMinutes("11:30", "10:00"); err != nil || d != -90 {
		t.Fatalf("reversed DurationMinutes = %d, %v; want -90, nil", d, err)
	}
	if _, err := DurationMinutes("25:00", "10:00"); err == nil {
		t.Fatalf("expected error for malformed start")
	}
	if _, err := DurationMinutes("10:00", "1030"); err == nil {
		t.Fatalf("expected error for malformed end")
	}
	if d, err := DurationMinutes("23:00", "24:00"); err != nil || d != 60 {
		t.Fatalf("midnight-ending duration = %d, %v; want 60, nil", d, err)
	}
	if _, err := DurationMinutes("24:00", "24:00"); err == nil {
		t.Fatalf("expected error for 24:00 as a start")
	}
}
