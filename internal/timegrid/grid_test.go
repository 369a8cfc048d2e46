package timegrid

import (
	"errors"
	"math"
	"testing"
)

func TestTimeToOffsetAnchors(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 22}

	off, err := TimeToOffset("09:00", w, 300)
	if err != nil {
		t.Fatalf("TimeToOffset: %v", err)
	}
	if off != 0 {
		t.Fatalf("offset of window start = %v, want 0", off)
	}

	off, err = TimeToOffset("10:00", w, 300)
	if err != nil {
		t.Fatalf("TimeToOffset: %v", err)
	}
	if off != 300 {
		t.Fatalf("offset one hour in = %v, want 300", off)
	}

	off, err = TimeToOffset("08:30", w, 100)
	if err != nil {
		t.Fatalf("TimeToOffset: %v", err)
	}
	if off != -50 {
		t.Fatalf("offset before window = %v, want -50", off)
	}
}

func TestTimeToOffsetErrors(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 22}
	if _, err := TimeToOffset("9am", w, 100); !errors.Is(err, ErrInvalidClock) {
		t.Fatalf("malformed time: got %v", err)
	}
	if _, err := TimeToOffset("10:00", Window{StartHour: 22, EndHour: 9}, 100); !errors.Is(err, ErrWindow) {
		t.Fatalf("inverted window: got %v", err)
	}
	if _, err := TimeToOffset("10:00", w, 0); !errors.Is(err, ErrScale) {
		t.Fatalf("zero scale: got %v", err)
	}
}

func TestOffsetToTimeRoundTrip(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 22}
	for _, px := range []float64{100, 160, 300} {
		for min := w.StartMin(); min <= w.EndMin(); min++ {
			off := MinuteToOffset(min, w, px)
			got, err := OffsetToTime(off, w, px, 1, 0)
			if err != nil {
				t.Fatalf("OffsetToTime(%v): %v", off, err)
			}
			if got != min {
				t.Fatalf("round trip at %s px/h %v: got %s", FormatClock(min), px, FormatClock(got))
			}
		}
	}
}

func TestOffsetToTimeSnapping(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 22}
	for px := 0.0; px <= 1300; px += 7.3 {
		got, err := OffsetToTime(px, w, 100, 5, 0)
		if err != nil {
			t.Fatalf("OffsetToTime(%v): %v", px, err)
		}
		if got%5 != 0 {
			t.Fatalf("snapped minute %d not divisible by 5 (px=%v)", got, px)
		}
		// The snapped value is the nearest multiple, so it sits within
		// half a snap interval of the raw position.
		raw := float64(w.StartMin()) + px*60/100
		if d := math.Abs(raw - float64(got)); d > 2.5+1e-9 {
			t.Fatalf("snap moved %v minutes (px=%v)", d, px)
		}
	}
}

func TestOffsetToTimeSnapHalfway(t *testing.T) {
	w := Window{StartHour: 0, EndHour: 24}
	// 2.5 raw minutes at snap 5 rounds away from zero, to 5.
	got, err := OffsetToTime(2.5, w, 60, 5, 0)
	if err != nil {
		t.Fatalf("OffsetToTime: %v", err)
	}
	if got != 5 {
		t.Fatalf("halfway snap = %d, want 5", got)
	}
}

func TestOffsetToTimeClamping(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 22}

	// Dragged far left: clamp to the window start.
	got, err := OffsetToTime(-5000, w, 100, 5, 60)
	if err != nil {
		t.Fatalf("OffsetToTime: %v", err)
	}
	if got != w.StartMin() {
		t.Fatalf("left clamp = %s, want %s", FormatClock(got), FormatClock(w.StartMin()))
	}

	// Dragged far right: the whole duration stays inside the window.
	got, err = OffsetToTime(50000, w, 100, 5, 90)
	if err != nil {
		t.Fatalf("OffsetToTime: %v", err)
	}
	if want := w.EndMin() - 90; got != want {
		t.Fatalf("right clamp = %s, want %s", FormatClock(got), FormatClock(want))
	}

	// A duration off the snap grid still lands exactly on EndMin-duration
	// at the right edge, even though that start is not a snap multiple.
	got, err = OffsetToTime(50000, w, 100, 5, 47)
	if err != nil {
		t.Fatalf("OffsetToTime: %v", err)
	}
	if want := w.EndMin() - 47; got != want {
		t.Fatalf("off-grid right clamp = %s, want %s", FormatClock(got), FormatClock(want))
	}

	// Duration longer than the window cannot be placed at all.
	if _, err := OffsetToTime(0, w, 100, 5, w.Minutes()+1); !errors.Is(err, ErrDoesNotFit) {
		t.Fatalf("oversized duration: got %v", err)
	}
}

func TestOffsetToTimePreservesDuration(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 22}
	const dur = 45
	for px := -400.0; px <= 1700; px += 33 {
		start, err := OffsetToTime(px, w, 100, 5, dur)
		if err != nil {
			t.Fatalf("OffsetToTime(%v): %v", px, err)
		}
		if start < w.StartMin() || start+dur > w.EndMin() {
			t.Fatalf("act [%s, %s] escapes window", FormatClock(start), FormatClock(start+dur))
		}
	}
}

func TestWindowValidate(t *testing.T) {
	for _, w := range []Window{{0, 24}, {9, 22}, {23, 24}} {
		if err := w.Validate(); err != nil {
			t.Fatalf("Validate(%+v): %v", w, err)
		}
	}
	for _, w := range []Window{{-1, 10}, {10, 25}, {12, 12}, {22, 9}} {
		if err := w.Validate(); !errors.Is(err, ErrWindow) {
			t.Fatalf("Validate(%+v): got %v", w, err)
		}
	}
}
