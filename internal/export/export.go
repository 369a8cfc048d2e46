// Package export produces the machine-readable and visual forms of a
// timetable snapshot.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"stagehand/internal/render/svg"
	"stagehand/internal/timetable"
)

// JSON is the canonical snapshot export: the same shape the store
// persists, pretty-printed for humans and stable for tooling.
func JSON(snap timetable.Snapshot) ([]byte, error) {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(b, '\n'), nil
}

// SVG renders the visual timetable.
func SVG(snap timetable.Snapshot, title string) []byte {
	return svg.Render(snap, svg.Options{Title: title})
}

// Filename returns a timestamped download name, e.g.
// "timetable-20260823-1415.svg".
func Filename(ext string, at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	return "timetable-" + at.Format("20060102-1504") + "." + ext
}
