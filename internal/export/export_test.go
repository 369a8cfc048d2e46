package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"stagehand/internal/timegrid"
	"stagehand/internal/timetable"
)

func TestJSONRoundTrip(t *testing.T) {
	snap := timetable.Snapshot{
		Window:      timegrid.Window{StartHour: 9, EndHour: 22},
		PxPerHour:   100,
		SnapMinutes: 5,
		Stages:      []timetable.Stage{{ID: "st-1", Name: "Main"}},
		Acts:        []timetable.Act{{ID: "act-1", StageID: "st-1", Name: "Set", Start: "10:00", End: "11:00"}},
	}
	b, err := JSON(snap)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var back timetable.Snapshot
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if back.Acts[0].Start != "10:00" || back.Window.EndHour != 22 {
		t.Fatalf("export lost data: %+v", back)
	}
}

func TestSVGCarriesTitle(t *testing.T) {
	snap := timetable.Snapshot{Window: timegrid.Window{StartHour: 9, EndHour: 22}, PxPerHour: 100}
	if !strings.Contains(string(SVG(snap, "My Fest")), "My Fest") {
		t.Fatalf("title missing from SVG export")
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 8, 23, 14, 15, 0, 0, time.UTC)
	if got := Filename("svg", at); got != "timetable-20260823-1415.svg" {
		t.Fatalf("Filename = %q", got)
	}
}
