package svg

import (
	"strings"
	"testing"
	"time"

	"stagehand/internal/timegrid"
	"stagehand/internal/timetable"
)

func testSnapshot() timetable.Snapshot {
	return timetable.Snapshot{
		Window:      timegrid.Window{StartHour: 9, EndHour: 22},
		PxPerHour:   100,
		SnapMinutes: 5,
		Stages: []timetable.Stage{
			{ID: "st-1", Name: "Main"},
			{ID: "st-2", Name: "Club <Tent>"},
		},
		Acts: []timetable.Act{
			{ID: "act-1", StageID: "st-1", Name: "Opener & Friends", Start: "10:00", End: "11:30", Category: "live"},
			{ID: "act-2", StageID: "st-2", Name: "Night DJ", Start: "21:00", End: "22:00", Color: "#112233"},
		},
		UpdatedAt: time.Now(),
	}
}

func TestRenderWellFormed(t *testing.T) {
	out := string(Render(testSnapshot(), Options{Title: "Fest"}))

	if !strings.HasPrefix(out, `<?xml version="1.0"`) {
		t.Fatalf("missing XML prolog: %.60q", out)
	}
	if !strings.Contains(out, "</svg>") {
		t.Fatalf("unterminated svg")
	}
	for _, want := range []string{"Fest", "Main", "09:00", "22:00", "10:00–11:30"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}
}

func TestRenderEscapesMarkup(t *testing.T) {
	out := string(Render(testSnapshot(), Options{}))
	if strings.Contains(out, "<Tent>") {
		t.Fatalf("unescaped stage name in output")
	}
	if !strings.Contains(out, "Club &lt;Tent&gt;") {
		t.Fatalf("expected escaped stage name")
	}
	if !strings.Contains(out, "Opener &amp; Friends") {
		t.Fatalf("expected escaped act name")
	}
}

func TestRenderActGeometry(t *testing.T) {
	out := string(Render(testSnapshot(), Options{}))
	// act-1 starts one hour into the window: label width 140 + 100px.
	if !strings.Contains(out, `<rect x="240.0"`) {
		t.Fatalf("act box not at expected x offset")
	}
	// 90 minutes at 100 px/h.
	if !strings.Contains(out, `width="150.0"`) {
		t.Fatalf("act box not at expected width")
	}
}

func TestRenderExplicitColorWins(t *testing.T) {
	out := string(Render(testSnapshot(), Options{}))
	if !strings.Contains(out, `fill="#112233"`) {
		t.Fatalf("explicit act color ignored")
	}
}

func TestRenderEmptySnapshot(t *testing.T) {
	snap := timetable.Snapshot{
		Window:    timegrid.Window{StartHour: 9, EndHour: 22},
		PxPerHour: 100,
	}
	out := string(Render(snap, Options{}))
	if !strings.Contains(out, "no stages yet") {
		t.Fatalf("empty snapshot note missing")
	}
}
