package timetable

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stagehand/internal/eventbus"
	"stagehand/internal/storage"
	"stagehand/internal/timegrid"
	logx "stagehand/pkg/logx"
)

func openMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), nil, nil, logx.Nop(), Defaults{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func mustStage(t *testing.T, s *Store, name string) Stage {
	t.Helper()
	st, err := s.AddStage(context.Background(), name)
	if err != nil {
		t.Fatalf("AddStage(%q): %v", name, err)
	}
	return st
}

func mustAct(t *testing.T, s *Store, in ActInput) Act {
	t.Helper()
	a, err := s.AddAct(context.Background(), in)
	if err != nil {
		t.Fatalf("AddAct(%+v): %v", in, err)
	}
	return a
}

func TestOpenDefaults(t *testing.T) {
	s := openMemStore(t)
	snap := s.Snapshot()
	if snap.Window != (timegrid.Window{StartHour: 9, EndHour: 22}) {
		t.Fatalf("default window = %+v", snap.Window)
	}
	if snap.PxPerHour != 100 {
		t.Fatalf("default px/h = %v", snap.PxPerHour)
	}
	if len(snap.Stages) != 0 || len(snap.Acts) != 0 {
		t.Fatalf("default snapshot not empty: %+v", snap)
	}
}

func TestStageAndActLifecycle(t *testing.T) {
	s := openMemStore(t)
	ctx := context.Background()

	main := mustStage(t, s, "Main")
	act := mustAct(t, s, ActInput{StageID: main.ID, Name: "Opener", Start: "10:00", End: "11:00", Category: "live"})

	snap := s.Snapshot()
	if got, ok := snap.ActByID(act.ID); !ok || got.Name != "Opener" {
		t.Fatalf("ActByID = %+v, %v", got, ok)
	}

	// A stage with acts refuses deletion unless cascading.
	if err := s.DeleteStage(ctx, main.ID, false); !errors.Is(err, ErrStageInUse) {
		t.Fatalf("DeleteStage without cascade: got %v", err)
	}
	if err := s.DeleteStage(ctx, main.ID, true); err != nil {
		t.Fatalf("DeleteStage cascade: %v", err)
	}
	snap = s.Snapshot()
	if len(snap.Stages) != 0 || len(snap.Acts) != 0 {
		t.Fatalf("cascade left residue: %+v", snap)
	}
}

func TestAddActValidation(t *testing.T) {
	s := openMemStore(t)
	main := mustStage(t, s, "Main")

	cases := []struct {
		name string
		in   ActInput
		want error
	}{
		{"unknown stage", ActInput{StageID: "nope", Name: "X", Start: "10:00", End: "11:00"}, ErrUnknownStage},
		{"reversed times", ActInput{StageID: main.ID, Name: "X", Start: "11:00", End: "10:00"}, ErrActTimes},
		{"zero duration", ActInput{StageID: main.ID, Name: "X", Start: "10:00", End: "10:00"}, ErrActTimes},
		{"before window", ActInput{StageID: main.ID, Name: "X", Start: "08:00", End: "10:00"}, ErrOutOfWindow},
		{"past window", ActInput{StageID: main.ID, Name: "X", Start: "21:30", End: "22:30"}, ErrOutOfWindow},
		{"empty name", ActInput{StageID: main.ID, Name: "  ", Start: "10:00", End: "11:00"}, ErrEmptyName},
		{"bad clock", ActInput{StageID: main.ID, Name: "X", Start: "10am", End: "11:00"}, timegrid.ErrInvalidClock},
	}
	for _, c := range cases {
		if _, err := s.AddAct(context.Background(), c.in); !errors.Is(err, c.want) {
			t.Fatalf("%s: got %v, want %v", c.name, err, c.want)
		}
	}

	// Failed updates must not leak into the snapshot.
	if n := len(s.Snapshot().Acts); n != 0 {
		t.Fatalf("rejected acts leaked into snapshot: %d", n)
	}
}

func TestActColorValidation(t *testing.T) {
	s := openMemStore(t)
	main := mustStage(t, s, "Main")
	ctx := context.Background()

	for _, color := range []string{"#fff", "#FFAA00", ""} {
		if _, err := s.AddAct(ctx, ActInput{StageID: main.ID, Name: "A " + color, Start: "10:00", End: "10:30", Color: color}); err != nil {
			t.Fatalf("color %q rejected: %v", color, err)
		}
	}
	for _, color := range []string{"fff", "#ffff", "#gg0000", "red"} {
		if _, err := s.AddAct(ctx, ActInput{StageID: main.ID, Name: "B", Start: "11:00", End: "11:30", Color: color}); err == nil {
			t.Fatalf("color %q accepted", color)
		}
	}
}

func TestMoveActSnapsAndClamps(t *testing.T) {
	s := openMemStore(t)
	ctx := context.Background()
	main := mustStage(t, s, "Main")
	act := mustAct(t, s, ActInput{StageID: main.ID, Name: "Set", Start: "12:00", End: "13:00"})

	// Default grid: 100 px/h, snap 5. +52px = +31.2min, snaps to +30.
	moved, err := s.MoveAct(ctx, act.ID, 52)
	if err != nil {
		t.Fatalf("MoveAct: %v", err)
	}
	if moved.Start != "12:30" || moved.End != "13:30" {
		t.Fatalf("moved to %s-%s, want 12:30-13:30", moved.Start, moved.End)
	}

	// Dragging far right clamps to the window end, duration intact.
	moved, err = s.MoveAct(ctx, act.ID, 1e6)
	if err != nil {
		t.Fatalf("MoveAct clamp: %v", err)
	}
	if moved.Start != "21:00" || moved.End != "22:00" {
		t.Fatalf("right clamp %s-%s, want 21:00-22:00", moved.Start, moved.End)
	}

	// And far left clamps to the window start.
	moved, err = s.MoveAct(ctx, act.ID, -1e6)
	if err != nil {
		t.Fatalf("MoveAct clamp: %v", err)
	}
	if moved.Start != "09:00" || moved.End != "10:00" {
		t.Fatalf("left clamp %s-%s, want 09:00-10:00", moved.Start, moved.End)
	}
}

func TestMoveActClampAtMidnightWindow(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, nil, nil, logx.Nop(), Defaults{Window: timegrid.Window{StartHour: 9, EndHour: 24}, SnapMinutes: 5})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	main := mustStage(t, s, "Main")
	act := mustAct(t, s, ActInput{StageID: main.ID, Name: "Closer", Start: "22:00", End: "23:00"})

	// Dragging past the right edge of a window ending at midnight lands
	// on 23:00-24:00, duration intact.
	moved, err := s.MoveAct(ctx, act.ID, 1e6)
	if err != nil {
		t.Fatalf("MoveAct clamp: %v", err)
	}
	if moved.Start != "23:00" || moved.End != "24:00" {
		t.Fatalf("clamp %s-%s, want 23:00-24:00", moved.Start, moved.End)
	}

	// The committed state survives a further move back into the day.
	moved, err = s.MoveAct(ctx, act.ID, -100)
	if err != nil {
		t.Fatalf("MoveAct back: %v", err)
	}
	if moved.Start != "22:00" || moved.End != "23:00" {
		t.Fatalf("moved back to %s-%s, want 22:00-23:00", moved.Start, moved.End)
	}

	// "24:00" is also accepted as a literal act end.
	if _, err := s.AddAct(ctx, ActInput{StageID: main.ID, Name: "Midnight", Start: "23:30", End: "24:00"}); err != nil {
		t.Fatalf("AddAct ending at 24:00: %v", err)
	}
}

func TestSetWindowRejectsOrphanedActs(t *testing.T) {
	s := openMemStore(t)
	ctx := context.Background()
	main := mustStage(t, s, "Main")
	mustAct(t, s, ActInput{StageID: main.ID, Name: "Late", Start: "20:00", End: "22:00"})

	if err := s.SetWindow(ctx, timegrid.Window{StartHour: 9, EndHour: 21}); !errors.Is(err, ErrOutOfWindow) {
		t.Fatalf("shrink over act: got %v", err)
	}
	if err := s.SetWindow(ctx, timegrid.Window{StartHour: 10, EndHour: 23}); err != nil {
		t.Fatalf("valid window change: %v", err)
	}
	if w := s.Snapshot().Window; w.EndHour != 23 {
		t.Fatalf("window not applied: %+v", w)
	}
}

func TestMembers(t *testing.T) {
	s := openMemStore(t)
	ctx := context.Background()

	m, err := s.AddMember(ctx, "Ana", "sound")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := s.AssignTeam(ctx, m.ID, "lights"); err != nil {
		t.Fatalf("AssignTeam: %v", err)
	}
	if got := s.Snapshot().Members[0].Team; got != "lights" {
		t.Fatalf("team = %q", got)
	}
	if err := s.RemoveMember(ctx, m.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if err := s.RemoveMember(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double remove: got %v", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stagehand.db")
	open := func() (storage.Store, *Store) {
		ps, err := storage.Open(storage.Config{Driver: "file", Path: path}, logx.Nop())
		if err != nil {
			t.Fatalf("storage.Open: %v", err)
		}
		s, err := Open(ctx, ps, nil, logx.Nop(), Defaults{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return ps, s
	}

	ps, s := open()
	main := mustStage(t, s, "Main")
	mustAct(t, s, ActInput{StageID: main.ID, Name: "Headliner", Start: "20:00", End: "21:30"})
	if err := ps.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ps, s = open()
	defer ps.Close()
	snap := s.Snapshot()
	if len(snap.Stages) != 1 || len(snap.Acts) != 1 {
		t.Fatalf("reloaded snapshot: %+v", snap)
	}
	if snap.Acts[0].Name != "Headliner" || snap.Acts[0].Start != "20:00" {
		t.Fatalf("reloaded act: %+v", snap.Acts[0])
	}
}

func TestOpenRefusesCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "stagehand.db")

	openPersist := func() storage.Store {
		t.Helper()
		ps, err := storage.Open(storage.Config{Driver: "file", Path: path}, logx.Nop())
		if err != nil {
			t.Fatalf("storage.Open: %v", err)
		}
		return ps
	}

	// Garbage bytes where the blob should be: refuse to start.
	blobPath := filepath.Join(dir, "stagehand.timetable.json")
	if err := os.WriteFile(blobPath, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	ps := openPersist()
	if _, err := Open(ctx, ps, nil, logx.Nop(), Defaults{}); err == nil {
		t.Fatal("Open accepted an undecodable snapshot")
	}
	_ = ps.Close()

	// Valid JSON that fails validation is just as fatal.
	if err := os.WriteFile(blobPath, []byte(`{"window":{"start_hour":22,"end_hour":9},"px_per_hour":100}`), 0o600); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	ps = openPersist()
	defer ps.Close()
	if _, err := Open(ctx, ps, nil, logx.Nop(), Defaults{}); err == nil {
		t.Fatal("Open accepted an invalid snapshot")
	}

	// Either way the blob stays on disk for inspection, never reset.
	b, err := os.ReadFile(blobPath)
	if err != nil || !strings.Contains(string(b), "22") {
		t.Fatalf("blob was touched: %q, %v", b, err)
	}
}

func TestUpdatePublishesChangeEvent(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	s, err := Open(context.Background(), nil, bus, logx.Nop(), Defaults{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustStage(t, s, "Main")

	select {
	case e := <-ch:
		if e.Type != eventbus.EventTimetableUpdated {
			t.Fatalf("event type = %q", e.Type)
		}
		chg, ok := e.Data.(ChangeEvent)
		if !ok || chg.Action != "stage.add" {
			t.Fatalf("event data = %+v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatalf("no change event published")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := openMemStore(t)
	main := mustStage(t, s, "Main")
	mustAct(t, s, ActInput{StageID: main.ID, Name: "Set", Start: "10:00", End: "11:00"})

	snap := s.Snapshot()
	snap.Acts[0].Name = "mutated"
	if got := s.Snapshot().Acts[0].Name; got != "Set" {
		t.Fatalf("snapshot mutation leaked into store: %q", got)
	}
}
