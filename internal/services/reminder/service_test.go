package reminder

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"stagehand/internal/timetable"
	kit "stagehand/internal/transport"
	logx "stagehand/pkg/logx"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []kit.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, n kit.Notification) error {
	f.mu.Lock()
	f.sent = append(f.sent, n)
	f.mu.Unlock()
	return nil
}

func (f *fakeNotifier) all() []kit.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kit.Notification(nil), f.sent...)
}

func testStore(t *testing.T) *timetable.Store {
	t.Helper()
	s, err := timetable.Open(context.Background(), nil, nil, logx.Nop(), timetable.Defaults{})
	if err != nil {
		t.Fatalf("timetable.Open: %v", err)
	}
	st, err := s.AddStage(context.Background(), "Main")
	if err != nil {
		t.Fatalf("AddStage: %v", err)
	}
	if _, err := s.AddAct(context.Background(), timetable.ActInput{
		StageID: st.ID, Name: "Headliner", Start: "20:00", End: "21:30",
	}); err != nil {
		t.Fatalf("AddAct: %v", err)
	}
	return s
}

func TestScanFiresAtLead(t *testing.T) {
	store := testStore(t)
	fn := &fakeNotifier{}
	svc := New(Config{Enabled: true, Lead: 15 * time.Minute, ChatIDs: []int64{7, 8}}, store, fn, nil, nil, logx.Nop())

	now := time.Date(2026, 8, 23, 19, 45, 0, 0, time.UTC) // 15 min before 20:00
	svc.scanAt(context.Background(), now)

	sent := fn.all()
	if len(sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sent))
	}
	if sent[0].Target.ChatID != 7 || sent[1].Target.ChatID != 8 {
		t.Fatalf("unexpected targets: %+v", sent)
	}
	if !strings.Contains(sent[0].Text, "Headliner") || !strings.Contains(sent[0].Text, "20:00") {
		t.Fatalf("unexpected text: %q", sent[0].Text)
	}
	if !strings.Contains(sent[0].Text, "Main") {
		t.Fatalf("stage name missing: %q", sent[0].Text)
	}
}

func TestScanDoesNotDoubleFire(t *testing.T) {
	store := testStore(t)
	fn := &fakeNotifier{}
	svc := New(Config{Enabled: true, Lead: 15 * time.Minute, ChatIDs: []int64{7}}, store, fn, nil, nil, logx.Nop())

	now := time.Date(2026, 8, 23, 19, 45, 0, 0, time.UTC)
	svc.scanAt(context.Background(), now)
	svc.scanAt(context.Background(), now)

	if got := len(fn.all()); got != 1 {
		t.Fatalf("expected 1 notification after repeat scan, got %d", got)
	}
}

func TestScanSkipsOtherMinutes(t *testing.T) {
	store := testStore(t)
	fn := &fakeNotifier{}
	svc := New(Config{Enabled: true, Lead: 15 * time.Minute, ChatIDs: []int64{7}}, store, fn, nil, nil, logx.Nop())

	for _, at := range []time.Time{
		time.Date(2026, 8, 23, 19, 44, 0, 0, time.UTC),
		time.Date(2026, 8, 23, 19, 46, 0, 0, time.UTC),
		time.Date(2026, 8, 23, 20, 0, 0, 0, time.UTC),
	} {
		svc.scanAt(context.Background(), at)
	}
	if got := len(fn.all()); got != 0 {
		t.Fatalf("expected no notifications, got %d", got)
	}
}

func TestScanDisabledOrNoChats(t *testing.T) {
	store := testStore(t)
	fn := &fakeNotifier{}
	now := time.Date(2026, 8, 23, 19, 45, 0, 0, time.UTC)

	New(Config{Enabled: false, Lead: 15 * time.Minute, ChatIDs: []int64{7}}, store, fn, nil, nil, logx.Nop()).
		scanAt(context.Background(), now)
	New(Config{Enabled: true, Lead: 15 * time.Minute}, store, fn, nil, nil, logx.Nop()).
		scanAt(context.Background(), now)

	if got := len(fn.all()); got != 0 {
		t.Fatalf("expected no notifications, got %d", got)
	}
}
