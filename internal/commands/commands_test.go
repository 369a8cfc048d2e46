package commands

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"stagehand/internal/config"
	"stagehand/internal/notifier"
	"stagehand/internal/timetable"
	kit "stagehand/internal/transport"
	"stagehand/internal/transport/telegram/router"
	logx "stagehand/pkg/logx"
	"stagehand/pkg/tgui"
)

type sentDoc struct {
	name    string
	data    []byte
	caption string
}

type fakeAdapter struct {
	mu    sync.Mutex
	texts []string
	edits []string
	docs  []sentDoc
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.texts)}, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	f.mu.Lock()
	f.edits = append(f.edits, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) AnswerCallback(ctx context.Context, id, text string) error { return nil }

func (f *fakeAdapter) SendDocument(ctx context.Context, to kit.ChatTarget, filename string, data []byte, caption string) error {
	f.mu.Lock()
	f.docs = append(f.docs, sentDoc{name: filename, data: data, caption: caption})
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		t.Fatal("no message sent")
	}
	return f.texts[len(f.texts)-1]
}

type env struct {
	store   *timetable.Store
	adapter *fakeAdapter
	h       *handlers
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := timetable.Open(context.Background(), nil, nil, logx.Nop(), timetable.Defaults{SnapMinutes: 5})
	if err != nil {
		t.Fatalf("timetable.Open: %v", err)
	}
	return &env{
		store:   store,
		adapter: &fakeAdapter{},
		h:       &handlers{d: Deps{Store: store, Log: logx.Nop()}},
	}
}

func (e *env) request(args ...string) *router.Request {
	pos := []string{}
	flags := map[string]string{}
	bools := map[string]bool{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			pos = append(pos, a)
			continue
		}
		key := strings.TrimPrefix(a, "--")
		if j := strings.IndexByte(key, '='); j >= 0 {
			flags[key[:j]] = key[j+1:]
		} else {
			bools[key] = true
		}
	}
	return &router.Request{
		Chat:      kit.ChatTarget{ChatID: 100},
		FromID:    1,
		Args:      pos,
		Flags:     flags,
		BoolFlags: bools,
		Adapter:   e.adapter,
		Config:    &config.Config{Timetable: config.TimetableConfig{Title: "Test Fest"}},
		Update:    kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 100, FromID: 1}},
	}
}

func TestStageAddAndList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.h.cmdStageAdd(ctx, e.request("Main", "Stage")); err != nil {
		t.Fatalf("stage add: %v", err)
	}
	if got := e.adapter.lastText(t); !strings.Contains(got, "Main Stage") {
		t.Fatalf("unexpected reply: %q", got)
	}

	if err := e.h.cmdStages(ctx, e.request()); err != nil {
		t.Fatalf("stages: %v", err)
	}
	if got := e.adapter.lastText(t); !strings.Contains(got, "Main Stage") || !strings.Contains(got, "0 acts") {
		t.Fatalf("unexpected list: %q", got)
	}
}

func TestActAddEditMove(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	st, err := e.store.AddStage(ctx, "Main")
	if err != nil {
		t.Fatalf("AddStage: %v", err)
	}

	if err := e.h.cmdActAdd(ctx, e.request("main", "Night", "Shift", "12:00", "13:00", "--category=dj")); err != nil {
		t.Fatalf("act add: %v", err)
	}
	if got := e.adapter.lastText(t); !strings.Contains(got, "Night Shift") || !strings.Contains(got, "12:00") {
		t.Fatalf("unexpected reply: %q", got)
	}

	snap := e.store.Snapshot()
	if len(snap.Acts) != 1 {
		t.Fatalf("expected 1 act, got %d", len(snap.Acts))
	}
	act := snap.Acts[0]
	if act.StageID != st.ID || act.Category != "dj" {
		t.Fatalf("unexpected act: %+v", act)
	}

	if err := e.h.cmdActEdit(ctx, e.request(act.ID, "--name=Late Shift")); err != nil {
		t.Fatalf("act edit: %v", err)
	}
	if got := e.adapter.lastText(t); !strings.Contains(got, "Late Shift") {
		t.Fatalf("unexpected reply: %q", got)
	}

	// +52px at 100 px/h is 31.2 min; snap 5 lands on +30.
	if err := e.h.cmdActMove(ctx, e.request(act.ID, "52")); err != nil {
		t.Fatalf("act move: %v", err)
	}
	if got := e.adapter.lastText(t); !strings.Contains(got, "12:30–13:30") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestStageDelAsksWhenActsExist(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	st, _ := e.store.AddStage(ctx, "Main")
	if _, err := e.store.AddAct(ctx, timetable.ActInput{StageID: st.ID, Name: "A", Start: "10:00", End: "11:00"}); err != nil {
		t.Fatalf("AddAct: %v", err)
	}

	if err := e.h.cmdStageDel(ctx, e.request("main")); err != nil {
		t.Fatalf("stage del: %v", err)
	}
	if got := e.adapter.lastText(t); !strings.Contains(got, "Confirm delete") {
		t.Fatalf("expected confirm prompt, got %q", got)
	}
	// stage must still be there until confirmed
	if _, ok := e.store.Snapshot().StageByID(st.ID); !ok {
		t.Fatal("stage deleted without confirmation")
	}

	// confirm via callback; the button carries a packed payload
	req := e.request()
	req.Update = kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ChatID: 100, MessageID: 1}}
	if err := e.h.cbStageDel(ctx, req, tgui.MustPackJSON(delRef{ID: st.ID})); err != nil {
		t.Fatalf("cbStageDel: %v", err)
	}
	if _, ok := e.store.Snapshot().StageByID(st.ID); ok {
		t.Fatal("stage still present after confirm")
	}
}

func TestCallbackRejectsStalePayload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	st, _ := e.store.AddStage(ctx, "Main")
	act, err := e.store.AddAct(ctx, timetable.ActInput{StageID: st.ID, Name: "Keep", Start: "10:00", End: "11:00"})
	if err != nil {
		t.Fatalf("AddAct: %v", err)
	}

	// Not base64 JSON at all: nothing may be deleted.
	if err := e.h.cbActDel(ctx, e.request(), "!!!not-a-payload"); err != nil {
		t.Fatalf("cbActDel: %v", err)
	}
	if got := e.adapter.lastText(t); !strings.Contains(got, "stale") {
		t.Fatalf("expected stale-button reply, got %q", got)
	}
	if _, ok := e.store.Snapshot().ActByID(act.ID); !ok {
		t.Fatal("act deleted on a malformed payload")
	}

	// The real packed payload goes through.
	if err := e.h.cbActDel(ctx, e.request(), tgui.MustPackJSON(delRef{ID: act.ID})); err != nil {
		t.Fatalf("cbActDel: %v", err)
	}
	if _, ok := e.store.Snapshot().ActByID(act.ID); ok {
		t.Fatal("act still present after confirm")
	}
}

func TestWindowRejectsWhenActsOutside(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	st, _ := e.store.AddStage(ctx, "Main")
	if _, err := e.store.AddAct(ctx, timetable.ActInput{StageID: st.ID, Name: "Late", Start: "20:00", End: "22:00"}); err != nil {
		t.Fatalf("AddAct: %v", err)
	}

	if err := e.h.cmdWindow(ctx, e.request("9", "21")); err != nil {
		t.Fatalf("window: %v", err)
	}
	if got := e.adapter.lastText(t); !strings.Contains(got, "window") || strings.Contains(got, "✅") {
		t.Fatalf("expected rejection, got %q", got)
	}
	snap := e.store.Snapshot()
	if snap.Window.EndHour != 22 {
		t.Fatalf("window changed despite rejection: %+v", snap.Window)
	}
}

func TestExportSVGAndJSON(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	st, _ := e.store.AddStage(ctx, "Main")
	if _, err := e.store.AddAct(ctx, timetable.ActInput{StageID: st.ID, Name: "Opener", Start: "10:00", End: "11:00"}); err != nil {
		t.Fatalf("AddAct: %v", err)
	}

	if err := e.h.cmdExport(ctx, e.request("svg")); err != nil {
		t.Fatalf("export svg: %v", err)
	}
	if err := e.h.cmdExport(ctx, e.request("json")); err != nil {
		t.Fatalf("export json: %v", err)
	}

	e.adapter.mu.Lock()
	docs := append([]sentDoc(nil), e.adapter.docs...)
	e.adapter.mu.Unlock()
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if !strings.HasSuffix(docs[0].name, ".svg") || !strings.Contains(string(docs[0].data), "<svg") {
		t.Fatalf("unexpected svg doc: %q", docs[0].name)
	}
	if !strings.HasSuffix(docs[1].name, ".json") || !strings.Contains(string(docs[1].data), `"Opener"`) {
		t.Fatalf("unexpected json doc: %q", docs[1].name)
	}
	if !strings.Contains(docs[0].caption, "Test Fest") {
		t.Fatalf("caption missing title: %q", docs[0].caption)
	}
}

type fakeNotifier struct {
	hist []notifier.HistoryItem
}

func (f *fakeNotifier) Notify(ctx context.Context, n kit.Notification) error { return nil }

func (f *fakeNotifier) Snapshot() []notifier.HistoryItem {
	return append([]notifier.HistoryItem(nil), f.hist...)
}

func TestStatusShowsNotifierHistory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := e.request()
	req.Services = &router.Services{
		Notifier: &fakeNotifier{hist: []notifier.HistoryItem{
			{At: time.Date(2026, 8, 1, 18, 45, 0, 0, time.UTC), Text: "Opener starts in 15 min"},
		}},
	}
	if err := e.h.cmdStatus(ctx, req); err != nil {
		t.Fatalf("status: %v", err)
	}
	got := e.adapter.lastText(t)
	if !strings.Contains(got, "notices") || !strings.Contains(got, "1 sent") {
		t.Fatalf("status missing notifier history: %q", got)
	}
	if !strings.Contains(got, "<i>Opener starts in 15 min</i>") {
		t.Fatalf("status missing last notice line: %q", got)
	}
}

func TestMembersListFormatting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	m, err := e.store.AddMember(ctx, "Ana", "sound")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := e.h.cmdMembers(ctx, e.request()); err != nil {
		t.Fatalf("members: %v", err)
	}
	got := e.adapter.lastText(t)
	if !strings.Contains(got, "<code>"+m.ID+"</code>") || !strings.Contains(got, "<i>sound</i>") {
		t.Fatalf("unexpected member line: %q", got)
	}
}

func TestExportJSONPreview(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	st, _ := e.store.AddStage(ctx, "Main")
	if _, err := e.store.AddAct(ctx, timetable.ActInput{StageID: st.ID, Name: "Opener", Start: "10:00", End: "11:00"}); err != nil {
		t.Fatalf("AddAct: %v", err)
	}

	if err := e.h.cmdExport(ctx, e.request("json", "--preview")); err != nil {
		t.Fatalf("export preview: %v", err)
	}
	if n := len(e.adapter.docs); n != 0 {
		t.Fatalf("preview sent %d documents", n)
	}
	got := e.adapter.lastText(t)
	if !strings.Contains(got, "<pre>") || !strings.Contains(got, "Opener") {
		t.Fatalf("unexpected preview: %q", got)
	}
}

func TestResolveAmbiguity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.store.AddStage(ctx, "Main Stage"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.store.AddStage(ctx, "Main Hall"); err != nil {
		t.Fatal(err)
	}

	snap := e.store.Snapshot()
	if _, err := resolveStage(snap, "main"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
	st, err := resolveStage(snap, "main s")
	if err != nil {
		t.Fatalf("prefix resolve: %v", err)
	}
	if st.Name != "Main Stage" {
		t.Fatalf("resolved wrong stage: %+v", st)
	}
	if _, err := resolveStage(snap, "Main Hall"); err != nil {
		t.Fatalf("exact name resolve: %v", err)
	}
}

func TestRegistryBuilds(t *testing.T) {
	e := newEnv(t)
	cmds, cbs := Registry(Deps{Store: e.store, Log: logx.Nop()})
	if len(cmds) < 15 {
		t.Fatalf("unexpected command count: %d", len(cmds))
	}
	if len(cbs) != 3 {
		t.Fatalf("unexpected callback count: %d", len(cbs))
	}
	seen := map[string]bool{}
	for _, c := range cmds {
		if c.Handle == nil {
			t.Fatalf("command %q has no handler", c.Route)
		}
		if seen[c.Route] {
			t.Fatalf("duplicate route %q", c.Route)
		}
		seen[c.Route] = true
	}
	for _, want := range []string{"stages", "stage add", "act add", "act move", "export", "window"} {
		if !seen[want] {
			t.Fatalf("missing route %q", want)
		}
	}
}
