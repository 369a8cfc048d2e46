package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	logx "stagehand/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "stagehand.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	st, err := Open(Config{Driver: "none"}, logx.Nop())
	if err != nil || st != nil {
		t.Fatalf("disabled storage: got %v, %v", st, err)
	}
	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestFileSnapshotRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.LoadSnapshot(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty store: got %v, want ErrNoSnapshot", err)
	}

	if err := st.SaveSnapshot(ctx, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := st.SaveSnapshot(ctx, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("SaveSnapshot overwrite: %v", err)
	}
	b, err := st.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if string(b) != `{"v":2}` {
		t.Fatalf("LoadSnapshot = %s, want latest blob", b)
	}
}

func TestFileDedup(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	until := time.Now().Add(time.Hour)
	if err := st.PutDedup(ctx, "reminder:act-1", until); err != nil {
		t.Fatalf("PutDedup: %v", err)
	}
	got, ok, err := st.GetDedup(ctx, "reminder:act-1")
	if err != nil || !ok {
		t.Fatalf("GetDedup: %v %v", ok, err)
	}
	if got.UnixMilli() != until.UnixMilli() {
		t.Fatalf("GetDedup until = %v, want %v", got, until)
	}
	if _, ok, _ := st.GetDedup(ctx, "missing"); ok {
		t.Fatalf("GetDedup found missing key")
	}
}

func TestFileAudit(t *testing.T) {
	st := openTestStore(t)
	err := st.AppendAudit(context.Background(), AuditEntry{
		At:     time.Now(),
		Action: "act.move",
		Target: "act-1",
	})
	if err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
}
