package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "stagehand/pkg/logx"
)

// Store is the persistence API used by the timetable store and the
// reminder pipeline. The timetable is saved as one opaque blob under a
// single key; history and dedup state ride alongside it.
type Store interface {
	// SaveSnapshot atomically replaces the persisted timetable blob.
	SaveSnapshot(ctx context.Context, blob []byte) error
	// LoadSnapshot returns the persisted blob, or ErrNoSnapshot.
	LoadSnapshot(ctx context.Context) ([]byte, error)

	AppendAudit(ctx context.Context, e AuditEntry) error
	PutDedup(ctx context.Context, key string, until time.Time) error
	GetDedup(ctx context.Context, key string) (until time.Time, ok bool, err error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
