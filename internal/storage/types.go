package storage

import (
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")

	// ErrNoSnapshot is returned by LoadSnapshot when nothing has been
	// saved yet. Callers start from a default timetable in that case.
	ErrNoSnapshot = errors.New("no snapshot")
)

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (json snapshot + jsonl audit)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and the timetable
// lives in memory only.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records an operator action against the timetable.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At            time.Time
	ActorID       int64
	ActorUsername string
	ChatID        int64
	Action        string // e.g. "act.move", "stage.del"
	Target        string // entity id
	Error         string
	TookMS        int64
	MetaJSON      string
}
