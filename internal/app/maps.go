package app

import (
	"fmt"
	"strings"
	"time"

	"stagehand/internal/notifier"
	"stagehand/internal/services/reminder"
	"stagehand/internal/storage"
	"stagehand/internal/timegrid"
	"stagehand/internal/timetable"
	"stagehand/internal/viewer"
)

func mapStorageConfig(cfg *Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.TrimSpace(sc.Driver)
	if driver == "" || strings.EqualFold(driver, "none") {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	dl := strings.ToLower(driver)
	switch dl {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := parseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 1*time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: dl, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", driver)
	}
}

// mapNotifierConfig maps the JSON config into the runtime notifier.Config
// (parsed durations). If cfg.notifier is omitted, the notifier defaults
// to enabled=true with sensible settings.
func mapNotifierConfig(cfg *Config) (notifier.Config, error) {
	out := notifier.Config{
		Enabled:         true,
		Workers:         2,
		QueueSize:       512,
		RatePerSec:      3,
		RetryMax:        3,
		RetryBase:       500 * time.Millisecond,
		RetryMaxDelay:   10 * time.Second,
		DedupWindow:     1 * time.Minute,
		DedupMaxEntries: 2000,
		PersistDedup:    false,
	}

	if cfg == nil || cfg.Notifier == nil {
		return out, nil
	}
	n := cfg.Notifier
	out.Enabled = n.Enabled
	out.PersistDedup = n.PersistDedup
	if n.Workers != 0 {
		out.Workers = n.Workers
	}
	if n.QueueSize != 0 {
		out.QueueSize = n.QueueSize
	}
	if n.RatePerSec != 0 {
		out.RatePerSec = n.RatePerSec
	}
	if n.RetryMax != 0 {
		out.RetryMax = n.RetryMax
	}

	var err error
	out.RetryBase, err = parseDurationOrDefault("notifier.retry_base", n.RetryBase, out.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	out.RetryMaxDelay, err = parseDurationOrDefault("notifier.retry_max_delay", n.RetryMaxDelay, out.RetryMaxDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	out.DedupWindow, err = parseDurationOrDefault("notifier.dedup_window", n.DedupWindow, out.DedupWindow)
	if err != nil {
		return notifier.Config{}, err
	}
	if n.DedupMaxEntries != 0 {
		out.DedupMaxEntries = n.DedupMaxEntries
	}

	if out.Workers < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.workers must be >= 0")
	}
	if out.QueueSize < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.queue_size must be >= 0")
	}
	if out.RatePerSec < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.rate_per_sec must be >= 0")
	}
	if out.RetryMax < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.retry_max must be >= 0")
	}
	if out.DedupMaxEntries < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.dedup_max_entries must be >= 0")
	}

	return out, nil
}

// mapTimetableDefaults seeds a fresh store. Runtime /window, /snap and
// /zoom changes persist with the snapshot and win over these values.
func mapTimetableDefaults(cfg *Config) (timetable.Defaults, error) {
	out := timetable.Defaults{
		Window:      timegrid.Window{StartHour: 9, EndHour: 22},
		PxPerHour:   100,
		SnapMinutes: 5,
	}
	if cfg == nil {
		return out, nil
	}
	t := cfg.Timetable
	if t.StartHour != 0 || t.EndHour != 0 {
		out.Window = timegrid.Window{StartHour: t.StartHour, EndHour: t.EndHour}
		if err := out.Window.Validate(); err != nil {
			return timetable.Defaults{}, fmt.Errorf("timetable: %w", err)
		}
	}
	if t.PxPerHour != 0 {
		if t.PxPerHour < 0 {
			return timetable.Defaults{}, fmt.Errorf("timetable.px_per_hour must be > 0")
		}
		out.PxPerHour = t.PxPerHour
	}
	if t.SnapMinutes != 0 {
		if t.SnapMinutes < 0 {
			return timetable.Defaults{}, fmt.Errorf("timetable.snap_minutes must be >= 0")
		}
		out.SnapMinutes = t.SnapMinutes
	}
	return out, nil
}

func mapReminderConfig(cfg *Config) reminder.Config {
	if cfg == nil {
		return reminder.Config{}
	}
	r := cfg.Reminder
	lead := 15 * time.Minute
	if r.LeadMinutes > 0 {
		lead = time.Duration(r.LeadMinutes) * time.Minute
	}
	return reminder.Config{
		Enabled:  r.Enabled,
		Lead:     lead,
		Timezone: r.Timezone,
		ChatIDs:  append([]int64(nil), r.ChatIDs...),
	}
}

func mapViewerConfig(cfg *Config) (viewer.Config, error) {
	if cfg == nil {
		return viewer.Config{}, nil
	}
	v := cfg.Viewer
	out := viewer.Config{
		Enabled:       v.Enabled,
		Addr:          strings.TrimSpace(v.Addr),
		Token:         v.Token,
		AllowInsecure: v.AllowInsecure,
		RatePerSec:    v.RatePerSec,
		Title:         strings.TrimSpace(cfg.Timetable.Title),
	}
	if out.Addr == "" {
		out.Addr = "127.0.0.1:8090"
	}
	if out.RatePerSec < 0 {
		return viewer.Config{}, fmt.Errorf("viewer.rate_per_sec must be >= 0")
	}

	var err error
	out.ReadTimeout, err = parseDurationOrDefault("viewer.read_timeout", v.ReadTimeout, 5*time.Second)
	if err != nil {
		return viewer.Config{}, err
	}
	out.WriteTimeout, err = parseDurationOrDefault("viewer.write_timeout", v.WriteTimeout, 10*time.Second)
	if err != nil {
		return viewer.Config{}, err
	}
	out.IdleTimeout, err = parseDurationOrDefault("viewer.idle_timeout", v.IdleTimeout, 60*time.Second)
	if err != nil {
		return viewer.Config{}, err
	}
	return out, nil
}
