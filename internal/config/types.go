package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Timetable seeds the grid for a fresh store and labels exports.
	// Window/zoom/snap changes made at runtime are persisted with the
	// snapshot and win over these values.
	Timetable TimetableConfig `json:"timetable"`

	Reminder ReminderConfig  `json:"reminder,omitempty"`
	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Viewer   ViewerConfig    `json:"viewer,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	GroupLog     string  `json:"group_log"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// TimetableConfig holds grid defaults and presentation settings.
//
// Defaults (when fields are omitted/zero):
//   - start_hour: 9, end_hour: 22
//   - snap_minutes: 5
//   - px_per_hour: 100
type TimetableConfig struct {
	Title       string  `json:"title,omitempty"`
	StartHour   int     `json:"start_hour,omitempty"`
	EndHour     int     `json:"end_hour,omitempty"`
	SnapMinutes int     `json:"snap_minutes,omitempty"`
	PxPerHour   float64 `json:"px_per_hour,omitempty"`
}

// ReminderConfig controls "act starts soon" notifications.
//
// LeadMinutes is how far ahead of an act's start the reminder fires.
// ChatIDs are the Telegram chats that receive reminders.
type ReminderConfig struct {
	Enabled     bool    `json:"enabled"`
	LeadMinutes int     `json:"lead_minutes,omitempty"` // default: 15
	Timezone    string  `json:"timezone,omitempty"`
	ChatIDs     []int64 `json:"chat_ids,omitempty"`
}

// NotifierConfig controls the async notification pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// If the whole section is omitted, the notifier defaults to enabled=true.
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
	PersistDedup    bool   `json:"persist_dedup,omitempty"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./stagehand_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ViewerConfig controls the read-only schedule HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:8090").
//   - If you bind to a non-loopback address, set a token or explicitly
//     allow_insecure.
type ViewerConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:8090"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"` // per-server request budget

	// Server timeouts (Go duration strings).
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}
