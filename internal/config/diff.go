package config

import (
	"reflect"
	"sort"
	"strings"

	logx "stagehand/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 20)

	// Telegram (never log token)
	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		!reflect.DeepEqual(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) ||
		strings.TrimSpace(oldCfg.Telegram.GroupLog) != strings.TrimSpace(newCfg.Telegram.GroupLog) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)),
			logx.Bool("telegram.group_log_set", strings.TrimSpace(newCfg.Telegram.GroupLog) != ""),
		)
	}

	// Logging
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	// Timetable grid defaults
	if oldCfg.Timetable != newCfg.Timetable {
		changed = append(changed, "timetable")
		attrs = append(attrs,
			logx.Int("timetable.start_hour", newCfg.Timetable.StartHour),
			logx.Int("timetable.end_hour", newCfg.Timetable.EndHour),
			logx.Int("timetable.snap_minutes", newCfg.Timetable.SnapMinutes),
			logx.Float64("timetable.px_per_hour", newCfg.Timetable.PxPerHour),
		)
	}

	// Reminders
	if !reflect.DeepEqual(oldCfg.Reminder, newCfg.Reminder) {
		changed = append(changed, "reminder")
		attrs = append(attrs,
			logx.Bool("reminder.enabled", newCfg.Reminder.Enabled),
			logx.Int("reminder.lead_minutes", newCfg.Reminder.LeadMinutes),
			logx.String("reminder.timezone", strings.TrimSpace(newCfg.Reminder.Timezone)),
			logx.Int("reminder.chat_count", len(newCfg.Reminder.ChatIDs)),
		)
	}

	// Notifier (async pipeline)
	// Note: section may be nil (omitted). Treat nil as runtime defaults for
	// a more accurate summary.
	defN := &NotifierConfig{
		Enabled:         true,
		Workers:         2,
		QueueSize:       512,
		RatePerSec:      3,
		RetryMax:        3,
		RetryBase:       "500ms",
		RetryMaxDelay:   "10s",
		DedupWindow:     "1m",
		DedupMaxEntries: 2000,
	}
	oldN := oldCfg.Notifier
	newN := newCfg.Notifier
	if oldN == nil {
		oldN = defN
	}
	if newN == nil {
		newN = defN
	}
	if !reflect.DeepEqual(*oldN, *newN) {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.enabled", newN.Enabled),
			logx.Int("notifier.workers", newN.Workers),
			logx.Int("notifier.queue_size", newN.QueueSize),
			logx.Int("notifier.rate_per_sec", newN.RatePerSec),
			logx.Int("notifier.retry_max", newN.RetryMax),
			logx.Bool("notifier.persist_dedup", newN.PersistDedup),
		)
	}

	// Storage (persistence). Nil means disabled.
	oldS := oldCfg.Storage
	newS := newCfg.Storage
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if oldS != nil {
		oDriver = strings.TrimSpace(oldS.Driver)
		oBusy = strings.TrimSpace(oldS.BusyTimeout)
		oPathSet = strings.TrimSpace(oldS.Path) != ""
	}
	if newS != nil {
		nDriver = strings.TrimSpace(newS.Driver)
		nBusy = strings.TrimSpace(newS.BusyTimeout)
		nPathSet = strings.TrimSpace(newS.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
			logx.String("storage.busy_timeout", nBusy),
		)
	}

	// Viewer (never log token)
	if oldCfg.Viewer.Enabled != newCfg.Viewer.Enabled ||
		strings.TrimSpace(oldCfg.Viewer.Addr) != strings.TrimSpace(newCfg.Viewer.Addr) ||
		oldCfg.Viewer.AllowInsecure != newCfg.Viewer.AllowInsecure ||
		oldCfg.Viewer.RatePerSec != newCfg.Viewer.RatePerSec ||
		strings.TrimSpace(oldCfg.Viewer.ReadTimeout) != strings.TrimSpace(newCfg.Viewer.ReadTimeout) ||
		strings.TrimSpace(oldCfg.Viewer.WriteTimeout) != strings.TrimSpace(newCfg.Viewer.WriteTimeout) ||
		strings.TrimSpace(oldCfg.Viewer.IdleTimeout) != strings.TrimSpace(newCfg.Viewer.IdleTimeout) ||
		(strings.TrimSpace(oldCfg.Viewer.Token) != "") != (strings.TrimSpace(newCfg.Viewer.Token) != "") {
		changed = append(changed, "viewer")
		attrs = append(attrs,
			logx.Bool("viewer.enabled", newCfg.Viewer.Enabled),
			logx.String("viewer.addr", strings.TrimSpace(newCfg.Viewer.Addr)),
			logx.Bool("viewer.token_set", strings.TrimSpace(newCfg.Viewer.Token) != ""),
			logx.Bool("viewer.allow_insecure", newCfg.Viewer.AllowInsecure),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
