package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) *ConfigManager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return NewConfigManager(path)
}

func TestParseYAML(t *testing.T) {
	m := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  owner_user_ids: [42]
  group_log: ""
  poll_timeout: "10s"
logging:
  level: "debug"
  console: true
  file:
    enabled: false
    path: ""
  telegram:
    enabled: false
    thread_id: 0
    min_level: "warn"
    rate_per_sec: 1
timetable:
  title: "Summer Fest"
  start_hour: 10
  end_hour: 23
  snap_minutes: 15
  px_per_hour: 120
reminder:
  enabled: true
  lead_minutes: 20
  chat_ids: [42]
storage:
  driver: "file"
  path: "./stagehand_store"
viewer:
  enabled: true
  addr: "127.0.0.1:8090"
`)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || len(cfg.Telegram.OwnerUserIDs) != 1 {
		t.Fatalf("telegram section: %+v", cfg.Telegram)
	}
	if cfg.Timetable.StartHour != 10 || cfg.Timetable.EndHour != 23 || cfg.Timetable.PxPerHour != 120 {
		t.Fatalf("timetable section: %+v", cfg.Timetable)
	}
	if !cfg.Reminder.Enabled || cfg.Reminder.LeadMinutes != 20 {
		t.Fatalf("reminder section: %+v", cfg.Reminder)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("storage section: %+v", cfg.Storage)
	}
	if !cfg.Viewer.Enabled {
		t.Fatalf("viewer section: %+v", cfg.Viewer)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := writeConfig(t, "config.yaml", `
telegram:
  token: "x"
  banana: true
`)
	if _, err := m.Parse(); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestParseRejectsTrailingJSON(t *testing.T) {
	m := writeConfig(t, "config.json", `{"telegram":{"token":"x"}}{"extra":1}`)
	if _, err := m.Parse(); err == nil {
		t.Fatalf("expected trailing-data error")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	oldCfg := &Config{}
	newCfg := &Config{
		Timetable: TimetableConfig{StartHour: 9, EndHour: 22},
		Viewer:    ViewerConfig{Enabled: true, Addr: "127.0.0.1:8090", Token: "secret"},
	}
	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	want := map[string]bool{"timetable": true, "viewer": true}
	for _, c := range changed {
		if !want[c] {
			t.Fatalf("unexpected changed section %q (all: %v)", c, changed)
		}
		delete(want, c)
	}
	if len(want) != 0 {
		t.Fatalf("missing changed sections: %v", want)
	}
	_ = attrs
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", "10s"); err != nil || d.Seconds() != 10 {
		t.Fatalf("ParseDurationField: %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatalf("negative duration accepted")
	}
	if d, err := ParseDurationOrDefault("x", "", 5); err != nil || d != 5 {
		t.Fatalf("ParseDurationOrDefault: %v %v", d, err)
	}
}
