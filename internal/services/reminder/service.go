// Package reminder announces upcoming acts to subscribed chats.
//
// A cron job scans the timetable once per minute; acts whose start time
// is exactly lead minutes away get one notification per day per act.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"stagehand/internal/eventbus"
	"stagehand/internal/storage"
	"stagehand/internal/timegrid"
	"stagehand/internal/timetable"
	kit "stagehand/internal/transport"
	logx "stagehand/pkg/logx"
)

// Config controls reminder behavior.
type Config struct {
	Enabled  bool
	Lead     time.Duration // how far before the act start to fire; default 15m
	Timezone string        // IANA name; empty means local time
	ChatIDs  []int64
}

// Notifier is the outbound slice of the notification pipeline we need.
type Notifier interface {
	Notify(ctx context.Context, n kit.Notification) error
}

type Service struct {
	mu  sync.Mutex
	cfg Config
	loc *time.Location

	log   logx.Logger
	store *timetable.Store
	notif Notifier
	bus   eventbus.Bus
	dedup storage.Store // optional: reminder state across restarts

	cron *cron.Cron

	// sent guards against double-firing within one process lifetime.
	sentMu sync.Mutex
	sent   map[string]struct{}
}

func New(cfg Config, store *timetable.Store, notif Notifier, dedup storage.Store, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		store: store,
		notif: notif,
		dedup: dedup,
		bus:   bus,
		log:   log,
		sent:  map[string]struct{}{},
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply swaps config at runtime. A timezone change restarts the cron
// runner so the minute ticks line up with the new location.
func (s *Service) Apply(ctx context.Context, cfg Config) {
	s.mu.Lock()
	oldTZ := s.cfg.Timezone
	running := s.cron != nil
	s.applyLocked(cfg)
	tzChanged := oldTZ != cfg.Timezone
	s.mu.Unlock()

	if running && (tzChanged || !cfg.Enabled) {
		s.Stop(ctx)
	}
	if cfg.Enabled {
		s.Start(ctx)
	}
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Lead <= 0 {
		cfg.Lead = 15 * time.Minute
	}
	loc := time.Local
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		} else {
			s.log.Warn("invalid reminder timezone, using local", logx.String("tz", cfg.Timezone), logx.Err(err))
		}
	}
	s.cfg = cfg
	s.loc = loc
}

// Start is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil || !s.cfg.Enabled {
		return
	}
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
		cron.WithLocation(s.loc),
	)
	_, err := c.AddFunc("* * * * *", func() {
		sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		s.scanAt(sctx, time.Now().In(s.location()))
	})
	if err != nil {
		s.log.Error("reminder cron setup failed", logx.Err(err))
		return
	}
	c.Start()
	s.cron = c
	s.log.Info("reminders started",
		logx.Duration("lead", s.cfg.Lead),
		logx.Int("chats", len(s.cfg.ChatIDs)))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

func (s *Service) location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

// scanAt fires reminders for acts starting exactly lead minutes after
// now (rounded to the minute). Split out from the cron hook for tests.
func (s *Service) scanAt(ctx context.Context, now time.Time) {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	if !cfg.Enabled || len(cfg.ChatIDs) == 0 || s.store == nil || s.notif == nil {
		return
	}

	targetMin := now.Hour()*60 + now.Minute() + int(cfg.Lead.Minutes())
	if targetMin >= 24*60 {
		return // next-day starts are tomorrow's problem
	}

	snap := s.store.Snapshot()
	for _, act := range snap.Acts {
		startMin, err := timegrid.ParseClock(act.Start)
		if err != nil || startMin != targetMin {
			continue
		}
		key := fmt.Sprintf("reminder:%s:%s", act.ID, now.Format("2006-01-02"))
		if !s.claim(ctx, key, now) {
			continue
		}

		stageName := act.StageID
		if st, ok := snap.StageByID(act.StageID); ok {
			stageName = st.Name
		}
		text := fmt.Sprintf("%s starts at %s on %s (in %d min)",
			act.Name, act.Start, stageName, int(cfg.Lead.Minutes()))

		for _, chatID := range cfg.ChatIDs {
			n := kit.Notification{
				Channel:  "telegram",
				Priority: 5,
				Target:   kit.ChatTarget{ChatID: chatID},
				Text:     text,
			}
			if err := s.notif.Notify(ctx, n); err != nil {
				s.log.Warn("reminder notify failed",
					logx.String("act", act.ID),
					logx.Int64("chat", chatID),
					logx.Err(err))
			}
		}
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{
				Type: eventbus.EventReminderSent,
				Data: map[string]any{"act_id": act.ID, "start": act.Start},
			})
		}
	}
}

// claim marks the reminder key as fired. It consults persistent dedup
// first so restarts within the same day don't re-announce.
func (s *Service) claim(ctx context.Context, key string, now time.Time) bool {
	s.sentMu.Lock()
	if _, done := s.sent[key]; done {
		s.sentMu.Unlock()
		return false
	}
	s.sent[key] = struct{}{}
	// Drop yesterday's keys so the map doesn't grow without bound.
	if len(s.sent) > 4096 {
		s.sent = map[string]struct{}{key: {}}
	}
	s.sentMu.Unlock()

	if s.dedup != nil {
		if until, ok, err := s.dedup.GetDedup(ctx, key); err == nil && ok && now.Before(until) {
			return false
		}
		endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
		_ = s.dedup.PutDedup(ctx, key, endOfDay)
	}
	return true
}
