package timetable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"stagehand/internal/eventbus"
	"stagehand/internal/storage"
	"stagehand/internal/timegrid"
	logx "stagehand/pkg/logx"
)

// Store owns the authoritative timetable state.
//
// There is no shared mutable state outside of it: readers get snapshot
// copies, writers go through Update, and every committed update is
// persisted and published before Update returns. Persistence failure
// rolls the update back.
type Store struct {
	mu      sync.Mutex
	cur     Snapshot
	persist storage.Store // may be nil (memory only)
	bus     eventbus.Bus  // may be nil
	log     logx.Logger
}

// Open loads the persisted snapshot, or seeds a fresh timetable from
// defaults when none exists. A corrupt blob is an error: the store
// refuses to start rather than silently resetting state.
func Open(ctx context.Context, persist storage.Store, bus eventbus.Bus, log logx.Logger, def Defaults) (*Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{persist: persist, bus: bus, log: log}

	def = def.orSane()
	fresh := Snapshot{
		Window:      def.Window,
		PxPerHour:   def.PxPerHour,
		SnapMinutes: def.SnapMinutes,
		UpdatedAt:   time.Now(),
	}

	if persist == nil {
		s.cur = fresh
		return s, nil
	}
	blob, err := persist.LoadSnapshot(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		s.cur = fresh
		log.Info("starting with empty timetable",
			logx.Int("window_start", def.Window.StartHour),
			logx.Int("window_end", def.Window.EndHour))
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("persisted snapshot invalid: %w", err)
	}
	s.cur = snap
	log.Info("timetable loaded",
		logx.Int("stages", len(snap.Stages)),
		logx.Int("acts", len(snap.Acts)),
		logx.Int("members", len(snap.Members)))
	return s, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.clone()
}

// Update applies fn to a working copy, validates the result, persists
// it, commits it, and publishes a change event. The snapshot that was
// committed is returned. On any error the current state is untouched.
func (s *Store) Update(ctx context.Context, action, target string, fn func(*Snapshot) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.cur.clone()
	if err := fn(&working); err != nil {
		return Snapshot{}, err
	}
	if err := working.Validate(); err != nil {
		return Snapshot{}, err
	}
	working.UpdatedAt = time.Now()

	if s.persist != nil {
		blob, err := json.Marshal(working)
		if err != nil {
			return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
		}
		if err := s.persist.SaveSnapshot(ctx, blob); err != nil {
			return Snapshot{}, fmt.Errorf("persist snapshot: %w", err)
		}
	}
	s.cur = working

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.EventTimetableUpdated,
			Data: ChangeEvent{Action: action, Target: target, UpdatedAt: working.UpdatedAt},
		})
	}
	return working.clone(), nil
}

// --- Stage operations ---

func (s *Store) AddStage(ctx context.Context, name string) (Stage, error) {
	var out Stage
	_, err := s.Update(ctx, "stage.add", "", func(snap *Snapshot) error {
		out = Stage{ID: newID("st", usedIDs(snap)), Name: strings.TrimSpace(name)}
		snap.Stages = append(snap.Stages, out)
		return nil
	})
	return out, err
}

func (s *Store) RenameStage(ctx context.Context, id, name string) error {
	_, err := s.Update(ctx, "stage.rename", id, func(snap *Snapshot) error {
		for i := range snap.Stages {
			if snap.Stages[i].ID == id {
				snap.Stages[i].Name = strings.TrimSpace(name)
				return nil
			}
		}
		return fmt.Errorf("stage %s: %w", id, ErrNotFound)
	})
	return err
}

// DeleteStage removes a stage. Unless cascade is set it refuses while
// acts still reference the stage; with cascade those acts go too.
func (s *Store) DeleteStage(ctx context.Context, id string, cascade bool) error {
	_, err := s.Update(ctx, "stage.del", id, func(snap *Snapshot) error {
		if _, ok := snap.StageByID(id); !ok {
			return fmt.Errorf("stage %s: %w", id, ErrNotFound)
		}
		if n := len(snap.ActsOnStage(id)); n > 0 && !cascade {
			return fmt.Errorf("stage %s: %w (%d)", id, ErrStageInUse, n)
		}
		stages := snap.Stages[:0]
		for _, st := range snap.Stages {
			if st.ID != id {
				stages = append(stages, st)
			}
		}
		snap.Stages = stages
		acts := snap.Acts[:0]
		for _, a := range snap.Acts {
			if a.StageID != id {
				acts = append(acts, a)
			}
		}
		snap.Acts = acts
		return nil
	})
	return err
}

// --- Act operations ---

// ActInput is the caller-facing shape for adding or editing acts.
// Empty fields in Edit mean "keep".
type ActInput struct {
	StageID  string
	Name     string
	Start    string
	End      string
	Color    string
	Category string
}

func (s *Store) AddAct(ctx context.Context, in ActInput) (Act, error) {
	var out Act
	_, err := s.Update(ctx, "act.add", "", func(snap *Snapshot) error {
		out = Act{
			ID:       newID("act", usedIDs(snap)),
			StageID:  in.StageID,
			Name:     strings.TrimSpace(in.Name),
			Start:    in.Start,
			End:      in.End,
			Color:    in.Color,
			Category: in.Category,
		}
		snap.Acts = append(snap.Acts, out)
		return nil
	})
	return out, err
}

func (s *Store) EditAct(ctx context.Context, id string, in ActInput) (Act, error) {
	var out Act
	_, err := s.Update(ctx, "act.edit", id, func(snap *Snapshot) error {
		for i := range snap.Acts {
			if snap.Acts[i].ID != id {
				continue
			}
			a := &snap.Acts[i]
			if in.StageID != "" {
				a.StageID = in.StageID
			}
			if in.Name != "" {
				a.Name = strings.TrimSpace(in.Name)
			}
			if in.Start != "" {
				a.Start = in.Start
			}
			if in.End != "" {
				a.End = in.End
			}
			if in.Color != "" {
				a.Color = in.Color
			}
			if in.Category != "" {
				a.Category = in.Category
			}
			out = *a
			return nil
		}
		return fmt.Errorf("act %s: %w", id, ErrNotFound)
	})
	return out, err
}

// MoveAct shifts an act by a pixel delta along the time axis. The new
// start is snapped to the snapshot's snap interval and clamped so the
// act keeps its full duration inside the window. This is the drag
// gesture: grab, drop at an offset, land on the grid.
func (s *Store) MoveAct(ctx context.Context, id string, deltaPx float64) (Act, error) {
	var out Act
	_, err := s.Update(ctx, "act.move", id, func(snap *Snapshot) error {
		for i := range snap.Acts {
			if snap.Acts[i].ID != id {
				continue
			}
			a := &snap.Acts[i]
			start, err := timegrid.ParseClock(a.Start)
			if err != nil {
				return err
			}
			dur := a.Duration()
			off := timegrid.MinuteToOffset(start, snap.Window, snap.PxPerHour)
			newStart, err := timegrid.OffsetToTime(off+deltaPx, snap.Window, snap.PxPerHour, snap.SnapMinutes, dur)
			if err != nil {
				return err
			}
			a.Start = timegrid.FormatClock(newStart)
			a.End = timegrid.FormatClockEnd(newStart + dur)
			out = *a
			return nil
		}
		return fmt.Errorf("act %s: %w", id, ErrNotFound)
	})
	return out, err
}

func (s *Store) DeleteAct(ctx context.Context, id string) error {
	_, err := s.Update(ctx, "act.del", id, func(snap *Snapshot) error {
		for i := range snap.Acts {
			if snap.Acts[i].ID == id {
				snap.Acts = append(snap.Acts[:i], snap.Acts[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("act %s: %w", id, ErrNotFound)
	})
	return err
}

// --- Member operations ---

func (s *Store) AddMember(ctx context.Context, name, team string) (Member, error) {
	var out Member
	_, err := s.Update(ctx, "member.add", "", func(snap *Snapshot) error {
		out = Member{ID: newID("m", usedIDs(snap)), Name: strings.TrimSpace(name), Team: strings.TrimSpace(team)}
		snap.Members = append(snap.Members, out)
		return nil
	})
	return out, err
}

func (s *Store) RemoveMember(ctx context.Context, id string) error {
	_, err := s.Update(ctx, "member.del", id, func(snap *Snapshot) error {
		for i := range snap.Members {
			if snap.Members[i].ID == id {
				snap.Members = append(snap.Members[:i], snap.Members[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("member %s: %w", id, ErrNotFound)
	})
	return err
}

func (s *Store) AssignTeam(ctx context.Context, id, team string) error {
	_, err := s.Update(ctx, "member.team", id, func(snap *Snapshot) error {
		for i := range snap.Members {
			if snap.Members[i].ID == id {
				snap.Members[i].Team = strings.TrimSpace(team)
				return nil
			}
		}
		return fmt.Errorf("member %s: %w", id, ErrNotFound)
	})
	return err
}

// --- Grid settings ---

// SetWindow changes the visible day window. Validation rejects windows
// that cannot hold the existing acts, so nothing is ever truncated.
func (s *Store) SetWindow(ctx context.Context, w timegrid.Window) error {
	_, err := s.Update(ctx, "grid.window", "", func(snap *Snapshot) error {
		snap.Window = w
		return nil
	})
	return err
}

func (s *Store) SetSnap(ctx context.Context, minutes int) error {
	_, err := s.Update(ctx, "grid.snap", "", func(snap *Snapshot) error {
		snap.SnapMinutes = minutes
		return nil
	})
	return err
}

func (s *Store) SetPxPerHour(ctx context.Context, px float64) error {
	_, err := s.Update(ctx, "grid.zoom", "", func(snap *Snapshot) error {
		snap.PxPerHour = px
		return nil
	})
	return err
}

// --- IDs ---

func usedIDs(snap *Snapshot) map[string]struct{} {
	used := make(map[string]struct{}, len(snap.Stages)+len(snap.Acts)+len(snap.Members))
	for _, st := range snap.Stages {
		used[st.ID] = struct{}{}
	}
	for _, a := range snap.Acts {
		used[a.ID] = struct{}{}
	}
	for _, m := range snap.Members {
		used[m.ID] = struct{}{}
	}
	return used
}

func newID(prefix string, used map[string]struct{}) string {
	for {
		id := prefix + "-" + strconv.FormatUint(rand.Uint64()%(36*36*36*36*36*36), 36)
		if _, taken := used[id]; !taken {
			return id
		}
	}
}
