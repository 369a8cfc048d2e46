package timetable

import (
	"errors"
	"fmt"
	"strings"

	"stagehand/internal/timegrid"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrStageInUse   = errors.New("stage has acts")
	ErrDuplicate    = errors.New("duplicate id")
	ErrEmptyName    = errors.New("name is empty")
	ErrActTimes     = errors.New("act end must be after start")
	ErrOutOfWindow  = errors.New("act outside window")
	ErrUnknownStage = errors.New("unknown stage")
)

// Validate checks the whole snapshot. Store.Update runs it before every
// commit, so an inconsistent state is never persisted or published.
func (s Snapshot) Validate() error {
	if err := s.Window.Validate(); err != nil {
		return err
	}
	if s.PxPerHour <= 0 {
		return fmt.Errorf("%w: %v px/h", timegrid.ErrScale, s.PxPerHour)
	}
	if s.SnapMinutes < 0 {
		return fmt.Errorf("snap_minutes must be >= 0, got %d", s.SnapMinutes)
	}

	stageIDs := make(map[string]struct{}, len(s.Stages))
	for _, st := range s.Stages {
		if strings.TrimSpace(st.Name) == "" {
			return fmt.Errorf("stage %s: %w", st.ID, ErrEmptyName)
		}
		if _, dup := stageIDs[st.ID]; dup || st.ID == "" {
			return fmt.Errorf("stage %q: %w", st.ID, ErrDuplicate)
		}
		stageIDs[st.ID] = struct{}{}
	}

	actIDs := make(map[string]struct{}, len(s.Acts))
	for _, a := range s.Acts {
		if _, dup := actIDs[a.ID]; dup || a.ID == "" {
			return fmt.Errorf("act %q: %w", a.ID, ErrDuplicate)
		}
		actIDs[a.ID] = struct{}{}
		if err := a.validate(s.Window, stageIDs); err != nil {
			return err
		}
	}

	memberIDs := make(map[string]struct{}, len(s.Members))
	for _, m := range s.Members {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("member %s: %w", m.ID, ErrEmptyName)
		}
		if _, dup := memberIDs[m.ID]; dup || m.ID == "" {
			return fmt.Errorf("member %q: %w", m.ID, ErrDuplicate)
		}
		memberIDs[m.ID] = struct{}{}
	}
	return nil
}

func (a Act) validate(w timegrid.Window, stages map[string]struct{}) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("act %s: %w", a.ID, ErrEmptyName)
	}
	if _, ok := stages[a.StageID]; !ok {
		return fmt.Errorf("act %s: %w %q", a.ID, ErrUnknownStage, a.StageID)
	}
	start, err := timegrid.ParseClock(a.Start)
	if err != nil {
		return fmt.Errorf("act %s start: %w", a.ID, err)
	}
	end, err := timegrid.ParseClockEnd(a.End)
	if err != nil {
		return fmt.Errorf("act %s end: %w", a.ID, err)
	}
	if end <= start {
		return fmt.Errorf("act %s (%s-%s): %w", a.ID, a.Start, a.End, ErrActTimes)
	}
	if start < w.StartMin() || end > w.EndMin() {
		return fmt.Errorf("act %s (%s-%s): %w [%02d:00, %02d:00]",
			a.ID, a.Start, a.End, ErrOutOfWindow, w.StartHour, w.EndHour)
	}
	if a.Color != "" && !validHexColor(a.Color) {
		return fmt.Errorf("act %s: invalid color %q", a.ID, a.Color)
	}
	return nil
}

func validHexColor(c string) bool {
	if len(c) != 4 && len(c) != 7 {
		return false
	}
	if c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
