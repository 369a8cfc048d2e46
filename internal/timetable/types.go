// Package timetable holds the schedule data model and its state store.
// All mutation goes through Store.Update, which validates, persists the
// snapshot blob, and publishes a change event in one synchronous step.
package timetable

import (
	"sort"
	"time"

	"stagehand/internal/timegrid"
)

// Stage is a horizontal lane in the timetable (a physical stage, a
// room, a track).
type Stage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Act is a scheduled slot on a stage. Start and End are same-day
// "HH:MM" wall-clock times; End is strictly after Start and may be
// "24:00" for a slot running to midnight.
type Act struct {
	ID       string `json:"id"`
	StageID  string `json:"stage_id"`
	Name     string `json:"name"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Color    string `json:"color,omitempty"`    // "#rgb" or "#rrggbb"
	Category string `json:"category,omitempty"` // palette key when Color is empty
}

// Member is a roster entry (artist, crew) with a team affiliation.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Team string `json:"team,omitempty"`
}

// Snapshot is the complete timetable state. It is a value: Store hands
// out deep copies, so holders can read it without locks.
type Snapshot struct {
	Window      timegrid.Window `json:"window"`
	PxPerHour   float64         `json:"px_per_hour"`
	SnapMinutes int             `json:"snap_minutes"`
	Stages      []Stage         `json:"stages"`
	Acts        []Act           `json:"acts"`
	Members     []Member        `json:"members"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ChangeEvent is the eventbus payload published after each committed
// update.
type ChangeEvent struct {
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Defaults seed a fresh timetable when no snapshot has been persisted.
type Defaults struct {
	Window      timegrid.Window
	PxPerHour   float64
	SnapMinutes int
}

func (d Defaults) orSane() Defaults {
	if d.Window.StartHour == 0 && d.Window.EndHour == 0 {
		d.Window = timegrid.Window{StartHour: 9, EndHour: 22}
	}
	if d.PxPerHour <= 0 {
		d.PxPerHour = 100
	}
	if d.SnapMinutes < 0 {
		d.SnapMinutes = 0
	}
	return d
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Stages = append([]Stage(nil), s.Stages...)
	out.Acts = append([]Act(nil), s.Acts...)
	out.Members = append([]Member(nil), s.Members...)
	return out
}

// StageByID returns the stage and whether it exists.
func (s Snapshot) StageByID(id string) (Stage, bool) {
	for _, st := range s.Stages {
		if st.ID == id {
			return st, true
		}
	}
	return Stage{}, false
}

// ActByID returns the act and whether it exists.
func (s Snapshot) ActByID(id string) (Act, bool) {
	for _, a := range s.Acts {
		if a.ID == id {
			return a, true
		}
	}
	return Act{}, false
}

// ActsOnStage returns the acts on one stage ordered by start time.
func (s Snapshot) ActsOnStage(stageID string) []Act {
	var out []Act
	for _, a := range s.Acts {
		if a.StageID == stageID {
			out = append(out, a)
		}
	}
	sortActs(out)
	return out
}

// Duration returns the act length in minutes. The act is assumed valid.
func (a Act) Duration() int {
	d, err := timegrid.DurationMinutes(a.Start, a.End)
	if err != nil {
		return 0
	}
	return d
}

func sortActs(acts []Act) {
	sort.Slice(acts, func(i, j int) bool {
		am, _ := timegrid.ParseClock(acts[i].Start)
		bm, _ := timegrid.ParseClock(acts[j].Start)
		if am != bm {
			return am < bm
		}
		return acts[i].ID < acts[j].ID
	})
}
