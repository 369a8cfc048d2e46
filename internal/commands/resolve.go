package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"stagehand/internal/storage"
	"stagehand/internal/timetable"
	"stagehand/internal/transport/telegram/router"
)

// resolveStage accepts a stage id, an exact name, or a unique
// case-insensitive name prefix.
func resolveStage(snap timetable.Snapshot, ref string) (timetable.Stage, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return timetable.Stage{}, fmt.Errorf("stage: %w", timetable.ErrNotFound)
	}
	if st, ok := snap.StageByID(ref); ok {
		return st, nil
	}

	low := strings.ToLower(ref)
	var prefix []timetable.Stage
	for _, st := range snap.Stages {
		name := strings.ToLower(st.Name)
		if name == low {
			return st, nil
		}
		if strings.HasPrefix(name, low) {
			prefix = append(prefix, st)
		}
	}
	switch len(prefix) {
	case 1:
		return prefix[0], nil
	case 0:
		return timetable.Stage{}, fmt.Errorf("stage %q: %w", ref, timetable.ErrNotFound)
	default:
		return timetable.Stage{}, fmt.Errorf("stage %q is ambiguous (%d matches)", ref, len(prefix))
	}
}

func resolveAct(snap timetable.Snapshot, ref string) (timetable.Act, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return timetable.Act{}, fmt.Errorf("act: %w", timetable.ErrNotFound)
	}
	if a, ok := snap.ActByID(ref); ok {
		return a, nil
	}

	low := strings.ToLower(ref)
	var prefix []timetable.Act
	for _, a := range snap.Acts {
		name := strings.ToLower(a.Name)
		if name == low {
			return a, nil
		}
		if strings.HasPrefix(name, low) {
			prefix = append(prefix, a)
		}
	}
	switch len(prefix) {
	case 1:
		return prefix[0], nil
	case 0:
		return timetable.Act{}, fmt.Errorf("act %q: %w", ref, timetable.ErrNotFound)
	default:
		return timetable.Act{}, fmt.Errorf("act %q is ambiguous (%d matches)", ref, len(prefix))
	}
}

func resolveMember(snap timetable.Snapshot, ref string) (timetable.Member, error) {
	ref = strings.TrimSpace(ref)
	low := strings.ToLower(ref)
	var prefix []timetable.Member
	for _, m := range snap.Members {
		if m.ID == ref {
			return m, nil
		}
		name := strings.ToLower(m.Name)
		if name == low {
			return m, nil
		}
		if strings.HasPrefix(name, low) {
			prefix = append(prefix, m)
		}
	}
	switch len(prefix) {
	case 1:
		return prefix[0], nil
	case 0:
		return timetable.Member{}, fmt.Errorf("member %q: %w", ref, timetable.ErrNotFound)
	default:
		return timetable.Member{}, fmt.Errorf("member %q is ambiguous (%d matches)", ref, len(prefix))
	}
}

func sorted(in []string) []string {
	sort.Strings(in)
	return in
}

// audit records the action best-effort; persistence failures never
// surface to the chat.
func (h *handlers) audit(ctx context.Context, req *router.Request, action, target string, opErr error, start time.Time) {
	if h.d.Audit == nil {
		return
	}
	e := storage.AuditEntry{
		At:      time.Now(),
		ActorID: req.FromID,
		ChatID:  req.Chat.ChatID,
		Action:  action,
		Target:  target,
		TookMS:  time.Since(start).Milliseconds(),
	}
	if msg := req.Update.Message; msg != nil {
		e.ActorUsername = msg.FromUsername
	}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	_ = h.d.Audit.AppendAudit(ctx, e)
}
