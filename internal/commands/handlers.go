package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stagehand/internal/export"
	"stagehand/internal/timegrid"
	"stagehand/internal/timetable"
	kit "stagehand/internal/transport"
	"stagehand/internal/transport/telegram/router"
	logx "stagehand/pkg/logx"
	"stagehand/pkg/tgui"
)

type handlers struct {
	d Deps
}

// ---- status & listing ----

func (h *handlers) cmdStatus(ctx context.Context, req *router.Request) error {
	snap := h.d.Store.Snapshot()

	b := tgui.New().Title("🎪", titleOr(req, "Timetable")).
		KV("window", fmt.Sprintf("%02d:00–%02d:00", snap.Window.StartHour, snap.Window.EndHour)).
		KV("snap", fmt.Sprintf("%d min", snap.SnapMinutes)).
		KV("zoom", fmt.Sprintf("%.0f px/h", snap.PxPerHour)).
		KV("stages", strconv.Itoa(len(snap.Stages))).
		KV("acts", strconv.Itoa(len(snap.Acts))).
		KV("members", strconv.Itoa(len(snap.Members)))
	if !snap.UpdatedAt.IsZero() {
		b.KV("updated", snap.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if req.Services != nil && req.Services.RuntimeSupervisors != nil {
		subs := req.Services.RuntimeSupervisors.Snapshot()
		if len(subs) > 0 {
			names := make([]string, 0, len(subs))
			for name := range subs {
				names = append(names, name)
			}
			b.Blank().KV("subsystems", strings.Join(sorted(names), ", "))
		}
	}
	if req.Services != nil && req.Services.Notifier != nil {
		if hist := req.Services.Notifier.Snapshot(); len(hist) > 0 {
			last := hist[len(hist)-1]
			b.KV("notices", fmt.Sprintf("%d sent, last %s", len(hist), last.At.Format("15:04:05")))
			b.RawLine(tgui.I(tgui.TruncRunes(last.Text, 64)).String())
		}
	}
	_, err := b.Build().Send(ctx, req.Adapter, req.Chat)
	return err
}

func (h *handlers) cmdStages(ctx context.Context, req *router.Request) error {
	snap := h.d.Store.Snapshot()
	b := tgui.New().Title("🎪", "Stages")
	if len(snap.Stages) == 0 {
		b.Line("no stages yet — /stage add <name>")
	}
	for _, st := range snap.Stages {
		n := len(snap.ActsOnStage(st.ID))
		b.RawLine(tgui.JoinH("  ",
			tgui.Code(st.ID),
			tgui.B(st.Name),
			tgui.Esc(fmt.Sprintf("(%d acts)", n)),
		).String())
	}
	_, err := b.Build().Send(ctx, req.Adapter, req.Chat)
	return err
}

func (h *handlers) cmdActs(ctx context.Context, req *router.Request) error {
	snap := h.d.Store.Snapshot()

	stages := snap.Stages
	if len(req.Args) > 0 {
		st, err := resolveStage(snap, strings.Join(req.Args, " "))
		if err != nil {
			return h.reply(ctx, req, friendly(err))
		}
		stages = []timetable.Stage{st}
	}

	b := tgui.New().Title("🗓", titleOr(req, "Acts"))
	total := 0
	for _, st := range stages {
		acts := snap.ActsOnStage(st.ID)
		if len(acts) == 0 {
			continue
		}
		b.Blank().Section(st.Name)
		for _, a := range acts {
			line := fmt.Sprintf("%s  %s–%s  %s", a.ID, a.Start, a.End, tgui.TruncRunes(a.Name, 48))
			if a.Category != "" {
				line += "  [" + a.Category + "]"
			}
			b.Line(line)
			total++
		}
	}
	if total == 0 {
		b.Line("no acts yet — /act add <stage> <name> <start> <end>")
	}
	_, err := b.Build().Send(ctx, req.Adapter, req.Chat)
	return err
}

func (h *handlers) cmdMembers(ctx context.Context, req *router.Request) error {
	snap := h.d.Store.Snapshot()
	b := tgui.New().Title("👥", "Members")
	if len(snap.Members) == 0 {
		b.Line("empty roster — /member add <name>")
	}
	for _, m := range snap.Members {
		parts := []tgui.H{tgui.Code(m.ID), tgui.Esc(m.Name)}
		if m.Team != "" {
			parts = append(parts, tgui.I(m.Team))
		}
		b.RawLine(tgui.JoinH("  ", parts...).String())
	}
	_, err := b.Build().Send(ctx, req.Adapter, req.Chat)
	return err
}

// ---- stage mutations ----

func (h *handlers) cmdStageAdd(ctx context.Context, req *router.Request) error {
	name := strings.Join(req.Args, " ")
	if strings.TrimSpace(name) == "" {
		return h.usage(ctx, req, "/stage add <name>")
	}
	start := time.Now()
	st, err := h.d.Store.AddStage(ctx, name)
	h.audit(ctx, req, "stage.add", st.ID, err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ stage %s added (%s)", st.Name, st.ID))
}

func (h *handlers) cmdStageRename(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 2 {
		return h.usage(ctx, req, "/stage rename <stage> <new name>")
	}
	snap := h.d.Store.Snapshot()
	st, err := resolveStage(snap, req.Args[0])
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	name := strings.Join(req.Args[1:], " ")
	start := time.Now()
	err = h.d.Store.RenameStage(ctx, st.ID, name)
	h.audit(ctx, req, "stage.rename", st.ID, err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ stage %s renamed to %s", st.ID, name))
}

func (h *handlers) cmdStageDel(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 1 {
		return h.usage(ctx, req, "/stage del <stage> [--cascade]")
	}
	snap := h.d.Store.Snapshot()
	st, err := resolveStage(snap, req.Args[0])
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}

	acts := len(snap.ActsOnStage(st.ID))
	cascade := req.BoolFlags["cascade"]
	if acts > 0 && !cascade {
		// Destructive: ask before dropping the stage's acts.
		kb := tgui.ConfirmInline(
			tgui.Btn(fmt.Sprintf("🗑 delete with %d acts", acts), tgui.Data("stage", "del", tgui.MustPackJSON(delRef{ID: st.ID}))),
			tgui.Btn("cancel", tgui.Data("ui", "cancel", "")),
		)
		_, err := tgui.New().
			Title("⚠️", "Confirm delete").
			Line(fmt.Sprintf("stage %s (%s) still has %d acts.", st.Name, st.ID, acts)).
			Inline(kb).
			Build().Send(ctx, req.Adapter, req.Chat)
		return err
	}

	start := time.Now()
	err = h.d.Store.DeleteStage(ctx, st.ID, cascade)
	h.audit(ctx, req, "stage.del", st.ID, err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ stage %s deleted", st.Name))
}

// delRef is the packed payload behind destructive confirm buttons.
type delRef struct {
	ID string `json:"id"`
}

func unpackDelRef(payload string) (delRef, bool) {
	var ref delRef
	if err := tgui.UnpackJSON(payload, &ref); err != nil || ref.ID == "" {
		return delRef{}, false
	}
	return ref, true
}

func (h *handlers) cbStageDel(ctx context.Context, req *router.Request, payload string) error {
	ref, ok := unpackDelRef(payload)
	if !ok {
		return h.editCallback(ctx, req, "❌ stale confirm button")
	}
	start := time.Now()
	err := h.d.Store.DeleteStage(ctx, ref.ID, true)
	h.audit(ctx, req, "stage.del", ref.ID, err, start)
	text := "✅ stage deleted"
	if err != nil {
		text = "❌ " + friendly(err)
	}
	return h.editCallback(ctx, req, text)
}

// ---- act mutations ----

func (h *handlers) cmdActAdd(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 4 {
		return h.usage(ctx, req, `/act add <stage> "<name>" <start> <end>`)
	}
	snap := h.d.Store.Snapshot()
	st, err := resolveStage(snap, req.Args[0])
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}

	// start/end are the last two positionals; the name may span several tokens.
	n := len(req.Args)
	in := timetable.ActInput{
		StageID:  st.ID,
		Name:     strings.Join(req.Args[1:n-2], " "),
		Start:    req.Args[n-2],
		End:      req.Args[n-1],
		Color:    req.Flags["color"],
		Category: req.Flags["category"],
	}
	start := time.Now()
	act, err := h.d.Store.AddAct(ctx, in)
	h.audit(ctx, req, "act.add", act.ID, err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ %s %s–%s on %s (%s)", act.Name, act.Start, act.End, st.Name, act.ID))
}

func (h *handlers) cmdActEdit(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 1 {
		return h.usage(ctx, req, "/act edit <act> [--name x] [--start HH:MM] [--end HH:MM] [--stage x] [--color x] [--category x]")
	}
	snap := h.d.Store.Snapshot()
	act, err := resolveAct(snap, strings.Join(req.Args, " "))
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}

	in := timetable.ActInput{
		Name:     req.Flags["name"],
		Start:    req.Flags["start"],
		End:      req.Flags["end"],
		Color:    req.Flags["color"],
		Category: req.Flags["category"],
	}
	if ref := req.Flags["stage"]; ref != "" {
		st, err := resolveStage(snap, ref)
		if err != nil {
			return h.reply(ctx, req, friendly(err))
		}
		in.StageID = st.ID
	}
	if in == (timetable.ActInput{}) {
		return h.reply(ctx, req, "nothing to change — pass at least one --flag")
	}

	start := time.Now()
	out, err := h.d.Store.EditAct(ctx, act.ID, in)
	h.audit(ctx, req, "act.edit", act.ID, err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ %s now %s–%s (%s)", out.Name, out.Start, out.End, out.ID))
}

func (h *handlers) cmdActMove(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 2 {
		return h.usage(ctx, req, "/act move <act> <delta-px>")
	}
	snap := h.d.Store.Snapshot()
	act, err := resolveAct(snap, req.Args[0])
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	delta, err := strconv.ParseFloat(req.Args[1], 64)
	if err != nil {
		return h.reply(ctx, req, "delta must be a number of pixels, e.g. 50 or -120")
	}

	start := time.Now()
	out, err := h.d.Store.MoveAct(ctx, act.ID, delta)
	h.audit(ctx, req, "act.move", act.ID, err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ %s moved to %s–%s", out.Name, out.Start, out.End))
}

func (h *handlers) cmdActDel(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 1 {
		return h.usage(ctx, req, "/act del <act>")
	}
	snap := h.d.Store.Snapshot()
	act, err := resolveAct(snap, strings.Join(req.Args, " "))
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}

	kb := tgui.ConfirmInline(
		tgui.Btn("🗑 delete", tgui.Data("act", "del", tgui.MustPackJSON(delRef{ID: act.ID}))),
		tgui.Btn("cancel", tgui.Data("ui", "cancel", "")),
	)
	_, err = tgui.New().
		Title("⚠️", "Confirm delete").
		Line(fmt.Sprintf("%s %s–%s (%s)", act.Name, act.Start, act.End, act.ID)).
		Inline(kb).
		Build().Send(ctx, req.Adapter, req.Chat)
	return err
}

func (h *handlers) cbActDel(ctx context.Context, req *router.Request, payload string) error {
	ref, ok := unpackDelRef(payload)
	if !ok {
		return h.editCallback(ctx, req, "❌ stale confirm button")
	}
	start := time.Now()
	err := h.d.Store.DeleteAct(ctx, ref.ID)
	h.audit(ctx, req, "act.del", ref.ID, err, start)
	text := "✅ act deleted"
	if err != nil {
		text = "❌ " + friendly(err)
	}
	return h.editCallback(ctx, req, text)
}

func (h *handlers) cbCancel(ctx context.Context, req *router.Request, payload string) error {
	return h.editCallback(ctx, req, "canceled")
}

// ---- member mutations ----

func (h *handlers) cmdMemberAdd(ctx context.Context, req *router.Request) error {
	name := strings.Join(req.Args, " ")
	if strings.TrimSpace(name) == "" {
		return h.usage(ctx, req, "/member add <name> [--team x]")
	}
	start := time.Now()
	m, err := h.d.Store.AddMember(ctx, name, req.Flags["team"])
	h.audit(ctx, req, "member.add", m.ID, err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ %s added (%s)", m.Name, m.ID))
}

func (h *handlers) cmdMemberDel(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 1 {
		return h.usage(ctx, req, "/member del <member>")
	}
	snap := h.d.Store.Snapshot()
	m, err := resolveMember(snap, strings.Join(req.Args, " "))
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	start := time.Now()
	err = h.d.Store.RemoveMember(ctx, m.ID)
	h.audit(ctx, req, "member.del", m.ID, err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ %s removed", m.Name))
}

func (h *handlers) cmdMemberTeam(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 2 {
		return h.usage(ctx, req, "/member team <member> <team>")
	}
	snap := h.d.Store.Snapshot()
	m, err := resolveMember(snap, req.Args[0])
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	team := strings.Join(req.Args[1:], " ")
	start := time.Now()
	err = h.d.Store.AssignTeam(ctx, m.ID, team)
	h.audit(ctx, req, "member.team", m.ID, err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ %s → team %s", m.Name, team))
}

// ---- grid settings ----

func (h *handlers) cmdWindow(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 2 {
		return h.usage(ctx, req, "/window <start-hour> <end-hour>")
	}
	sh, err1 := strconv.Atoi(req.Args[0])
	eh, err2 := strconv.Atoi(req.Args[1])
	if err1 != nil || err2 != nil {
		return h.reply(ctx, req, "hours must be integers, e.g. /window 9 22")
	}
	start := time.Now()
	err := h.d.Store.SetWindow(ctx, timegrid.Window{StartHour: sh, EndHour: eh})
	h.audit(ctx, req, "grid.window", "", err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ window set to %02d:00–%02d:00", sh, eh))
}

func (h *handlers) cmdSnap(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 1 {
		return h.usage(ctx, req, "/snap <minutes>")
	}
	m, err := strconv.Atoi(req.Args[0])
	if err != nil {
		return h.reply(ctx, req, "minutes must be an integer, e.g. /snap 5")
	}
	start := time.Now()
	err = h.d.Store.SetSnap(ctx, m)
	h.audit(ctx, req, "grid.snap", "", err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	if m == 0 {
		return h.reply(ctx, req, "✅ snapping disabled")
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ snap set to %d min", m))
}

func (h *handlers) cmdZoom(ctx context.Context, req *router.Request) error {
	if len(req.Args) < 1 {
		return h.usage(ctx, req, "/zoom <px-per-hour>")
	}
	px, err := strconv.ParseFloat(req.Args[0], 64)
	if err != nil {
		return h.reply(ctx, req, "zoom must be a number, e.g. /zoom 120")
	}
	start := time.Now()
	err = h.d.Store.SetPxPerHour(ctx, px)
	h.audit(ctx, req, "grid.zoom", "", err, start)
	if err != nil {
		return h.reply(ctx, req, friendly(err))
	}
	return h.reply(ctx, req, fmt.Sprintf("✅ zoom set to %.0f px/h", px))
}

// ---- export ----

func (h *handlers) cmdExport(ctx context.Context, req *router.Request) error {
	format := "svg"
	if len(req.Args) > 0 {
		format = strings.ToLower(req.Args[0])
	}
	snap := h.d.Store.Snapshot()
	title := titleOr(req, "Timetable")

	var data []byte
	switch format {
	case "svg":
		data = export.SVG(snap, title)
	case "json":
		var err error
		data, err = export.JSON(snap)
		if err != nil {
			return h.reply(ctx, req, "export failed: "+err.Error())
		}
		if req.BoolFlags["preview"] {
			// Inline look without the document download.
			_, err := tgui.New().Title("🗓", title).PreMulti(string(data)).Build().Send(ctx, req.Adapter, req.Chat)
			return err
		}
	default:
		return h.usage(ctx, req, "/export svg|json [--preview]")
	}

	name := export.Filename(format, time.Now())
	caption := fmt.Sprintf("%s — %d stages, %d acts", title, len(snap.Stages), len(snap.Acts))
	start := time.Now()
	err := req.Adapter.SendDocument(ctx, req.Chat, name, data, caption)
	h.audit(ctx, req, "export."+format, "", err, start)
	if err != nil {
		h.d.Log.Warn("export send failed", logx.String("format", format), logx.Err(err))
		return h.reply(ctx, req, "export failed: "+err.Error())
	}
	return nil
}

// ---- shared plumbing ----

func (h *handlers) reply(ctx context.Context, req *router.Request, text string) error {
	_, err := req.Adapter.SendText(ctx, req.Chat, text, nil)
	return err
}

func (h *handlers) usage(ctx context.Context, req *router.Request, usage string) error {
	_, err := req.Adapter.SendText(ctx, req.Chat, "usage: "+usage, nil)
	return err
}

// editCallback replaces the confirm-prompt message in place.
func (h *handlers) editCallback(ctx context.Context, req *router.Request, text string) error {
	cb := req.Update.Callback
	if cb == nil || cb.MessageID == 0 {
		return h.reply(ctx, req, text)
	}
	ref := kit.MessageRef{ChatID: cb.ChatID, ThreadID: cb.ThreadID, MessageID: cb.MessageID}
	if err := req.Adapter.EditText(ctx, ref, text, nil); err != nil {
		return h.reply(ctx, req, text)
	}
	return nil
}

func titleOr(req *router.Request, fallback string) string {
	if req.Config != nil {
		if t := strings.TrimSpace(req.Config.Timetable.Title); t != "" {
			return t
		}
	}
	return fallback
}

// friendly maps store sentinels to operator-readable messages.
func friendly(err error) string {
	switch {
	case errors.Is(err, timetable.ErrNotFound):
		return err.Error() + " — check /stages and /acts for ids"
	case errors.Is(err, timetable.ErrStageInUse):
		return "stage still has acts — rerun with --cascade or move them first"
	case errors.Is(err, timetable.ErrOutOfWindow):
		return err.Error() + " — widen the window with /window first"
	case errors.Is(err, timetable.ErrActTimes):
		return err.Error() + " — times are same-day HH:MM with end after start"
	case errors.Is(err, timegrid.ErrDoesNotFit):
		return "the act does not fit in the visible window"
	default:
		return err.Error()
	}
}
