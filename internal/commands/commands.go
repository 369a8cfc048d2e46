// Package commands wires the timetable editing surface onto the
// Telegram command router. Read commands are open to everyone;
// mutations are owner-only and audited.
package commands

import (
	"time"

	"stagehand/internal/storage"
	"stagehand/internal/timetable"
	"stagehand/internal/transport/telegram/router"
	logx "stagehand/pkg/logx"
)

type Deps struct {
	Store *timetable.Store
	Audit storage.Store // may be nil
	Log   logx.Logger
}

// Registry builds the full command and callback tables.
func Registry(d Deps) ([]router.Command, []router.CallbackRoute) {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	h := &handlers{d: d}

	cmds := []router.Command{
		{
			Route:       "status",
			Description: "timetable overview",
			Usage:       "/status",
			Access:      router.AccessEveryone,
			Handle:      h.cmdStatus,
		},
		{
			Route:       "stages",
			Description: "list stages",
			Usage:       "/stages",
			Access:      router.AccessEveryone,
			Handle:      h.cmdStages,
		},
		{
			Route:       "stage add",
			Description: "add a stage",
			Usage:       `/stage add <name>`,
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdStageAdd,
		},
		{
			Route:       "stage rename",
			Description: "rename a stage",
			Usage:       `/stage rename <stage> <new name>`,
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdStageRename,
		},
		{
			Route:       "stage del",
			Description: "delete a stage (asks before dropping its acts)",
			Usage:       "/stage del <stage> [--cascade]",
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdStageDel,
		},
		{
			Route:       "acts",
			Description: "list acts, grouped by stage",
			Usage:       "/acts [stage]",
			Access:      router.AccessEveryone,
			Handle:      h.cmdActs,
		},
		{
			Route:       "act add",
			Description: "add an act",
			Usage:       `/act add <stage> <name> <start> <end> [--color #rrggbb] [--category live|dj|talk|workshop|break]`,
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdActAdd,
		},
		{
			Route:       "act edit",
			Description: "edit act fields (omitted flags keep the old value)",
			Usage:       `/act edit <act> [--name x] [--start HH:MM] [--end HH:MM] [--stage x] [--color x] [--category x]`,
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdActEdit,
		},
		{
			Route:       "act move",
			Description: "shift an act by pixels along the grid (snaps and clamps)",
			Usage:       "/act move <act> <delta-px>",
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdActMove,
		},
		{
			Route:       "act del",
			Description: "delete an act",
			Usage:       "/act del <act>",
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdActDel,
		},
		{
			Route:       "members",
			Description: "list roster members",
			Usage:       "/members",
			Access:      router.AccessEveryone,
			Handle:      h.cmdMembers,
		},
		{
			Route:       "member add",
			Description: "add a roster member",
			Usage:       `/member add <name> [--team x]`,
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdMemberAdd,
		},
		{
			Route:       "member del",
			Description: "remove a roster member",
			Usage:       "/member del <member>",
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdMemberDel,
		},
		{
			Route:       "member team",
			Description: "set a member's team",
			Usage:       "/member team <member> <team>",
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdMemberTeam,
		},
		{
			Route:       "window",
			Description: "set the visible day window",
			Usage:       "/window <start-hour> <end-hour>",
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdWindow,
		},
		{
			Route:       "snap",
			Description: "set the snap interval in minutes (0 disables snapping)",
			Usage:       "/snap <minutes>",
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdSnap,
		},
		{
			Route:       "zoom",
			Description: "set the horizontal scale in pixels per hour",
			Usage:       "/zoom <px-per-hour>",
			Access:      router.AccessOwnerOnly,
			Handle:      h.cmdZoom,
		},
		{
			Route:       "export",
			Description: "export the schedule",
			Usage:       "/export svg|json [--preview]",
			Access:      router.AccessEveryone,
			Timeout:     30 * time.Second,
			Handle:      h.cmdExport,
		},
	}

	cbs := []router.CallbackRoute{
		{
			Scope:       "stage",
			Action:      "del",
			Description: "confirm stage delete with acts",
			Access:      router.CallbackAccessOwnerOnly,
			Handle:      h.cbStageDel,
		},
		{
			Scope:       "act",
			Action:      "del",
			Description: "confirm act delete",
			Access:      router.CallbackAccessOwnerOnly,
			Handle:      h.cbActDel,
		},
		{
			Scope:       "ui",
			Action:      "cancel",
			Description: "dismiss a confirm prompt",
			Access:      router.CallbackAccessOwnerOnly,
			Handle:      h.cbCancel,
		},
	}

	return cmds, cbs
}
