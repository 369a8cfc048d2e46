// Package svg renders a timetable snapshot as a standalone SVG
// document: stages as horizontal bands, an hour ruler on top, and each
// act as a labeled box positioned along the time axis.
package svg

import (
	"fmt"
	"strings"

	"stagehand/internal/timegrid"
	"stagehand/internal/timetable"
)

// Options control presentation. Zero values fall back to defaults.
type Options struct {
	Title      string
	RowHeight  float64 // per-stage band height, default 64
	LabelWidth float64 // left column for stage names, default 140
	FontSize   float64 // default 12
}

func (o Options) orDefaults() Options {
	if o.RowHeight <= 0 {
		o.RowHeight = 64
	}
	if o.LabelWidth <= 0 {
		o.LabelWidth = 140
	}
	if o.FontSize <= 0 {
		o.FontSize = 12
	}
	return o
}

const (
	rulerHeight = 28
	titleHeight = 34
	actPadding  = 3
)

// palette maps act categories to fill colors. Acts with an explicit
// Color bypass it; unknown categories get the zero key.
var palette = map[string]string{
	"":         "#4a90d9",
	"live":     "#4a90d9",
	"dj":       "#7b5ea7",
	"talk":     "#3a9e75",
	"workshop": "#c77b3c",
	"break":    "#8a8f98",
}

// Render produces the SVG document for a snapshot. It never fails:
// snapshots come out of the store already validated.
func Render(snap timetable.Snapshot, opts Options) []byte {
	opts = opts.orDefaults()

	gridW := timegrid.MinuteToOffset(snap.Window.EndMin(), snap.Window, snap.PxPerHour)
	width := opts.LabelWidth + gridW
	top := titleHeight + rulerHeight
	height := float64(top) + float64(len(snap.Stages))*opts.RowHeight
	if len(snap.Stages) == 0 {
		height += opts.RowHeight // room for the "no stages" note
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		width, height, width, height)

	fmt.Fprintf(&b, `<style>
text { font-family: Helvetica, Arial, sans-serif; fill: #222; }
.title { font-size: %.0fpx; font-weight: bold; }
.hour { font-size: %.0fpx; fill: #555; }
.stage { font-size: %.0fpx; font-weight: bold; }
.act-name { font-size: %.0fpx; fill: #fff; font-weight: bold; }
.act-time { font-size: %.0fpx; fill: #f0f0f0; }
</style>`+"\n", opts.FontSize+6, opts.FontSize-1, opts.FontSize, opts.FontSize, opts.FontSize-2)

	fmt.Fprintf(&b, `<rect x="0" y="0" width="%.0f" height="%.0f" fill="#ffffff"/>`+"\n", width, height)

	title := opts.Title
	if title == "" {
		title = "Timetable"
	}
	fmt.Fprintf(&b, `<text x="%.0f" y="%.0f" class="title">%s</text>`+"\n",
		opts.LabelWidth, float64(titleHeight)-10, escape(title))

	writeRuler(&b, snap, opts, height)
	writeStages(&b, snap, opts)

	b.WriteString("</svg>\n")
	return []byte(b.String())
}

// writeRuler draws one tick and label per hour, with gridlines running
// the full height of the chart.
func writeRuler(b *strings.Builder, snap timetable.Snapshot, opts Options, height float64) {
	top := float64(titleHeight)
	for h := snap.Window.StartHour; h <= snap.Window.EndHour; h++ {
		x := opts.LabelWidth + timegrid.MinuteToOffset(h*60, snap.Window, snap.PxPerHour)
		fmt.Fprintf(b, `<line x1="%.1f" y1="%.0f" x2="%.1f" y2="%.0f" stroke="#ddd" stroke-width="1"/>`+"\n",
			x, top+rulerHeight, x, height)
		fmt.Fprintf(b, `<text x="%.1f" y="%.0f" class="hour" text-anchor="middle">%02d:00</text>`+"\n",
			x, top+rulerHeight-8, h%24)
	}
}

func writeStages(b *strings.Builder, snap timetable.Snapshot, opts Options) {
	top := float64(titleHeight + rulerHeight)
	if len(snap.Stages) == 0 {
		fmt.Fprintf(b, `<text x="%.0f" y="%.0f" class="stage">no stages yet</text>`+"\n",
			opts.LabelWidth, top+opts.RowHeight/2)
		return
	}

	for i, st := range snap.Stages {
		y := top + float64(i)*opts.RowHeight
		band := "#fafafa"
		if i%2 == 1 {
			band = "#f1f3f5"
		}
		gridW := timegrid.MinuteToOffset(snap.Window.EndMin(), snap.Window, snap.PxPerHour)
		fmt.Fprintf(b, `<rect x="0" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
			y, opts.LabelWidth+gridW, opts.RowHeight, band)
		fmt.Fprintf(b, `<text x="10" y="%.1f" class="stage">%s</text>`+"\n",
			y+opts.RowHeight/2+opts.FontSize/3, escape(st.Name))

		for _, act := range snap.ActsOnStage(st.ID) {
			writeAct(b, snap, opts, act, y)
		}
	}
}

func writeAct(b *strings.Builder, snap timetable.Snapshot, opts Options, act timetable.Act, rowY float64) {
	startOff, err := timegrid.TimeToOffset(act.Start, snap.Window, snap.PxPerHour)
	if err != nil {
		return
	}
	w := float64(act.Duration()) * snap.PxPerHour / 60
	x := opts.LabelWidth + startOff
	y := rowY + actPadding
	h := opts.RowHeight - 2*actPadding

	fill := act.Color
	if fill == "" {
		fill = palette[strings.ToLower(act.Category)]
		if fill == "" {
			fill = palette[""]
		}
	}

	fmt.Fprintf(b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4" fill="%s"/>`+"\n",
		x, y, w, h, fill)

	// Skip labels that clearly cannot fit.
	if w < opts.FontSize*2 {
		return
	}
	name := fitText(act.Name, w-8, opts.FontSize)
	fmt.Fprintf(b, `<text x="%.1f" y="%.1f" class="act-name">%s</text>`+"\n",
		x+5, y+opts.FontSize+2, escape(name))
	fmt.Fprintf(b, `<text x="%.1f" y="%.1f" class="act-time">%s–%s</text>`+"\n",
		x+5, y+h-5, act.Start, act.End)
}

// fitText trims a label to the available width using the same rough
// width heuristic as the ruler layout (0.6em per character).
func fitText(s string, maxW, fontSize float64) string {
	maxChars := int(maxW / (fontSize * 0.6))
	if maxChars < 1 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= maxChars {
		return s
	}
	if maxChars <= 1 {
		return string(rs[:1])
	}
	return string(rs[:maxChars-1]) + "…"
}

func escape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
