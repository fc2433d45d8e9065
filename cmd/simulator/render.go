package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/traffic-simulator/core"
	"github.com/signalsfoundry/traffic-simulator/model"
)

// Grid glyphs. A vehicle covers whatever cell it stands on, including
// a signal cell it is crossing.
const (
	glyphEmpty   = byte('.')
	glyphVehicle = byte('C')
	glyphNSGreen = byte('+')
	glyphEWGreen = byte('x')
)

// renderGrid draws a snapshot as an ASCII grid, one row per line with y
// growing downward, preceded by the tick number.
func renderGrid(snap core.Snapshot) string {
	rows := make([][]byte, snap.GridSize)
	for y := range rows {
		row := make([]byte, snap.GridSize)
		for x := range row {
			row[x] = glyphEmpty
		}
		rows[y] = row
	}

	for _, is := range snap.Intersections {
		if !is.Position.InBounds(snap.GridSize) {
			continue
		}
		glyph := glyphNSGreen
		if is.EW == model.LightGreen {
			glyph = glyphEWGreen
		}
		rows[is.Position.Y][is.Position.X] = glyph
	}
	for _, vs := range snap.Vehicles {
		if !vs.Position.InBounds(snap.GridSize) {
			continue
		}
		rows[vs.Position.Y][vs.Position.X] = glyphVehicle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "t=%d\n", snap.TimeStep)
	for _, row := range rows {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

// newRenderer maps a -render flag value to a per-snapshot emit
// function. The clear flag redraws in place using ANSI escapes, which
// only makes sense when ticks are paced.
func newRenderer(mode string, w io.Writer, clear bool) (func(core.Snapshot), error) {
	switch mode {
	case "grid":
		return func(snap core.Snapshot) {
			if clear {
				fmt.Fprint(w, "\033[H\033[2J")
			}
			fmt.Fprint(w, renderGrid(snap))
		}, nil
	case "json":
		enc := json.NewEncoder(w)
		return func(snap core.Snapshot) {
			_ = enc.Encode(snap)
		}, nil
	case "none":
		return func(core.Snapshot) {}, nil
	default:
		return nil, fmt.Errorf("unknown render mode %q (want grid, json, or none)", mode)
	}
}
