package model

import (
	"fmt"
	"strings"
)

// Axis groups the two headings that share right of way at a signalled
// intersection.
type Axis int

const (
	AxisUnknown Axis = iota // Default/unset
	AxisNS                  // north-south travel
	AxisEW                  // east-west travel
)

func (a Axis) String() string {
	switch a {
	case AxisNS:
		return "ns"
	case AxisEW:
		return "ew"
	default:
		return "unknown"
	}
}

// Heading is a cardinal direction of travel on the grid.
type Heading int

const (
	HeadingUnknown Heading = iota // Default/unset
	HeadingNorth
	HeadingSouth
	HeadingEast
	HeadingWest
)

// Headings lists the four valid directions of travel, in the fixed
// north, south, east, west order used throughout the engine.
var Headings = [4]Heading{HeadingNorth, HeadingSouth, HeadingEast, HeadingWest}

// Delta returns the one-cell offset a vehicle with this heading covers
// per tick. Y grows southward, so north is (0, -1). Unknown headings
// yield a zero offset.
func (h Heading) Delta() (dx, dy int) {
	switch h {
	case HeadingNorth:
		return 0, -1
	case HeadingSouth:
		return 0, 1
	case HeadingEast:
		return 1, 0
	case HeadingWest:
		return -1, 0
	default:
		return 0, 0
	}
}

// Axis returns the axis this heading travels along, AxisUnknown for
// anything outside the four cardinal values.
func (h Heading) Axis() Axis {
	switch h {
	case HeadingNorth, HeadingSouth:
		return AxisNS
	case HeadingEast, HeadingWest:
		return AxisEW
	default:
		return AxisUnknown
	}
}

func (h Heading) String() string {
	switch h {
	case HeadingNorth:
		return "N"
	case HeadingSouth:
		return "S"
	case HeadingEast:
		return "E"
	case HeadingWest:
		return "W"
	default:
		return "unknown"
	}
}

// ParseHeading maps a scenario/wire string to a Heading. Single-letter
// and full names are accepted, case-insensitively.
func ParseHeading(s string) (Heading, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "north":
		return HeadingNorth, nil
	case "s", "south":
		return HeadingSouth, nil
	case "e", "east":
		return HeadingEast, nil
	case "w", "west":
		return HeadingWest, nil
	default:
		return HeadingUnknown, fmt.Errorf("unknown heading %q", s)
	}
}

// MarshalText lets headings appear in JSON as their letter form.
func (h Heading) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via ParseHeading.
func (h *Heading) UnmarshalText(text []byte) error {
	parsed, err := ParseHeading(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HeadingBetween returns the heading that moves from one cell to an
// adjacent one. ok is false when the cells are not exactly one
// cardinal step apart.
func HeadingBetween(from, to Position) (Heading, bool) {
	dx, dy := to.X-from.X, to.Y-from.Y
	switch {
	case dx == 0 && dy == -1:
		return HeadingNorth, true
	case dx == 0 && dy == 1:
		return HeadingSouth, true
	case dx == 1 && dy == 0:
		return HeadingEast, true
	case dx == -1 && dy == 0:
		return HeadingWest, true
	default:
		return HeadingUnknown, false
	}
}
