package core

import "github.com/signalsfoundry/traffic-simulator/model"

// Intersection is a signalled grid cell. Exactly one axis holds the
// green light at any time; the opposing axis is red. The light flips
// every CycleLength ticks.
type Intersection struct {
	Position    model.Position
	CycleLength int

	greenAxis model.Axis
	timer     int
}

// NewIntersection places a signal at pos with the default north-south
// green phase.
func NewIntersection(pos model.Position, cycleLength int) *Intersection {
	return NewIntersectionWithPhase(pos, cycleLength, model.AxisNS)
}

// NewIntersectionWithPhase places a signal with an explicit initial
// green axis, which scenario files use to stagger lights. Inputs are
// normalized as a last-line guard; validation proper happens in config
// and scenario checks.
func NewIntersectionWithPhase(pos model.Position, cycleLength int, green model.Axis) *Intersection {
	if cycleLength < 1 {
		cycleLength = 1
	}
	if green != model.AxisEW {
		green = model.AxisNS
	}
	return &Intersection{
		Position:    pos,
		CycleLength: cycleLength,
		greenAxis:   green,
	}
}

// Advance moves the signal timer one tick forward and reports whether
// the light switched axes on this tick.
func (i *Intersection) Advance() bool {
	i.timer++
	if i.timer < i.CycleLength {
		return false
	}
	i.timer = 0
	if i.greenAxis == model.AxisNS {
		i.greenAxis = model.AxisEW
	} else {
		i.greenAxis = model.AxisNS
	}
	return true
}

// IsGreenFor reports whether a vehicle travelling along h may enter
// this cell. Headings outside the four cardinal values never get a
// green.
func (i *Intersection) IsGreenFor(h model.Heading) bool {
	axis := h.Axis()
	if axis == model.AxisUnknown {
		return false
	}
	return axis == i.greenAxis
}

// GreenAxis returns the axis currently holding the green light.
func (i *Intersection) GreenAxis() model.Axis {
	return i.greenAxis
}

// State reports the externally visible light state of both axes.
func (i *Intersection) State() (ns, ew model.LightState) {
	if i.greenAxis == model.AxisNS {
		return model.LightGreen, model.LightRed
	}
	return model.LightRed, model.LightGreen
}
