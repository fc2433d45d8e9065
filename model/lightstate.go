package model

// LightState is the externally visible state of one axis of a traffic
// light, as reported in snapshots and over the wire.
type LightState string

const (
	LightGreen LightState = "green"
	LightRed   LightState = "red"
)
