// Package hw is the hardware surface the application drives: one voltage
// sensor, one edge-triggered input, one smart LED strip and one plain
// output pin.
package hw

import "image/color"

type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	}
	return "none"
}

// VoltageSensor returns one sample in volts.
type VoltageSensor interface {
	ReadVoltage() (float32, error)
}

// EdgePin is an input that can call a handler from interrupt context.
// The handler must not block.
type EdgePin interface {
	Get() bool
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

type OutputPin interface {
	Set(level bool)
}

// Strip is an addressable LED chain.
type Strip interface {
	Len() int
	WriteColors(c []color.RGBA) error
}
