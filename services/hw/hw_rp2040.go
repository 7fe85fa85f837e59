//go:build rp2040 || rp2350

package hw

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"eir-go/x/mathx"
)

// ---- input pin with IRQ ----

type rp2Pin struct{ p machine.Pin }

// NewInputPin configures GPn as a pulled-up input.
func NewInputPin(n int) EdgePin {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return rp2Pin{p: p}
}

func (r rp2Pin) Get() bool { return r.p.Get() }

func (r rp2Pin) SetIRQ(edge Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e Edge) machine.PinChange {
	switch e {
	case EdgeRising:
		return machine.PinRising
	case EdgeFalling:
		return machine.PinFalling
	case EdgeBoth:
		return machine.PinToggle
	}
	var zero machine.PinChange
	return zero
}

// ---- output pin ----

type rp2Out struct{ p machine.Pin }

func NewOutputPin(n int) OutputPin {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return rp2Out{p: p}
}

func (r rp2Out) Set(level bool) { r.p.Set(level) }

// ---- ADC ----

type rp2ADC struct {
	adc  machine.ADC
	vref float32
}

// NewADCSensor samples GPn (26..29) against vref.
func NewADCSensor(n int, vref float32) VoltageSensor {
	machine.InitADC()
	a := machine.ADC{Pin: machine.Pin(n)}
	a.Configure(machine.ADCConfig{})
	return &rp2ADC{adc: a, vref: vref}
}

func (r *rp2ADC) ReadVoltage() (float32, error) {
	return mathx.Ratio(r.adc.Get(), r.vref), nil
}

// ---- ws2812 ----

type rp2Strip struct {
	dev ws2812.Device
	n   int
}

func NewStrip(pin, n int) Strip {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &rp2Strip{dev: ws2812.New(p), n: n}
}

func (s *rp2Strip) Len() int { return s.n }

func (s *rp2Strip) WriteColors(c []color.RGBA) error {
	return s.dev.WriteColors(c)
}
