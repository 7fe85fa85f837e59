//go:build !(rp2040 || rp2350)

package hw

import (
	"image/color"
	"sync"
)

// Host stand-ins, used by tests and host builds.

type FakePin struct {
	mu      sync.Mutex
	level   bool
	handler func()
}

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

func (p *FakePin) SetIRQ(_ Edge, h func()) error {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error { return p.SetIRQ(EdgeNone, nil) }

// Fire sets the level and invokes the handler as an interrupt would.
func (p *FakePin) Fire(level bool) {
	p.Set(level)
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h()
	}
}

func (p *FakePin) Armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler != nil
}

type FakeSensor struct {
	mu sync.Mutex
	V  float32
}

func (s *FakeSensor) Set(v float32) {
	s.mu.Lock()
	s.V = v
	s.mu.Unlock()
}

func (s *FakeSensor) ReadVoltage() (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.V, nil
}

type FakeStrip struct {
	mu     sync.Mutex
	N      int
	frames [][]color.RGBA
}

func (s *FakeStrip) Len() int { return s.N }

func (s *FakeStrip) WriteColors(c []color.RGBA) error {
	s.mu.Lock()
	s.frames = append(s.frames, append([]color.RGBA(nil), c...))
	s.mu.Unlock()
	return nil
}

// Frames returns every frame written so far.
func (s *FakeStrip) Frames() [][]color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]color.RGBA(nil), s.frames...)
}
