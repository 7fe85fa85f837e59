package hw

import (
	"context"
	"sync/atomic"
	"time"
)

// Event is a debounced edge.
type Event struct {
	Level bool // after inversion
	Edge  Edge
	At    time.Time
}

// Debouncer turns raw pin interrupts into debounced edge events. The ISR
// side only samples the pin and does a non-blocking enqueue; Run applies
// the debounce window and calls OnEdge.
type Debouncer struct {
	pin    EdgePin
	edge   Edge
	window time.Duration
	invert bool

	isrQ chan bool
	// OnEdge runs on the Run goroutine and must not block.
	OnEdge func(Event)

	lastLevel bool
	lastEvent time.Time
	drops     atomic.Uint32
}

func NewDebouncer(pin EdgePin, edge Edge, window time.Duration, invert bool) *Debouncer {
	return &Debouncer{
		pin:    pin,
		edge:   edge,
		window: window,
		invert: invert,
		isrQ:   make(chan bool, 8),
	}
}

// Run arms the interrupt and processes events until ctx is done.
func (d *Debouncer) Run(ctx context.Context) error {
	if d.edge == EdgeNone {
		<-ctx.Done()
		return nil
	}
	// initial logical snapshot so edges compare like for like
	d.lastLevel = d.pin.Get() != d.invert

	if err := d.pin.SetIRQ(d.edge, d.isr); err != nil {
		return err
	}
	defer d.pin.ClearIRQ()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw := <-d.isrQ:
			d.handle(raw, time.Now())
		}
	}
}

// isr samples the pin and enqueues without blocking.
func (d *Debouncer) isr() {
	select {
	case d.isrQ <- d.pin.Get():
	default:
		d.drops.Add(1)
	}
}

func (d *Debouncer) handle(raw bool, now time.Time) {
	level := raw != d.invert

	if !d.lastEvent.IsZero() && now.Sub(d.lastEvent) < d.window {
		return
	}

	var e Edge
	if d.edge == EdgeBoth {
		switch {
		case !d.lastLevel && level:
			e = EdgeRising
		case d.lastLevel && !level:
			e = EdgeFalling
		}
	} else {
		// only the configured edge interrupts
		e = d.edge
	}

	if e != EdgeNone && d.OnEdge != nil {
		d.OnEdge(Event{Level: level, Edge: e, At: now})
	}
	d.lastLevel = level
	d.lastEvent = now
}

// ISRDrops counts interrupts lost because the queue was full.
func (d *Debouncer) ISRDrops() uint32 { return d.drops.Load() }
