// Package sched hosts the two execution domains of the firmware.
//
// Interrupt-priority work (link pumps, sampling, debounce, LED driving) runs
// on an Executor created with PriorityInterrupt. Everything that touches the
// session engine runs in the baseline domain: a single Loop plus an Executor
// created with PriorityThread for publish and command tasks.
//
// Under the TinyGo task scheduler goroutines are cooperative, so priority is
// a relationship rather than a preemption guarantee: the Loop yields before
// every engine spin, and interrupt-domain tasks never call into the engine.
package sched

import (
	"context"
	"runtime"
	"sync"
	"time"

	"eir-go/errcode"
)

type Priority uint8

const (
	PriorityThread Priority = iota
	PriorityInterrupt
)

func (p Priority) String() string {
	if p == PriorityInterrupt {
		return "interrupt"
	}
	return "thread"
}

// Task is a long-lived unit of work. Returning nil means the task finished;
// returning an error while its context is live is fatal.
type Task func(ctx context.Context) error

// FatalHook is invoked by Fatal after logging. The default panics, which
// resets the MCU. Tests replace it.
var FatalHook = func(op string, err error) { panic(err) }

// Fatal reports an unrecoverable condition. It does not return unless
// FatalHook does.
func Fatal(op string, err error) {
	println("[sched] fatal:", op, err.Error())
	FatalHook(op, errcode.Wrap(errcode.Of(err), op, err))
}

// Yield hands the processor to any other runnable task.
func Yield() { runtime.Gosched() }

// Executor supervises tasks belonging to one domain.
type Executor struct {
	name string
	prio Priority
	ctx  context.Context
	wg   sync.WaitGroup
}

func NewExecutor(ctx context.Context, name string, prio Priority) *Executor {
	return &Executor{name: name, prio: prio, ctx: ctx}
}

func (e *Executor) Priority() Priority { return e.prio }

// Spawn starts t. A task error while the executor context is live goes to Fatal.
func (e *Executor) Spawn(name string, t Task) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := t(e.ctx)
		if err != nil && e.ctx.Err() == nil {
			Fatal(e.name+"/"+name, err)
		}
	}()
}

// Wait blocks until every spawned task has returned.
func (e *Executor) Wait() { e.wg.Wait() }

// Periodic returns a task that calls fn every period until ctx is done.
// An error from fn ends the task.
func Periodic(period time.Duration, fn func(ctx context.Context) error) Task {
	return func(ctx context.Context) error {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if err := fn(ctx); err != nil {
					return err
				}
			}
		}
	}
}
