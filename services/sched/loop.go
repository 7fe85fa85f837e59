package sched

import (
	"context"
	"time"
)

const DefaultBudget = 100 * time.Millisecond

// Spinner is the engine's "process pending work once" entry point.
type Spinner interface {
	SpinSome(budget time.Duration) error
}

// Loop is the cooperative baseline loop: yield once, then let the engine
// spin for at most Budget. Spin errors are logged and the loop carries on.
type Loop struct {
	Engine Spinner
	Budget time.Duration
	Yield  func()

	iterations uint64
	errors     uint64
}

func (l *Loop) Run(ctx context.Context) error {
	budget := l.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	yield := l.Yield
	if yield == nil {
		yield = Yield
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		yield()
		if err := l.Engine.SpinSome(budget); err != nil {
			l.errors++
			// first failure, then every 64th
			if l.errors&63 == 1 {
				println("[sched] spin:", err.Error(), "count", l.errors)
			}
		}
		l.iterations++
	}
}

// Stats returns loop counters. Only meaningful from the loop's own goroutine
// or after Run has returned.
func (l *Loop) Stats() (iterations, errors uint64) { return l.iterations, l.errors }
