// Package app wires the board, the two execution domains and the session
// engine together for one of the firmware profiles.
package app

import (
	"context"
	"image/color"
	"time"

	"eir-go/bus"
	"eir-go/errcode"
	"eir-go/services/config"
	"eir-go/services/heartbeat"
	"eir-go/services/hw"
	"eir-go/services/sched"
	"eir-go/services/session"
	"eir-go/services/state"
	"eir-go/services/transport"
	"eir-go/x/mailbox"
)

// Board is the hardware a profile may use. Profiles other than eir only
// need Link and Status.
type Board struct {
	Link    transport.Link
	Status  hw.OutputPin
	Battery hw.VoltageSensor
	Button  hw.EdgePin
	Strip   hw.Strip
}

type App struct {
	cfg   config.Config
	board Board
	conn  *bus.Connection

	state    *state.Shared
	adapter  *transport.Adapter
	engine   *session.Engine
	shutdown *mailbox.Mailbox[struct{}]
	led      *mailbox.Mailbox[color.RGBA]

	irq    *sched.Executor
	thread *sched.Executor
}

func New(cfg config.Config, board Board, b *bus.Bus) *App {
	return &App{
		cfg:      cfg,
		board:    board,
		conn:     b.NewConnection("app"),
		state:    state.New(),
		shutdown: mailbox.New[struct{}](),
		led:      mailbox.New[color.RGBA](),
		adapter: transport.NewAdapter(transport.Options{
			QueueLen:     cfg.Transport.QueueLen,
			WriteTimeout: ms(cfg.Transport.WriteTimeoutMS),
		}),
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Run starts both domains, waits for the peer and then drives the
// cooperative loop until ctx is done. Failing to find the peer is fatal.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.irq = sched.NewExecutor(ctx, "irq", sched.PriorityInterrupt)
	a.thread = sched.NewExecutor(ctx, "thread", sched.PriorityThread)
	defer a.thread.Wait()
	defer a.irq.Wait()
	defer cancel()

	heartbeat.PublishLinkState(a.conn, heartbeat.LevelConnecting, "starting", nil)
	if a.board.Status != nil {
		hb := &heartbeat.Service{LED: a.board.Status, Interval: ms(a.cfg.Heartbeat.Interval)}
		a.irq.Spawn("heartbeat", func(ctx context.Context) error { return hb.Run(ctx, a.conn) })
	}
	if err := transport.Spawn(ctx, a.irq, a.adapter, a.board.Link); err != nil {
		sched.Fatal("app.link", err)
		return err
	}
	if a.cfg.Profile == config.ProfileEir {
		a.spawnHardware()
	}

	if !sleep(ctx, ms(a.cfg.Session.StartDelayMS)) {
		return ctx.Err()
	}

	a.engine = session.NewEngine(a.adapter, session.Options{})
	println("[app] waiting for peer")
	if err := a.engine.WaitForPeer(ms(a.cfg.Session.PeerTimeoutMS), a.cfg.Session.PeerAttempts); err != nil {
		heartbeat.PublishLinkState(a.conn, heartbeat.LevelDown, "peer_not_found", err)
		sched.Fatal("app.wait_for_peer", err)
		return err
	}
	println("[app] peer found")
	heartbeat.PublishLinkState(a.conn, heartbeat.LevelUp, "peer_found", nil)

	node := a.engine.Node(a.cfg.Node.Name, a.cfg.Node.Namespace)
	if err := a.setupProfile(node); err != nil {
		sched.Fatal("app.setup", err)
		return err
	}

	loop := &sched.Loop{
		Engine: &watchedEngine{Engine: a.engine, conn: a.conn, up: true},
		Budget: ms(a.cfg.Session.SpinBudgetMS),
	}
	err := loop.Run(ctx)
	a.engine.Close()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (a *App) setupProfile(node *session.Node) error {
	switch a.cfg.Profile {
	case config.ProfileEir:
		return a.setupEir(node)
	case config.ProfileSubscriber:
		return a.setupSubscriber(node)
	case config.ProfileServiceServer:
		return a.setupServiceServer(node)
	case config.ProfileServiceClient:
		return a.setupServiceClient(node)
	}
	return errcode.Wrap(errcode.InvalidParams, "app.profile", nil)
}

// Stats exposes the transport counters.
func (a *App) Stats() transport.Stats { return a.adapter.Stats() }

// watchedEngine republishes link state when the peer goes away or comes back.
type watchedEngine struct {
	*session.Engine
	conn *bus.Connection
	up   bool
}

func (w *watchedEngine) SpinSome(budget time.Duration) error {
	err := w.Engine.SpinSome(budget)
	if up := w.PeerUp(); up != w.up {
		w.up = up
		if up {
			heartbeat.PublishLinkState(w.conn, heartbeat.LevelUp, "peer_back", nil)
		} else {
			heartbeat.PublishLinkState(w.conn, heartbeat.LevelDegraded, "peer_closed", nil)
		}
	}
	return err
}

func logPublish(topic string, err error) {
	if err != nil {
		println("[app] publish", topic, "failed:", err.Error())
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
