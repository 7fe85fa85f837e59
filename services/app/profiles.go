package app

import (
	"context"
	"image/color"

	"eir-go/services/hw"
	"eir-go/services/msg"
	"eir-go/services/sched"
	"eir-go/services/session"
	"eir-go/services/state"
	"eir-go/x/mathx"
	"eir-go/x/timex"
)

// ---- eir: interrupt-domain hardware tasks ----

func (a *App) spawnHardware() {
	if s := a.board.Battery; s != nil {
		a.irq.Spawn("battery_sample", sched.Periodic(ms(a.cfg.Battery.SampleMS), func(context.Context) error {
			v, err := s.ReadVoltage()
			if err != nil {
				v = 0
			}
			a.state.Battery.Set(state.Battery{Voltage: v}, timex.Now())
			return nil
		}))
	}

	if p := a.board.Button; p != nil {
		d := hw.NewDebouncer(p, hw.EdgeFalling, ms(a.cfg.Shutdown.DebounceMS), false)
		d.OnEdge = func(hw.Event) { a.shutdown.Send(struct{}{}) }
		a.irq.Spawn("shutdown_button", d.Run)
	}

	if s := a.board.Strip; s != nil {
		a.irq.Spawn("smartled", a.stripTask(s))
	}
}

// stripTask writes each commanded colour to the first pixel.
func (a *App) stripTask(s hw.Strip) sched.Task {
	return func(ctx context.Context) error {
		n := s.Len()
		if n < 1 {
			n = 1
		}
		frame := make([]color.RGBA, n)
		for {
			c, err := a.led.Receive(ctx)
			if err != nil {
				return nil
			}
			frame[0] = c
			if err := s.WriteColors(frame); err != nil {
				println("[app] strip write failed:", err.Error())
			}
		}
	}
}

// ---- eir: baseline entities and publishers ----

func (a *App) setupEir(node *session.Node) error {
	t := a.cfg.Topics

	battery, err := node.Publisher(t.Battery, &msg.BatteryState{})
	if err != nil {
		return err
	}
	a.thread.Spawn("battery_publisher", sched.Periodic(ms(a.cfg.Battery.PublishMS), func(context.Context) error {
		snap := a.state.Battery.Get()
		m := &msg.BatteryState{
			Header:  msg.Header{Stamp: msg.StampOf(snap.At), FrameID: t.Battery},
			Voltage: snap.Value.Voltage,
			Present: true,
		}
		logPublish(t.Battery, battery.Publish(m))
		return nil
	}))

	shutdown, err := node.Publisher(t.Shutdown, &msg.Empty{})
	if err != nil {
		return err
	}
	a.thread.Spawn("shutdown_publisher", func(ctx context.Context) error {
		m := &msg.Empty{}
		for {
			if _, err := a.shutdown.Receive(ctx); err != nil {
				return nil
			}
			println("[app] shutdown requested")
			logPublish(t.Shutdown, shutdown.Publish(m))
		}
	})

	_, err = node.Subscribe(t.LED, &msg.ColorRGBA{}, func(m msg.Message) {
		c := m.(*msg.ColorRGBA)
		a.led.Send(color.RGBA{
			R: mathx.UnitToU8(c.R),
			G: mathx.UnitToU8(c.G),
			B: mathx.UnitToU8(c.B),
			A: mathx.UnitToU8(c.A),
		})
	})
	return err
}

// ---- demo profiles ----

func (a *App) setupSubscriber(node *session.Node) error {
	_, err := node.Subscribe(a.cfg.Topics.Subscriber, &msg.Int32{}, func(m msg.Message) {
		println("[app] received:", m.(*msg.Int32).Data)
	})
	return err
}

func (a *App) setupServiceServer(node *session.Node) error {
	_, err := node.Service(a.cfg.Topics.Service, &msg.SetBoolRequest{}, &msg.SetBoolResponse{},
		func(req, resp msg.Message) {
			println("[app] service request:", req.(*msg.SetBoolRequest).Data)
			resp.(*msg.SetBoolResponse).Success = true
		})
	return err
}

func (a *App) setupServiceClient(node *session.Node) error {
	cl, err := node.Client(a.cfg.Topics.Client, &msg.SetBoolResponse{}, func(seq int64, m msg.Message) {
		println("[app] received response:", seq, m.(*msg.SetBoolResponse).Success)
	})
	if err != nil {
		return err
	}
	req := &msg.SetBoolRequest{}
	a.thread.Spawn("service_client", sched.Periodic(ms(1000), func(context.Context) error {
		if _, err := cl.Send(req); err != nil {
			println("[app] request failed:", err.Error())
			return nil
		}
		println("[app] req sent")
		req.Data = !req.Data
		return nil
	}))
	return nil
}
