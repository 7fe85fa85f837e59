//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"runtime"
	"time"

	"eir-go/bus"
	"eir-go/services/app"
	"eir-go/services/config"
	"eir-go/services/hw"
	"eir-go/services/transport"
)

// Select the embedded config at build time:
//
//	tinygo flash -target pico -ldflags "-X main.device=pico_subscriber" ./cmd/eir
var device = "eir"

func printTopicWith(prefix string, t bus.Topic) {
	println(prefix, t.String())
}

func main() {
	time.Sleep(500 * time.Millisecond)
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, device)

	println("[main] device", device)
	cfg, err := config.Load(device)
	if err != nil {
		println("[main] config:", err.Error())
		return
	}

	b := bus.NewBus(4)
	uiConn := b.NewConnection("ui")
	mon := uiConn.Subscribe(bus.T("link", "state"))
	go func() {
		for m := range mon.Channel() {
			printTopicWith("[monitor] <-", m.Topic)
		}
	}()

	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	board, ok := buildBoard(cfg)
	if !ok {
		println("[main] no link for", cfg.Link.Kind)
		return
	}

	go func() {
		for {
			time.Sleep(10 * time.Second)
			printMem()
		}
	}()

	println("[main] starting app, profile", cfg.Profile)
	if err := app.New(cfg, board, b).Run(ctx); err != nil {
		println("[main] app exited:", err.Error())
	}
}

func buildBoard(cfg config.Config) (app.Board, bool) {
	var board app.Board
	switch cfg.Link.Kind {
	case "uart":
		l, ok := transport.NewUARTLink(cfg.Link.UART, cfg.Link.Baud, machine.Pin(cfg.Link.TX), machine.Pin(cfg.Link.RX))
		if !ok {
			return board, false
		}
		board.Link = l
	default:
		board.Link = transport.NewUSBLink()
	}
	board.Status = hw.NewOutputPin(cfg.Heartbeat.Pin)
	if cfg.Profile == config.ProfileEir {
		board.Battery = hw.NewADCSensor(cfg.Battery.Pin, cfg.Battery.VRef)
		board.Button = hw.NewInputPin(cfg.Shutdown.Pin)
		board.Strip = hw.NewStrip(cfg.LED.Pin, cfg.LED.Count)
	}
	return board, true
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
