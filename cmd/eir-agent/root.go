package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eir-go/bus"
	"eir-go/services/agent"
	"eir-go/services/sched"
	"eir-go/services/transport"
)

var (
	cfgFile    string
	deviceFlag string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "eir-agent",
	Short: "Host peer for eir firmware",
	Long: `eir-agent speaks the framed serial session with an eir board over a
tty or a TCP serial bridge. It answers the board's pings, records the
entities it declares, logs its publications and can forward them to MQTT.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./eir-agent.yaml)")
	rootCmd.PersistentFlags().StringVarP(&deviceFlag, "device", "d", "", "tty path or tcp://host:port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
}

func loadConfig() (*agent.Config, error) {
	cfg, err := agent.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if deviceFlag != "" {
		cfg.Device = deviceFlag
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// session is a running agent and the bus it publishes on.
type session struct {
	bus   *bus.Bus
	agent *agent.Agent
	ex    *sched.Executor
	rw    io.ReadWriteCloser
}

// start opens the device, spawns the link tasks and the agent, and the MQTT
// forwarder when a broker is configured. A link failure cancels ctx.
func start(ctx context.Context, cancel context.CancelFunc, cfg *agent.Config, log *zap.Logger) (*session, error) {
	sched.FatalHook = func(op string, err error) {
		log.Error("fatal", zap.String("op", op), zap.Error(err))
		cancel()
	}

	rw, err := agent.Dial(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("device open", zap.String("device", cfg.Device))
	go func() {
		<-ctx.Done()
		_ = rw.Close()
	}()

	ad := transport.NewAdapter(transport.Options{
		WriteTimeout: time.Duration(cfg.WriteTimeoutMS) * time.Millisecond,
		Yield:        func() { time.Sleep(time.Millisecond) },
	})
	ex := sched.NewExecutor(ctx, "link", sched.PriorityInterrupt)
	if err := transport.Spawn(ctx, ex, ad, transport.StreamLink{RW: rw}); err != nil {
		return nil, err
	}

	b := bus.NewBus(32)
	opts := cfg.AgentOptions()
	opts.Logger = log
	s := &session{bus: b, agent: agent.New(ad, b.NewConnection("agent"), opts), ex: ex, rw: rw}

	ex.Spawn("agent", s.agent.Run)
	if cfg.MQTT.Broker != "" {
		fw := agent.NewForwarder(cfg.MQTT, b.NewConnection("mqtt"), s.agent, log)
		ex.Spawn("mqtt", fw.Run)
		log.Info("mqtt forwarding", zap.String("broker", cfg.MQTT.Broker), zap.String("prefix", cfg.MQTT.Prefix))
	}
	return s, nil
}

// logEvents writes every device/# message to log until ctx is done.
func logEvents(ctx context.Context, b *bus.Bus, log *zap.Logger) {
	conn := b.NewConnection("log")
	sub := conn.Subscribe(bus.T("device", "#"))
	defer conn.Disconnect()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-sub.Channel():
			if !ok {
				return
			}
			log.Info("event", zap.Stringer("topic", m.Topic), zap.Any("payload", m.Payload))
		}
	}
}
