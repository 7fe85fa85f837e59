package config

import (
	"context"
	"encoding/json"
	"errors"

	"eir-go/bus"
	"eir-go/errcode"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Typed configuration
// -----------------------------------------------------------------------------

const (
	ProfileEir           = "eir"
	ProfileSubscriber    = "subscriber"
	ProfileServiceServer = "service_server"
	ProfileServiceClient = "service_client"
)

type Config struct {
	Profile   string          `json:"profile"`
	Node      NodeConfig      `json:"node"`
	Link      LinkConfig      `json:"link"`
	Transport TransportConfig `json:"transport"`
	Session   SessionConfig   `json:"session"`
	Battery   BatteryConfig   `json:"battery"`
	Shutdown  ShutdownConfig  `json:"shutdown"`
	LED       LEDConfig       `json:"led"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
	Topics    TopicsConfig    `json:"topics"`
}

type NodeConfig struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

type LinkConfig struct {
	Kind string `json:"kind"` // "usb" or "uart"
	UART string `json:"uart,omitempty"`
	Baud uint32 `json:"baud,omitempty"`
	TX   int    `json:"tx_pin,omitempty"`
	RX   int    `json:"rx_pin,omitempty"`
}

type TransportConfig struct {
	QueueLen       int `json:"queue_len"`
	WriteTimeoutMS int `json:"write_timeout_ms"`
}

type SessionConfig struct {
	SpinBudgetMS  int `json:"spin_budget_ms"`
	PeerTimeoutMS int `json:"peer_timeout_ms"`
	PeerAttempts  int `json:"peer_attempts"`
	StartDelayMS  int `json:"start_delay_ms"`
}

type BatteryConfig struct {
	Pin       int     `json:"pin"`
	VRef      float32 `json:"vref"`
	SampleMS  int     `json:"sample_ms"`
	PublishMS int     `json:"publish_ms"`
}

type ShutdownConfig struct {
	Pin        int `json:"pin"`
	DebounceMS int `json:"debounce_ms"`
}

type LEDConfig struct {
	Pin   int `json:"pin"`
	Count int `json:"count"`
}

type HeartbeatConfig struct {
	Pin      int `json:"pin"`
	Interval int `json:"interval_ms"`
}

type TopicsConfig struct {
	Battery    string `json:"battery"`
	Shutdown   string `json:"shutdown"`
	LED        string `json:"led"`
	Subscriber string `json:"subscriber"`
	Service    string `json:"service"`
	Client     string `json:"client"`
}

// Default is the eir board layout.
func Default() Config {
	return Config{
		Profile:   ProfileEir,
		Node:      NodeConfig{Name: "hati_eir_node", Namespace: "hati"},
		Link:      LinkConfig{Kind: "usb"},
		Transport: TransportConfig{QueueLen: 2, WriteTimeoutMS: 50},
		Session:   SessionConfig{SpinBudgetMS: 100, PeerTimeoutMS: 1000, PeerAttempts: 10, StartDelayMS: 1000},
		Battery:   BatteryConfig{Pin: 26, VRef: 3.3, SampleMS: 100, PublishMS: 1000},
		Shutdown:  ShutdownConfig{Pin: 18, DebounceMS: 100},
		LED:       LEDConfig{Pin: 25, Count: 5},
		Heartbeat: HeartbeatConfig{Pin: 20, Interval: 300},
		Topics: TopicsConfig{
			Battery:    "battery",
			Shutdown:   "cmd_shutdown",
			LED:        "led",
			Subscriber: "pico_subscriber",
			Service:    "pico_srv",
			Client:     "pico_client",
		},
	}
}

// Load decodes the embedded document for device over Default.
func Load(device string) (Config, error) {
	cfg := Default()
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return cfg, errcode.Wrap(errcode.InvalidParams, "config.load", errors.New("no embedded config for device: "+device))
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, errcode.Wrap(errcode.InvalidPayload, "config.load", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Profile {
	case ProfileEir, ProfileSubscriber, ProfileServiceServer, ProfileServiceClient:
	default:
		return errcode.Wrap(errcode.InvalidParams, "config.validate", errors.New("unknown profile: "+c.Profile))
	}
	switch c.Link.Kind {
	case "usb", "uart":
	default:
		return errcode.Wrap(errcode.InvalidParams, "config.validate", errors.New("unknown link kind: "+c.Link.Kind))
	}
	if c.Transport.QueueLen <= 0 || c.Session.PeerAttempts <= 0 {
		return errcode.Wrap(errcode.InvalidParams, "config.validate", errors.New("queue_len and peer_attempts must be positive"))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig reads the device config from embedded data and publishes
// each top-level key as a retained message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.New("embedded config is not a JSON object")
	}

	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config] publish failed:", err.Error())
		}
	}()
}
