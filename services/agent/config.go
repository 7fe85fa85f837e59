package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the eir-agent configuration.
type Config struct {
	// Device is a tty path (/dev/ttyACM0) or tcp://host:port.
	Device string `mapstructure:"device"`
	// Baud applies to tty devices only.
	Baud int `mapstructure:"baud"`

	// PollMS bounds one read pass over the link.
	PollMS int `mapstructure:"poll_ms"`
	// CallTimeoutMS expires unanswered service calls.
	CallTimeoutMS int `mapstructure:"call_timeout_ms"`
	// WriteTimeoutMS bounds how long a frame waits for an outbound slot.
	WriteTimeoutMS int `mapstructure:"write_timeout_ms"`

	Log  LogConfig  `mapstructure:"log"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MQTTConfig enables forwarding when Broker is set.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Prefix   string `mapstructure:"prefix"`
	QoS      int    `mapstructure:"qos"`
}

func DefaultConfig() *Config {
	return &Config{
		Device:         "/dev/ttyACM0",
		Baud:           115200,
		PollMS:         int(DefaultPoll / time.Millisecond),
		CallTimeoutMS:  int(DefaultCallTimeout / time.Millisecond),
		WriteTimeoutMS: 50,
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stderr"},
			Development: true,
			Rotation: RotationConfig{
				Filename:   "logs/eir-agent.log",
				MaxSizeMB:  20,
				MaxBackups: 3,
				MaxAgeDays: 14,
				Compress:   true,
			},
		},
		MQTT: MQTTConfig{
			ClientID: "eir-agent",
			Prefix:   "eir",
		},
	}
}

// LoadConfig reads configuration from path (if non-empty), otherwise it
// searches ./eir-agent.yaml, ./configs and ~/.eir-agent. Environment
// variables use the prefix EIR_AGENT with "." and "-" replaced by "_",
// e.g. EIR_AGENT_LOG_LEVEL=debug.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("EIR_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("device", cfg.Device)
	v.SetDefault("baud", cfg.Baud)
	v.SetDefault("poll_ms", cfg.PollMS)
	v.SetDefault("call_timeout_ms", cfg.CallTimeoutMS)
	v.SetDefault("write_timeout_ms", cfg.WriteTimeoutMS)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("mqtt.broker", cfg.MQTT.Broker)
	v.SetDefault("mqtt.client_id", cfg.MQTT.ClientID)
	v.SetDefault("mqtt.prefix", cfg.MQTT.Prefix)
	v.SetDefault("mqtt.qos", cfg.MQTT.QoS)

	if path == "" {
		path = os.Getenv("EIR_AGENT_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("eir-agent")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".eir-agent"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	if strings.TrimSpace(c.Device) == "" {
		return errors.New("device is required")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud: %d", c.Baud)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt.qos: %d", c.MQTT.QoS)
	}
	if c.PollMS <= 0 {
		c.PollMS = int(DefaultPoll / time.Millisecond)
	}
	if c.CallTimeoutMS <= 0 {
		c.CallTimeoutMS = int(DefaultCallTimeout / time.Millisecond)
	}
	return nil
}

// AgentOptions maps the timing knobs onto Options.
func (c *Config) AgentOptions() Options {
	return Options{
		Poll:        time.Duration(c.PollMS) * time.Millisecond,
		CallTimeout: time.Duration(c.CallTimeoutMS) * time.Millisecond,
	}
}
