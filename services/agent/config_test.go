package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "eir-agent.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM0", cfg.Device)
	require.Equal(t, 115200, cfg.Baud)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, []string{"stderr"}, cfg.Log.Outputs)
	require.Empty(t, cfg.MQTT.Broker)

	o := cfg.AgentOptions()
	require.Equal(t, DefaultPoll, o.Poll)
	require.Equal(t, DefaultCallTimeout, o.CallTimeout)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	p := writeConfig(t, `
device: tcp://127.0.0.1:4000
poll_ms: 5
log:
  level: warn
  format: json
mqtt:
  broker: tcp://localhost:1883
  qos: 1
`)
	t.Setenv("EIR_AGENT_LOG_LEVEL", "debug")
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "tcp://127.0.0.1:4000", cfg.Device)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	require.Equal(t, 1, cfg.MQTT.QoS)
	require.Equal(t, 5*time.Millisecond, cfg.AgentOptions().Poll)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "log:\n  level: loud\n"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "mqtt:\n  qos: 3\n"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "baud: -1\n"))
	require.Error(t, err)
}

func TestSetupLoggerFileOutput(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "agent.log")
	log, err := SetupLogger(LogConfig{Level: "debug", Format: "json", Outputs: []string{p}})
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"hello"`)
}
