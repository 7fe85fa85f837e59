package agent

import (
	"io"
	"net"
	"strings"
	"time"
)

// Dial opens the device named by cfg: tcp://host:port for a bridged serial
// port, anything else as a tty path.
func Dial(cfg *Config) (io.ReadWriteCloser, error) {
	if addr, ok := strings.CutPrefix(cfg.Device, "tcp://"); ok {
		return net.DialTimeout("tcp", addr, 5*time.Second)
	}
	return openTTY(cfg.Device, cfg.Baud)
}
