//go:build rp2040 || rp2350

package transport

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx"
)

// ---- USB CDC ----

// USBLink drives the board's USB CDC serial port.
type USBLink struct {
	s machine.Serialer
}

func NewUSBLink() *USBLink { return &USBLink{s: machine.Serial} }

func (l *USBLink) WaitConnected(ctx context.Context) error {
	for !l.s.DTR() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

func (l *USBLink) WritePacket(p []byte) error {
	for len(p) > 0 {
		n := len(p)
		if n > PacketLen {
			n = PacketLen
		}
		w, err := l.s.Write(p[:n])
		if err != nil {
			return err
		}
		p = p[w:]
	}
	return nil
}

func (l *USBLink) ReadPacket(ctx context.Context, p []byte) (int, error) {
	for l.s.Buffered() == 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		time.Sleep(time.Millisecond)
	}
	n := 0
	for n < len(p) && n < PacketLen && l.s.Buffered() > 0 {
		b, err := l.s.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}

// ---- UART ----

// UARTLink drives an IRQ-backed UART.
type UARTLink struct {
	u *uartx.UART
}

// NewUARTLink configures uart0 or uart1 on the given pins.
func NewUARTLink(id string, baud uint32, tx, rx machine.Pin) (*UARTLink, bool) {
	var hw *uartx.UART
	switch id {
	case "uart0":
		hw = uartx.UART0
	case "uart1":
		hw = uartx.UART1
	default:
		return nil, false
	}
	// zero values fall back to uartx defaults
	_ = hw.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       tx,
		RX:       rx,
	})
	return &UARTLink{u: hw}, true
}

func (l *UARTLink) WritePacket(p []byte) error {
	for len(p) > 0 {
		n, err := l.u.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (l *UARTLink) ReadPacket(ctx context.Context, p []byte) (int, error) {
	return l.u.RecvSomeContext(ctx, p)
}
