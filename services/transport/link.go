package transport

import (
	"context"
	"io"

	"eir-go/errcode"
	"eir-go/services/sched"
)

// PacketWriter writes one packet, blocking until the endpoint accepts it.
type PacketWriter interface {
	WritePacket(p []byte) error
}

// PacketReader blocks until at least one byte arrives and returns what is
// available, up to len(p).
type PacketReader interface {
	ReadPacket(ctx context.Context, p []byte) (int, error)
}

type Link interface {
	PacketWriter
	PacketReader
}

// Connector is implemented by links that must wait for the host side.
type Connector interface {
	WaitConnected(ctx context.Context) error
}

// SenderTask drains the outbound queue onto w. A write failure is returned
// as errcode.LinkDown.
func SenderTask(a *Adapter, w PacketWriter) sched.Task {
	return func(ctx context.Context) error {
		for {
			buf, err := a.out.Recv(ctx)
			if err != nil {
				return nil
			}
			err = w.WritePacket(buf.Bytes())
			a.release(buf)
			if err != nil {
				return errcode.Wrap(errcode.LinkDown, "transport.send", err)
			}
		}
	}
}

// ReceiverTask moves packets from r into the inbound byte queue, waiting
// while the queue is full.
func ReceiverTask(a *Adapter, r PacketReader) sched.Task {
	return func(ctx context.Context) error {
		var buf [BufferLen]byte
		for {
			n, err := r.ReadPacket(ctx, buf[:])
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errcode.Wrap(errcode.LinkDown, "transport.recv", err)
			}
			if _, err := a.in.WriteFrom(ctx, buf[:n]); err != nil {
				return nil
			}
		}
	}
}

// Spawn waits for the link to connect, if it needs to, and starts both
// link tasks on ex.
func Spawn(ctx context.Context, ex *sched.Executor, a *Adapter, l Link) error {
	if c, ok := l.(Connector); ok {
		println("[transport] waiting for link")
		if err := c.WaitConnected(ctx); err != nil {
			return errcode.Wrap(errcode.LinkDown, "transport.connect", err)
		}
		println("[transport] link up")
	}
	ex.Spawn("sender", SenderTask(a, l))
	ex.Spawn("receiver", ReceiverTask(a, l))
	return nil
}

// StreamLink adapts any byte stream (pipe, socket, tty) to a Link.
type StreamLink struct {
	RW io.ReadWriter
}

func (s StreamLink) WritePacket(p []byte) error {
	for len(p) > 0 {
		n, err := s.RW.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (s StreamLink) ReadPacket(ctx context.Context, p []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := s.RW.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
	}
}
