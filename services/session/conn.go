package session

import (
	"errors"
	"sync"
	"time"

	"eir-go/errcode"
	"eir-go/services/transport"
	"eir-go/x/timex"
)

// errStop ends a Poll early without reporting an error.
var errStop = errors.New("stop")

// Conn moves frames over a transport contract. Writes may come from any
// task; Poll must only be called from one.
type Conn struct {
	t   transport.Contract
	now func() timex.Instant
	dec decoder

	mu sync.Mutex
	tx []byte
}

func NewConn(t transport.Contract, now func() timex.Instant) *Conn {
	if now == nil {
		now = timex.Now
	}
	return &Conn{t: t, now: now, tx: make([]byte, 0, transport.BufferLen)}
}

// WriteFrame sends one frame with a single transport write.
func (c *Conn) WriteFrame(typ byte, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := AppendFrame(c.tx[:0], typ, payload)
	if err != nil {
		return err
	}
	c.tx = b
	_, err = c.t.Write(b)
	return err
}

// Poll reads and hands complete frames to fn until budget is spent or a
// read times out. fn may return errStop to end the poll. The first other
// error from fn or the decoder is returned once the poll ends.
func (c *Conn) Poll(budget time.Duration, fn func(Frame) error) (frames int, err error) {
	start := c.now()
	for {
		rem := budget - time.Duration(c.now()-start)
		if rem <= 0 {
			return frames, err
		}
		n, timedOut := c.t.Read(c.dec.space(), rem)
		c.dec.n += n

		f, ok, ferr := c.dec.frame()
		if ferr != nil && err == nil {
			err = ferr
		}
		if ok {
			frames++
			ferr = fn(f)
			c.dec.reset()
			if ferr == errStop {
				return frames, err
			}
			if ferr != nil && err == nil {
				err = ferr
			}
		}
		if timedOut {
			return frames, err
		}
	}
}

// BadFrames counts resynchronisations.
func (c *Conn) BadFrames() uint32 { return c.dec.bad }

func (c *Conn) Close() {
	_ = c.WriteFrame(FrameClose, nil)
	c.t.Close()
}

func isTransient(err error) bool { return err == nil || errcode.Transient(err) }
