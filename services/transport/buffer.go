package transport

const (
	// BufferLen is the largest single write the adapter accepts and the size
	// of the inbound byte queue.
	BufferLen = 1024
	// QueueLen is the default number of outbound Buffers in flight.
	QueueLen = 2
	// PacketLen is the USB full-speed CDC bulk packet size.
	PacketLen = 64
)

// Buffer is one write request's payload. A Buffer is owned by exactly one
// holder at a time: the pool, an outbound queue slot, or the sender task.
type Buffer struct {
	data [BufferLen]byte
	used int
}

func (b *Buffer) fill(p []byte) { b.used = copy(b.data[:], p) }

// Bytes returns the used portion.
func (b *Buffer) Bytes() []byte { return b.data[:b.used] }

func (b *Buffer) Len() int { return b.used }
