package session

import (
	"eir-go/errcode"
	"eir-go/services/transport"

	"google.golang.org/protobuf/encoding/protowire"
)

// Frame layout: [type u8][len u16 BE][payload].
const (
	FramePing   byte = 0x01
	FramePong   byte = 0x02
	FrameCreate byte = 0x03
	FrameSync   byte = 0x04 // peer asks for every CREATE to be replayed
	FramePub    byte = 0x10
	FrameReq    byte = 0x14
	FrameResp   byte = 0x15
	FrameClose  byte = 0x7f

	headerLen = 3
	// MaxPayload keeps every frame inside one transport write.
	MaxPayload = transport.BufferLen - headerLen
)

// Frame is a decoded frame. Payload aliases the decoder's buffer and is only
// valid until the next read.
type Frame struct {
	Type    byte
	Payload []byte
}

// AppendFrame appends a framed payload to b.
func AppendFrame(b []byte, typ byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return b, errcode.TooLarge
	}
	b = append(b, typ, byte(len(payload)>>8), byte(len(payload)))
	return append(b, payload...), nil
}

// decoder accumulates exactly one frame. need reports how many more bytes
// complete it, so reads never run past a frame boundary and a partial frame
// survives between polls.
type decoder struct {
	buf [transport.BufferLen]byte
	n   int
	bad uint32
}

func (d *decoder) payloadLen() int { return int(d.buf[1])<<8 | int(d.buf[2]) }

func (d *decoder) need() int {
	if d.n < headerLen {
		return headerLen - d.n
	}
	return headerLen + d.payloadLen() - d.n
}

func (d *decoder) space() []byte { return d.buf[d.n : d.n+d.need()] }

// frame returns the completed frame, if any. An impossible length drops one
// byte so the stream can resynchronise.
func (d *decoder) frame() (Frame, bool, error) {
	if d.n < headerLen {
		return Frame{}, false, nil
	}
	if d.payloadLen() > MaxPayload {
		d.bad++
		copy(d.buf[:], d.buf[1:d.n])
		d.n--
		return Frame{}, false, errcode.BadFrame
	}
	if d.need() > 0 {
		return Frame{}, false, nil
	}
	return Frame{Type: d.buf[0], Payload: d.buf[headerLen:d.n]}, true, nil
}

func (d *decoder) reset() { d.n = 0 }

// -----------------------------------------------------------------------------
// Payloads
// -----------------------------------------------------------------------------

type Kind uint8

const (
	KindPublisher Kind = iota + 1
	KindSubscription
	KindService
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindPublisher:
		return "publisher"
	case KindSubscription:
		return "subscription"
	case KindService:
		return "service"
	case KindClient:
		return "client"
	}
	return "unknown"
}

// Create declares an entity to the peer.
type Create struct {
	Kind Kind
	ID   uint32
	Node string
	Name string
	Type string
}

func (c Create) Append(b []byte) []byte {
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Kind))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.ID))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, c.Node)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendString(b, c.Name)
	b = protowire.AppendTag(b, 5, protowire.BytesType)
	return protowire.AppendString(b, c.Type)
}

func (c *Create) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, v uint64, s []byte) {
		switch num {
		case 1:
			c.Kind = Kind(v)
		case 2:
			c.ID = uint32(v)
		case 3:
			c.Node = string(s)
		case 4:
			c.Name = string(s)
		case 5:
			c.Type = string(s)
		}
	})
}

// Data carries a publication (Seq unused) or a request/response.
type Data struct {
	ID   uint32
	Seq  int64
	Body []byte
}

func (d Data) Append(b []byte) []byte {
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.ID))
	if d.Seq != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.Seq))
	}
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	return protowire.AppendBytes(b, d.Body)
}

// Unmarshal decodes into d. Body aliases b.
func (d *Data) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, v uint64, s []byte) {
		switch num {
		case 1:
			d.ID = uint32(v)
		case 2:
			d.Seq = int64(v)
		case 3:
			d.Body = s
		}
	})
}

func appendNonce(b []byte, n uint32) []byte {
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(n))
}

func parseNonce(b []byte) uint32 {
	var n uint32
	_ = walk(b, func(num protowire.Number, v uint64, _ []byte) {
		if num == 1 {
			n = uint32(v)
		}
	})
	return n
}

// walk visits varint and bytes fields; other wire types are skipped.
func walk(b []byte, fn func(num protowire.Number, v uint64, s []byte)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errcode.Wrap(errcode.BadFrame, "session.decode", protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return errcode.Wrap(errcode.BadFrame, "session.decode", protowire.ParseError(m))
			}
			fn(num, v, nil)
			n = m
		case protowire.BytesType:
			s, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return errcode.Wrap(errcode.BadFrame, "session.decode", protowire.ParseError(m))
			}
			fn(num, 0, s)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return errcode.Wrap(errcode.BadFrame, "session.decode", protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}
