// Package msg defines the messages exchanged with the session peer and
// their protowire encodings.
package msg

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is a value that can cross the session.
// Only pointer types implement it; Reset clears the value before reuse.
type Message interface {
	Reset()
	TypeName() string
	Append(b []byte) []byte
	Unmarshal(b []byte) error
}

// Marshal encodes m into a fresh slice.
func Marshal(m Message) []byte { return m.Append(nil) }

// Unmarshal resets m and decodes b into it.
func Unmarshal(b []byte, m Message) error {
	m.Reset()
	return m.Unmarshal(b)
}

// fieldFn consumes the value of one field and returns the bytes used.
// Returning 0 skips the field as unknown.
type fieldFn func(num protowire.Number, typ protowire.Type, b []byte) int

func walk(b []byte, fn fieldFn) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, m interface{ Append([]byte) []byte }) []byte {
	return appendBytes(b, num, m.Append(nil))
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) int {
	var v uint64
	n := consumeVarint(typ, b, &v)
	if n > 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n
}

func consumeFloat(typ protowire.Type, b []byte, dst *float32) int {
	if typ != protowire.Fixed32Type {
		return 0
	}
	v, n := protowire.ConsumeFixed32(b)
	if n >= 0 {
		*dst = math.Float32frombits(v)
	}
	return n
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	var v []byte
	n := consumeBytes(typ, b, &v)
	if n > 0 {
		*dst = string(v)
	}
	return n
}

func consumeMessage(typ protowire.Type, b []byte, m Message) int {
	var v []byte
	n := consumeBytes(typ, b, &v)
	if n > 0 {
		if err := m.Unmarshal(v); err != nil {
			return -1
		}
	}
	return n
}

var registry = map[string]func() Message{
	"std_msgs/msg/Empty":           func() Message { return &Empty{} },
	"std_msgs/msg/Int32":           func() Message { return &Int32{} },
	"std_msgs/msg/Bool":            func() Message { return &Bool{} },
	"std_msgs/msg/ColorRGBA":       func() Message { return &ColorRGBA{} },
	"std_msgs/msg/Header":          func() Message { return &Header{} },
	"builtin_interfaces/msg/Time":  func() Message { return &Time{} },
	"sensor_msgs/msg/BatteryState": func() Message { return &BatteryState{} },
	SetBoolType + "_Request":       func() Message { return &SetBoolRequest{} },
	SetBoolType + "_Response":      func() Message { return &SetBoolResponse{} },
}

// New returns an empty message of the named type.
func New(typeName string) (Message, bool) {
	f, ok := registry[typeName]
	if !ok {
		return nil, false
	}
	return f(), true
}
