package msg

import (
	"eir-go/x/timex"

	"google.golang.org/protobuf/encoding/protowire"
)

// ---- std_msgs ----

type Empty struct{}

func (*Empty) Reset()                {}
func (Empty) TypeName() string       { return "std_msgs/msg/Empty" }
func (Empty) Append(b []byte) []byte { return b }
func (*Empty) Unmarshal(b []byte) error {
	return walk(b, func(protowire.Number, protowire.Type, []byte) int { return 0 })
}

type Int32 struct {
	Data int32
}

func (m *Int32) Reset()        { *m = Int32{} }
func (Int32) TypeName() string { return "std_msgs/msg/Int32" }
func (m Int32) Append(b []byte) []byte {
	return appendVarint(b, 1, uint64(int64(m.Data)))
}
func (m *Int32) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num != 1 {
			return 0
		}
		var v uint64
		n := consumeVarint(typ, b, &v)
		m.Data = int32(v)
		return n
	})
}

type Bool struct {
	Data bool
}

func (m *Bool) Reset()                { *m = Bool{} }
func (Bool) TypeName() string         { return "std_msgs/msg/Bool" }
func (m Bool) Append(b []byte) []byte { return appendBool(b, 1, m.Data) }
func (m *Bool) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num != 1 {
			return 0
		}
		return consumeBool(typ, b, &m.Data)
	})
}

// ColorRGBA carries each channel as a [0,1] intensity.
type ColorRGBA struct {
	R, G, B, A float32
}

func (m *ColorRGBA) Reset()        { *m = ColorRGBA{} }
func (ColorRGBA) TypeName() string { return "std_msgs/msg/ColorRGBA" }
func (m ColorRGBA) Append(b []byte) []byte {
	b = appendFloat(b, 1, m.R)
	b = appendFloat(b, 2, m.G)
	b = appendFloat(b, 3, m.B)
	return appendFloat(b, 4, m.A)
}
func (m *ColorRGBA) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeFloat(typ, b, &m.R)
		case 2:
			return consumeFloat(typ, b, &m.G)
		case 3:
			return consumeFloat(typ, b, &m.B)
		case 4:
			return consumeFloat(typ, b, &m.A)
		}
		return 0
	})
}

// ---- builtin_interfaces / std_msgs/Header ----

type Time struct {
	Sec     int32
	Nanosec uint32
}

// StampOf converts a boot-relative instant.
func StampOf(i timex.Instant) Time {
	sec, ns := i.Stamp()
	return Time{Sec: sec, Nanosec: ns}
}

func (m *Time) Reset()        { *m = Time{} }
func (Time) TypeName() string { return "builtin_interfaces/msg/Time" }
func (m Time) Append(b []byte) []byte {
	b = appendVarint(b, 1, uint64(int64(m.Sec)))
	return appendVarint(b, 2, uint64(m.Nanosec))
}
func (m *Time) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		var v uint64
		var n int
		switch num {
		case 1:
			n = consumeVarint(typ, b, &v)
			m.Sec = int32(v)
		case 2:
			n = consumeVarint(typ, b, &v)
			m.Nanosec = uint32(v)
		}
		return n
	})
}

type Header struct {
	Stamp   Time
	FrameID string
}

func (m *Header) Reset()        { *m = Header{} }
func (Header) TypeName() string { return "std_msgs/msg/Header" }
func (m Header) Append(b []byte) []byte {
	b = appendMessage(b, 1, m.Stamp)
	return appendString(b, 2, m.FrameID)
}
func (m *Header) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeMessage(typ, b, &m.Stamp)
		case 2:
			return consumeString(typ, b, &m.FrameID)
		}
		return 0
	})
}

// ---- sensor_msgs ----

// BatteryState carries the subset of fields the device fills in.
type BatteryState struct {
	Header     Header
	Voltage    float32
	Percentage float32
	Present    bool
}

func (m *BatteryState) Reset()        { *m = BatteryState{} }
func (BatteryState) TypeName() string { return "sensor_msgs/msg/BatteryState" }
func (m BatteryState) Append(b []byte) []byte {
	b = appendMessage(b, 1, m.Header)
	b = appendFloat(b, 2, m.Voltage)
	b = appendFloat(b, 3, m.Percentage)
	return appendBool(b, 4, m.Present)
}
func (m *BatteryState) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeMessage(typ, b, &m.Header)
		case 2:
			return consumeFloat(typ, b, &m.Voltage)
		case 3:
			return consumeFloat(typ, b, &m.Percentage)
		case 4:
			return consumeBool(typ, b, &m.Present)
		}
		return 0
	})
}

// ---- std_srvs/SetBool ----

const SetBoolType = "std_srvs/srv/SetBool"

type SetBoolRequest struct {
	Data bool
}

func (m *SetBoolRequest) Reset()                { *m = SetBoolRequest{} }
func (SetBoolRequest) TypeName() string         { return SetBoolType + "_Request" }
func (m SetBoolRequest) Append(b []byte) []byte { return appendBool(b, 1, m.Data) }
func (m *SetBoolRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num != 1 {
			return 0
		}
		return consumeBool(typ, b, &m.Data)
	})
}

type SetBoolResponse struct {
	Success bool
	Message string
}

func (m *SetBoolResponse) Reset()        { *m = SetBoolResponse{} }
func (SetBoolResponse) TypeName() string { return SetBoolType + "_Response" }
func (m SetBoolResponse) Append(b []byte) []byte {
	b = appendBool(b, 1, m.Success)
	return appendString(b, 2, m.Message)
}
func (m *SetBoolResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeBool(typ, b, &m.Success)
		case 2:
			return consumeString(typ, b, &m.Message)
		}
		return 0
	})
}
