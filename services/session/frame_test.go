package session

import (
	"bytes"
	"testing"

	"eir-go/errcode"
)

func TestAppendFrameLimits(t *testing.T) {
	b, err := AppendFrame(nil, FramePub, make([]byte, MaxPayload))
	if err != nil || len(b) != MaxPayload+headerLen {
		t.Fatalf("max frame: %d bytes, %v", len(b), err)
	}
	if _, err := AppendFrame(nil, FramePub, make([]byte, MaxPayload+1)); err != errcode.TooLarge {
		t.Fatalf("oversized frame err = %v", err)
	}
}

func TestDecoderNeedTracksFrame(t *testing.T) {
	var d decoder
	frame, _ := AppendFrame(nil, FrameReq, []byte("abcd"))

	if d.need() != headerLen {
		t.Fatalf("need = %d", d.need())
	}
	d.n += copy(d.space(), frame)
	if d.n != headerLen {
		t.Fatalf("read past the header: %d", d.n)
	}
	if _, ok, _ := d.frame(); ok {
		t.Fatal("frame complete after header only")
	}
	if d.need() != 4 {
		t.Fatalf("need = %d", d.need())
	}
	d.n += copy(d.space(), frame[headerLen:])
	f, ok, err := d.frame()
	if !ok || err != nil || f.Type != FrameReq || !bytes.Equal(f.Payload, []byte("abcd")) {
		t.Fatalf("frame = %+v ok=%v err=%v", f, ok, err)
	}
}

func TestEmptyPayloadFrame(t *testing.T) {
	var d decoder
	frame, _ := AppendFrame(nil, FramePing, nil)
	d.n += copy(d.space(), frame)
	if f, ok, _ := d.frame(); !ok || f.Type != FramePing || len(f.Payload) != 0 {
		t.Fatalf("frame = %+v ok=%v", f, ok)
	}
}

func TestDataAndCreateDecode(t *testing.T) {
	in := Create{Kind: KindService, ID: 3, Node: "pico", Name: "pico_srv", Type: "std_srvs/srv/SetBool"}
	var out Create
	if err := out.Unmarshal(in.Append(nil)); err != nil || out != in {
		t.Fatalf("create = %+v, %v", out, err)
	}
	var d Data
	if err := d.Unmarshal([]byte{0x08}); err == nil {
		t.Fatal("truncated data decoded")
	}
}
