// Package session is a small framed session engine driven entirely through
// the transport contract. It offers the control surface the firmware core
// needs: wait for the peer, process pending work once, and entity handles
// for publishing, subscribing and request/response.
//
// The engine is not reentrant. SpinSome and WaitForPeer belong to the
// baseline loop; entity callbacks run synchronously inside them. Publishing
// is safe from other baseline tasks.
package session

import (
	"sync"
	"time"

	"eir-go/errcode"
	"eir-go/services/msg"
	"eir-go/services/transport"
	"eir-go/x/timex"
)

type Options struct {
	// Now is the monotonic clock (default timex.Now).
	Now func() timex.Instant
}

type entity struct {
	decl Create

	into     msg.Message
	onData   func(msg.Message)
	resp     msg.Message
	onReq    func(req, resp msg.Message)
	onResp   func(seq int64, resp msg.Message)
	clientSq int64
}

type Engine struct {
	conn *Conn

	mu       sync.Mutex
	entities map[uint32]*entity
	order    []uint32
	nextID   uint32

	nonce   uint32
	peerUp  bool
	spinErr uint32
}

// NewEngine opens t and returns an engine bound to it.
func NewEngine(t transport.Contract, o Options) *Engine {
	t.Open()
	return &Engine{
		conn:     NewConn(t, o.Now),
		entities: make(map[uint32]*entity),
	}
}

// WaitForPeer pings the peer up to attempts times, waiting timeout for each
// answer. It returns errcode.PeerNotFound if none arrives.
func (e *Engine) WaitForPeer(timeout time.Duration, attempts int) error {
	for i := 0; i < attempts; i++ {
		e.nonce++
		if err := e.conn.WriteFrame(FramePing, appendNonce(nil, e.nonce)); !isTransient(err) {
			return err
		}
		_, _ = e.conn.Poll(timeout, func(f Frame) error {
			if f.Type == FramePong && parseNonce(f.Payload) == e.nonce {
				e.peerUp = true
				return errStop
			}
			return e.dispatch(f)
		})
		if e.peerUp {
			return nil
		}
	}
	return errcode.Wrap(errcode.PeerNotFound, "session.wait", nil)
}

// SpinSome processes pending frames for at most budget. Partial frames are
// kept for the next call.
func (e *Engine) SpinSome(budget time.Duration) error {
	_, err := e.conn.Poll(budget, e.dispatch)
	if err != nil {
		e.spinErr++
	}
	return err
}

// PeerUp reports whether the peer answered and has not closed the session.
func (e *Engine) PeerUp() bool { return e.peerUp }

// Close tells the peer the session is over and closes the transport.
func (e *Engine) Close() {
	e.peerUp = false
	e.conn.Close()
}

func (e *Engine) dispatch(f Frame) error {
	switch f.Type {
	case FramePing:
		return e.conn.WriteFrame(FramePong, f.Payload)
	case FramePong:
		e.peerUp = true
		return nil
	case FrameSync:
		return e.announceAll()
	case FrameClose:
		println("[session] peer closed")
		e.peerUp = false
		return nil
	case FramePub, FrameReq, FrameResp:
		var d Data
		if err := d.Unmarshal(f.Payload); err != nil {
			return err
		}
		return e.deliver(f.Type, d)
	}
	return errcode.Wrap(errcode.BadFrame, "session.dispatch", nil)
}

func (e *Engine) deliver(typ byte, d Data) error {
	e.mu.Lock()
	en := e.entities[d.ID]
	e.mu.Unlock()
	if en == nil {
		return errcode.UnknownEntity
	}
	switch {
	case typ == FramePub && en.decl.Kind == KindSubscription:
		if err := msg.Unmarshal(d.Body, en.into); err != nil {
			return errcode.Wrap(errcode.InvalidPayload, en.decl.Name, err)
		}
		en.onData(en.into)
		return nil

	case typ == FrameReq && en.decl.Kind == KindService:
		if err := msg.Unmarshal(d.Body, en.into); err != nil {
			return errcode.Wrap(errcode.InvalidPayload, en.decl.Name, err)
		}
		en.resp.Reset()
		en.onReq(en.into, en.resp)
		var buf [transport.BufferLen]byte
		out := Data{ID: d.ID, Seq: d.Seq, Body: en.resp.Append(buf[:0])}
		return e.conn.WriteFrame(FrameResp, out.Append(nil))

	case typ == FrameResp && en.decl.Kind == KindClient:
		if err := msg.Unmarshal(d.Body, en.resp); err != nil {
			return errcode.Wrap(errcode.InvalidPayload, en.decl.Name, err)
		}
		en.onResp(d.Seq, en.resp)
		return nil
	}
	return errcode.Wrap(errcode.UnknownEntity, en.decl.Kind.String(), nil)
}

func (e *Engine) register(en *entity) (uint32, error) {
	e.mu.Lock()
	e.nextID++
	en.decl.ID = e.nextID
	e.entities[en.decl.ID] = en
	e.order = append(e.order, en.decl.ID)
	e.mu.Unlock()
	return en.decl.ID, e.announce(en.decl)
}

func (e *Engine) announce(c Create) error {
	return e.conn.WriteFrame(FrameCreate, c.Append(nil))
}

func (e *Engine) announceAll() error {
	e.mu.Lock()
	decls := make([]Create, 0, len(e.order))
	for _, id := range e.order {
		decls = append(decls, e.entities[id].decl)
	}
	e.mu.Unlock()
	for _, c := range decls {
		if err := e.announce(c); err != nil {
			return err
		}
	}
	return nil
}
