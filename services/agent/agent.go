// Package agent is the host side of the framed serial session. It answers
// the device's pings, keeps the device's entity declarations, mirrors device
// traffic onto a local bus and turns bus commands into frames for the
// device.
//
// Bus surface:
//
//	device/state          retained "up" or "closed"
//	device/entity/<name>  retained Entity per declaration
//	device/pub/<name>     decoded publication from a device publisher
//	device/req/<name>     request made by a device client
//	agent/pub/<name>      msg.Message to send to a device subscription
//	agent/call/<name>     request/reply with a device service
package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"eir-go/bus"
	"eir-go/errcode"
	"eir-go/services/msg"
	"eir-go/services/session"
	"eir-go/services/transport"
	"eir-go/x/timex"
)

const (
	StateUp     = "up"
	StateClosed = "closed"

	DefaultPoll        = 20 * time.Millisecond
	DefaultCallTimeout = 2 * time.Second
)

// Entity is one declaration received from the device.
type Entity session.Create

func (e Entity) String() string { return e.Kind.String() + " " + e.Name + " (" + e.Type + ")" }

// RequestHandler answers a request made by a device client. Returning nil
// sends the zero response of the matching type.
type RequestHandler func(e Entity, req msg.Message) msg.Message

type Options struct {
	// Poll bounds one read pass over the transport (default DefaultPoll).
	Poll time.Duration
	// CallTimeout expires unanswered service calls (default DefaultCallTimeout).
	CallTimeout time.Duration
	// OnRequest answers device clients (default DefaultRequestHandler).
	OnRequest RequestHandler
	Logger    *zap.Logger
	Now       func() timex.Instant
}

type key struct {
	kind session.Kind
	name string
}

type pending struct {
	ent      Entity
	deadline timex.Instant
	done     func(msg.Message, error)
}

type Agent struct {
	conn *session.Conn
	bc   *bus.Connection
	log  *zap.Logger
	o    Options

	mu      sync.Mutex
	byID    map[uint32]Entity
	byName  map[key]uint32
	pending map[int64]pending
	seq     int64
	up      bool
}

func New(t transport.Contract, bc *bus.Connection, o Options) *Agent {
	if o.Poll <= 0 {
		o.Poll = DefaultPoll
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.OnRequest == nil {
		o.OnRequest = DefaultRequestHandler
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = timex.Now
	}
	t.Open()
	return &Agent{
		conn:    session.NewConn(t, o.Now),
		bc:      bc,
		log:     o.Logger.Named("agent"),
		o:       o,
		byID:    make(map[uint32]Entity),
		byName:  make(map[key]uint32),
		pending: make(map[int64]pending),
	}
}

// DefaultRequestHandler accepts every SetBool request.
func DefaultRequestHandler(_ Entity, req msg.Message) msg.Message {
	if _, ok := req.(*msg.SetBoolRequest); ok {
		return &msg.SetBoolResponse{Success: true, Message: "ok"}
	}
	return nil
}

// Run asks the device to replay its declarations and then serves the
// session and the bus until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	pubs := a.bc.Subscribe(bus.T("agent", "pub", "+"))
	calls := a.bc.Subscribe(bus.T("agent", "call", "+"))
	defer a.bc.Unsubscribe(calls)
	defer a.bc.Unsubscribe(pubs)

	if err := a.conn.WriteFrame(session.FrameSync, nil); err != nil && !errcode.Transient(err) {
		return errcode.Wrap(errcode.Of(err), "agent.sync", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.serveBus(ctx, pubs, calls)
	}()
	defer wg.Wait()

	for ctx.Err() == nil {
		if _, err := a.conn.Poll(a.o.Poll, a.dispatch); err != nil {
			a.log.Debug("poll", zap.Error(err))
		}
		a.expire()
	}
	a.fail(errcode.Closed)
	return nil
}

func (a *Agent) serveBus(ctx context.Context, pubs, calls *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-pubs.Channel():
			if !ok {
				return
			}
			name, _ := lastToken(m.Topic)
			pm, ok := m.Payload.(msg.Message)
			if !ok {
				a.log.Warn("agent/pub payload is not a message", zap.String("name", name))
				continue
			}
			if err := a.Publish(name, pm); err != nil {
				a.log.Warn("publish to device", zap.String("name", name), zap.Error(err))
			}
		case m, ok := <-calls.Channel():
			if !ok {
				return
			}
			a.busCall(m)
		}
	}
}

func (a *Agent) busCall(m *bus.Message) {
	name, _ := lastToken(m.Topic)
	req, ok := m.Payload.(msg.Message)
	if !ok {
		a.bc.Reply(m, errcode.InvalidPayload, false)
		return
	}
	_, err := a.call(name, req, func(resp msg.Message, err error) {
		if err != nil {
			a.bc.Reply(m, err, false)
			return
		}
		a.bc.Reply(m, resp, false)
	})
	if err != nil {
		a.bc.Reply(m, err, false)
	}
}

// Entities returns the current declarations ordered by id.
func (a *Agent) Entities() []Entity {
	a.mu.Lock()
	out := make([]Entity, 0, len(a.byID))
	for _, e := range a.byID {
		out = append(out, e)
	}
	a.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup finds a declaration by kind and name.
func (a *Agent) Lookup(kind session.Kind, name string) (Entity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.byName[key{kind, name}]
	if !ok {
		return Entity{}, false
	}
	return a.byID[id], true
}

// PeerUp reports whether the device is talking and has not closed.
func (a *Agent) PeerUp() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.up
}

// NewInput returns an empty message of the type the named device
// subscription expects.
func (a *Agent) NewInput(name string) (msg.Message, error) {
	e, ok := a.Lookup(session.KindSubscription, name)
	if !ok {
		return nil, errcode.Wrap(errcode.UnknownEntity, "agent.input", nil)
	}
	m, ok := msg.New(e.Type)
	if !ok {
		return nil, errcode.Wrap(errcode.Unsupported, "agent.input", nil)
	}
	return m, nil
}

// NewRequest returns an empty request for the named device service.
func (a *Agent) NewRequest(name string) (msg.Message, error) {
	e, ok := a.Lookup(session.KindService, name)
	if !ok {
		return nil, errcode.Wrap(errcode.UnknownEntity, "agent.request", nil)
	}
	m, ok := msg.New(e.Type + "_Request")
	if !ok {
		return nil, errcode.Wrap(errcode.Unsupported, "agent.request", nil)
	}
	return m, nil
}

// Publish sends m to the device subscription called name.
func (a *Agent) Publish(name string, m msg.Message) error {
	e, ok := a.Lookup(session.KindSubscription, name)
	if !ok {
		return errcode.Wrap(errcode.UnknownEntity, "agent.publish", nil)
	}
	if m.TypeName() != e.Type {
		return errcode.Wrap(errcode.InvalidParams, "agent.publish", nil)
	}
	d := session.Data{ID: e.ID, Body: m.Append(nil)}
	return a.conn.WriteFrame(session.FramePub, d.Append(nil))
}

type result struct {
	m   msg.Message
	err error
}

// Call sends req to the device service called name and waits for the
// response, CallTimeout or ctx, whichever comes first.
func (a *Agent) Call(ctx context.Context, name string, req msg.Message) (msg.Message, error) {
	ch := make(chan result, 1)
	seq, err := a.call(name, req, func(m msg.Message, err error) { ch <- result{m, err} })
	if err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.m, r.err
	case <-ctx.Done():
		a.mu.Lock()
		delete(a.pending, seq)
		a.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (a *Agent) call(name string, req msg.Message, done func(msg.Message, error)) (int64, error) {
	e, ok := a.Lookup(session.KindService, name)
	if !ok {
		return 0, errcode.Wrap(errcode.UnknownEntity, "agent.call", nil)
	}
	if req.TypeName() != e.Type+"_Request" {
		return 0, errcode.Wrap(errcode.InvalidParams, "agent.call", nil)
	}
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.pending[seq] = pending{ent: e, deadline: a.o.Now().Add(a.o.CallTimeout), done: done}
	a.mu.Unlock()

	d := session.Data{ID: e.ID, Seq: seq, Body: req.Append(nil)}
	if err := a.conn.WriteFrame(session.FrameReq, d.Append(nil)); err != nil {
		a.mu.Lock()
		delete(a.pending, seq)
		a.mu.Unlock()
		return 0, errcode.Wrap(errcode.Of(err), "agent.call", err)
	}
	return seq, nil
}

// expire fails calls that outlived CallTimeout.
func (a *Agent) expire() {
	now := a.o.Now()
	var late []pending
	a.mu.Lock()
	for seq, p := range a.pending {
		if now >= p.deadline {
			late = append(late, p)
			delete(a.pending, seq)
		}
	}
	a.mu.Unlock()
	for _, p := range late {
		p.done(nil, errcode.Timeout)
	}
}

// fail ends every outstanding call with err.
func (a *Agent) fail(err error) {
	a.mu.Lock()
	all := a.pending
	a.pending = make(map[int64]pending)
	a.mu.Unlock()
	for _, p := range all {
		p.done(nil, err)
	}
}

// -----------------------------------------------------------------------------
// Frames from the device
// -----------------------------------------------------------------------------

func (a *Agent) dispatch(f session.Frame) error {
	if f.Type != session.FrameClose {
		a.setUp(true)
	}
	switch f.Type {
	case session.FramePing:
		return a.conn.WriteFrame(session.FramePong, f.Payload)
	case session.FramePong, session.FrameSync:
		return nil
	case session.FrameCreate:
		var c session.Create
		if err := c.Unmarshal(f.Payload); err != nil {
			return err
		}
		a.declare(Entity(c))
		return nil
	case session.FrameClose:
		a.log.Info("device closed the session")
		a.setUp(false)
		a.fail(errcode.Closed)
		return nil
	case session.FramePub, session.FrameReq, session.FrameResp:
		var d session.Data
		if err := d.Unmarshal(f.Payload); err != nil {
			return err
		}
		switch f.Type {
		case session.FramePub:
			return a.onPub(d)
		case session.FrameReq:
			return a.onReq(d)
		}
		return a.onResp(d)
	}
	return errcode.Wrap(errcode.BadFrame, "agent.dispatch", nil)
}

func (a *Agent) setUp(up bool) {
	a.mu.Lock()
	changed := a.up != up
	a.up = up
	a.mu.Unlock()
	if !changed {
		return
	}
	state := StateClosed
	if up {
		state = StateUp
	}
	a.log.Info("device state", zap.String("state", state))
	a.bc.Publish(a.bc.NewMessage(bus.T("device", "state"), state, true))
}

func (a *Agent) declare(e Entity) {
	a.mu.Lock()
	if old, ok := a.byName[key{e.Kind, e.Name}]; ok && old != e.ID {
		delete(a.byID, old)
	}
	a.byID[e.ID] = e
	a.byName[key{e.Kind, e.Name}] = e.ID
	a.mu.Unlock()
	a.log.Info("entity", zap.Stringer("kind", e.Kind), zap.Uint32("id", e.ID),
		zap.String("node", e.Node), zap.String("name", e.Name), zap.String("type", e.Type))
	a.bc.Publish(a.bc.NewMessage(bus.T("device", "entity", e.Name), e, true))
}

func (a *Agent) entity(id uint32) (Entity, error) {
	a.mu.Lock()
	e, ok := a.byID[id]
	a.mu.Unlock()
	if !ok {
		return Entity{}, errcode.Wrap(errcode.UnknownEntity, "agent.entity", nil)
	}
	return e, nil
}

func decode(typ string, b []byte) (msg.Message, error) {
	m, ok := msg.New(typ)
	if !ok {
		return nil, errcode.Wrap(errcode.Unsupported, typ, nil)
	}
	if err := msg.Unmarshal(b, m); err != nil {
		return nil, errcode.Wrap(errcode.InvalidPayload, typ, err)
	}
	return m, nil
}

func (a *Agent) onPub(d session.Data) error {
	e, err := a.entity(d.ID)
	if err != nil {
		return err
	}
	m, err := decode(e.Type, d.Body)
	if err != nil {
		return err
	}
	a.log.Debug("pub", zap.String("name", e.Name), zap.Any("msg", m))
	a.bc.Publish(a.bc.NewMessage(bus.T("device", "pub", e.Name), m, false))
	return nil
}

func (a *Agent) onReq(d session.Data) error {
	e, err := a.entity(d.ID)
	if err != nil {
		return err
	}
	if e.Kind != session.KindClient {
		return errcode.Wrap(errcode.UnknownEntity, "agent.req", nil)
	}
	req, err := decode(e.Type+"_Request", d.Body)
	if err != nil {
		return err
	}
	a.bc.Publish(a.bc.NewMessage(bus.T("device", "req", e.Name), req, false))

	resp := a.o.OnRequest(e, req)
	if resp == nil {
		var ok bool
		if resp, ok = msg.New(e.Type + "_Response"); !ok {
			return errcode.Wrap(errcode.Unsupported, e.Type, nil)
		}
	}
	a.log.Debug("req", zap.String("name", e.Name), zap.Int64("seq", d.Seq), zap.Any("req", req), zap.Any("resp", resp))
	out := session.Data{ID: e.ID, Seq: d.Seq, Body: resp.Append(nil)}
	return a.conn.WriteFrame(session.FrameResp, out.Append(nil))
}

func (a *Agent) onResp(d session.Data) error {
	a.mu.Lock()
	p, ok := a.pending[d.Seq]
	delete(a.pending, d.Seq)
	a.mu.Unlock()
	if !ok || p.ent.ID != d.ID {
		return errcode.Wrap(errcode.UnknownEntity, "agent.resp", nil)
	}
	m, err := decode(p.ent.Type+"_Response", d.Body)
	p.done(m, err)
	return nil
}

func lastToken(t bus.Topic) (string, bool) {
	if len(t) == 0 {
		return "", false
	}
	s, ok := t[len(t)-1].(string)
	return s, ok
}
