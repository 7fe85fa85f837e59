package session

import (
	"strings"

	"eir-go/errcode"
	"eir-go/services/msg"
)

// Node groups entities under a name and namespace.
type Node struct {
	e    *Engine
	name string
}

func (e *Engine) Node(name, namespace string) *Node {
	full := name
	if namespace != "" {
		full = strings.TrimSuffix(namespace, "/") + "/" + name
	}
	return &Node{e: e, name: full}
}

func (n *Node) Name() string { return n.name }

func (n *Node) declare(kind Kind, name, typ string, en *entity) (uint32, error) {
	en.decl = Create{Kind: kind, Node: n.name, Name: name, Type: typ}
	id, err := n.e.register(en)
	if err != nil {
		return id, errcode.Wrap(errcode.Of(err), "session.create "+name, err)
	}
	return id, nil
}

func serviceType(m msg.Message, suffix string) string {
	return strings.TrimSuffix(m.TypeName(), suffix)
}

// ---- Publisher ----

type Publisher struct {
	e   *Engine
	id  uint32
	typ string
	buf []byte
}

// Publisher declares a publisher of proto's type on topic.
func (n *Node) Publisher(topic string, proto msg.Message) (*Publisher, error) {
	p := &Publisher{e: n.e, typ: proto.TypeName()}
	id, err := n.declare(KindPublisher, topic, p.typ, &entity{})
	p.id = id
	return p, err
}

// Publish sends m without waiting for any acknowledgement. Errors are the
// transport's: errcode.QueueFull is transient.
func (p *Publisher) Publish(m msg.Message) error {
	if m.TypeName() != p.typ {
		return errcode.InvalidParams
	}
	d := Data{ID: p.id, Body: m.Append(nil)}
	p.buf = d.Append(p.buf[:0])
	return p.e.conn.WriteFrame(FramePub, p.buf)
}

// ---- Subscription ----

type Subscription struct {
	id uint32
}

// Subscribe declares a subscription. into is reset and filled for every
// sample, then passed to cb; cb must not retain it.
func (n *Node) Subscribe(topic string, into msg.Message, cb func(msg.Message)) (*Subscription, error) {
	id, err := n.declare(KindSubscription, topic, into.TypeName(), &entity{into: into, onData: cb})
	return &Subscription{id: id}, err
}

// ---- Service ----

type Service struct {
	id uint32
}

// Service declares a request/response server. h fills resp from req.
func (n *Node) Service(name string, req, resp msg.Message, h func(req, resp msg.Message)) (*Service, error) {
	typ := serviceType(req, "_Request")
	id, err := n.declare(KindService, name, typ, &entity{into: req, resp: resp, onReq: h})
	return &Service{id: id}, err
}

// ---- Client ----

type Client struct {
	e   *Engine
	id  uint32
	en  *entity
	buf []byte
}

// Client declares a request/response client. cb receives each response
// with the sequence number Send returned.
func (n *Node) Client(name string, resp msg.Message, cb func(seq int64, resp msg.Message)) (*Client, error) {
	en := &entity{resp: resp, onResp: cb}
	id, err := n.declare(KindClient, name, serviceType(resp, "_Response"), en)
	return &Client{e: n.e, id: id, en: en}, err
}

// Send issues a request and returns its sequence number.
func (c *Client) Send(req msg.Message) (int64, error) {
	c.e.mu.Lock()
	c.en.clientSq++
	seq := c.en.clientSq
	c.e.mu.Unlock()
	d := Data{ID: c.id, Seq: seq, Body: req.Append(nil)}
	c.buf = d.Append(c.buf[:0])
	return seq, c.e.conn.WriteFrame(FrameReq, c.buf)
}
