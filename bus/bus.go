// bus.go
package bus

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of comparable tokens. "+" matches one level and "#"
// matches the remaining levels (zero or more) when used in a subscription.
type Topic []any

const (
	wildOne  = "+"
	wildRest = "#"
)

// T builds a topic, panicking on tokens that cannot be map keys.
func T(tokens ...any) Topic {
	for _, tok := range tokens {
		switch tok.(type) {
		case string, int, int32, int64, uint8, uint16, uint32, bool:
		default:
			panic("bus: non-comparable topic token")
		}
	}
	return Topic(tokens)
}

// String joins the tokens with "/".
func (t Topic) String() string {
	var sb strings.Builder
	for i, tok := range t {
		if i > 0 {
			sb.WriteByte('/')
		}
		switch v := tok.(type) {
		case string:
			sb.WriteString(v)
		case int:
			sb.WriteString(strconv.Itoa(v))
		default:
			sb.WriteString("?")
		}
	}
	return sb.String()
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// deliver never blocks; when the queue is full the oldest message is dropped.
func (s *Subscription) deliver(m *Message) {
	for {
		select {
		case s.ch <- m:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok any, create bool) *node {
	if c, ok := n.children[tok]; ok || !create {
		return c
	}
	if n.children == nil {
		n.children = make(map[any]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

// match appends every subscription whose pattern matches topic[i:].
func (n *node) match(topic Topic, i int, out []*Subscription) []*Subscription {
	if h := n.children[wildRest]; h != nil {
		out = append(out, h.subs...)
	}
	if i == len(topic) {
		return append(out, n.subs...)
	}
	if c := n.children[topic[i]]; c != nil {
		out = c.match(topic, i+1, out)
	}
	if c := n.children[wildOne]; c != nil {
		out = c.match(topic, i+1, out)
	}
	return out
}

// retainedFor appends retained messages under n that pattern[i:] selects.
func (n *node) retainedFor(pattern Topic, i int, out []*Message) []*Message {
	if i == len(pattern) {
		if n.retained != nil {
			out = append(out, n.retained)
		}
		return out
	}
	switch pattern[i] {
	case wildRest:
		return n.allRetained(out)
	case wildOne:
		for tok, c := range n.children {
			if tok == wildOne || tok == wildRest {
				continue
			}
			out = c.retainedFor(pattern, i+1, out)
		}
		return out
	}
	if c := n.children[pattern[i]]; c != nil {
		out = c.retainedFor(pattern, i+1, out)
	}
	return out
}

func (n *node) allRetained(out []*Message) []*Message {
	if n.retained != nil {
		out = append(out, n.retained)
	}
	for _, c := range n.children {
		out = c.allRetained(out)
	}
	return out
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu    sync.RWMutex
	root  *node
	qLen  int
	reqID atomic.Uint32
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// NewMessage builds a message; it does not publish it.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	for _, m := range b.root.retainedFor(sub.topic, 0, nil) {
		sub.deliver(m)
	}
}

// Publish delivers a message to all matching subscribers and updates the
// retained store. A retained message with a nil payload clears the topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.root.match(msg.Topic, 0, nil) {
		sub.deliver(msg)
	}

	if !msg.Retained {
		return
	}
	n := b.root
	for _, tok := range msg.Topic {
		n = n.child(tok, msg.Payload != nil)
		if n == nil {
			return
		}
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	stack := make([]*node, 0, len(sub.topic))
	for _, tok := range sub.topic {
		c := n.child(tok, false)
		if c == nil {
			return
		}
		stack = append(stack, n)
		n = c
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		c := parent.children[key]
		if len(c.subs) == 0 && len(c.children) == 0 && c.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a subscription owned by this connection. Matching
// retained messages are delivered immediately.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

// Unsubscribe removes a subscription owned by this connection and closes
// its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	close(sub.ch)
}

// Disconnect closes all subscriptions.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Request–Reply
// -----------------------------------------------------------------------------

// Request assigns a private reply topic to msg, subscribes to it and
// publishes msg. The caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	id := c.bus.reqID.Add(1)
	msg.ReplyTo = Topic{"_reply", c.id, int(id)}
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait publishes msg and waits for the first reply.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply publishes payload to req's reply topic. Requests without one are
// ignored.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.Publish(c.NewMessage(req.ReplyTo, payload, retained))
}
