package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"eir-go/bus"
	"eir-go/errcode"
	"eir-go/services/msg"
)

// Resolver supplies empty messages for device entities, so JSON from MQTT
// can be decoded into the right type.
type Resolver interface {
	NewInput(name string) (msg.Message, error)
	NewRequest(name string) (msg.Message, error)
}

// Forwarder mirrors device/# from the bus to MQTT as JSON and accepts
// <prefix>/agent/pub/<name> and <prefix>/agent/call/<name> from MQTT.
// Call replies go to <prefix>/agent/reply/<name>.
type Forwarder struct {
	client  paho.Client
	bc      *bus.Connection
	res     Resolver
	prefix  string
	qos     byte
	timeout time.Duration
	log     *zap.Logger
}

func NewForwarder(c MQTTConfig, bc *bus.Connection, res Resolver, log *zap.Logger) *Forwarder {
	f := &Forwarder{
		bc:      bc,
		res:     res,
		prefix:  strings.Trim(c.Prefix, "/"),
		qos:     byte(c.QoS),
		timeout: DefaultCallTimeout,
		log:     log.Named("mqtt"),
	}
	opts := paho.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(c.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(f.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			f.log.Warn("connection lost", zap.Error(err))
		})
	f.client = paho.NewClient(opts)
	return f
}

// Run connects and forwards until ctx is done.
func (f *Forwarder) Run(ctx context.Context) error {
	tok := f.client.Connect()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return errcode.Wrap(errcode.LinkDown, "mqtt.connect", err)
		}
	case <-ctx.Done():
		return nil
	}
	defer f.client.Disconnect(250)

	sub := f.bc.Subscribe(bus.T("device", "#"))
	defer f.bc.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			f.forward(m)
		}
	}
}

func (f *Forwarder) topic(parts ...string) string {
	if f.prefix == "" {
		return strings.Join(parts, "/")
	}
	return f.prefix + "/" + strings.Join(parts, "/")
}

func (f *Forwarder) forward(m *bus.Message) {
	b, err := encodeJSON(m.Payload)
	if err != nil {
		f.log.Warn("encode", zap.Stringer("topic", m.Topic), zap.Error(err))
		return
	}
	f.client.Publish(f.topic(m.Topic.String()), f.qos, m.Retained, b)
}

func (f *Forwarder) onConnect(c paho.Client) {
	f.log.Info("connected")
	c.Subscribe(f.topic("agent", "pub", "+"), f.qos, f.onPub)
	c.Subscribe(f.topic("agent", "call", "+"), f.qos, f.onCall)
}

func (f *Forwarder) onPub(_ paho.Client, pm paho.Message) {
	name := lastSegment(pm.Topic())
	m, err := f.res.NewInput(name)
	if err == nil {
		err = json.Unmarshal(pm.Payload(), m)
	}
	if err != nil {
		f.log.Warn("mqtt pub", zap.String("name", name), zap.Error(err))
		return
	}
	f.bc.Publish(f.bc.NewMessage(bus.T("agent", "pub", name), m, false))
}

func (f *Forwarder) onCall(c paho.Client, pm paho.Message) {
	name := lastSegment(pm.Topic())
	req, err := f.res.NewRequest(name)
	if err == nil {
		err = json.Unmarshal(pm.Payload(), req)
	}
	reply := f.topic("agent", "reply", name)
	if err != nil {
		b, _ := encodeJSON(err)
		c.Publish(reply, f.qos, false, b)
		return
	}
	// paho runs handlers on its router goroutine; answer off it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()
		var payload any
		m, err := f.bc.RequestWait(ctx, f.bc.NewMessage(bus.T("agent", "call", name), req, false))
		if err != nil {
			payload = errcode.Wrap(errcode.Timeout, "mqtt.call", err)
		} else {
			payload = m.Payload
		}
		b, _ := encodeJSON(payload)
		c.Publish(reply, f.qos, false, b)
	}()
}

func encodeJSON(v any) ([]byte, error) {
	if err, ok := v.(error); ok {
		return json.Marshal(map[string]string{"error": err.Error()})
	}
	return json.Marshal(v)
}

func lastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
