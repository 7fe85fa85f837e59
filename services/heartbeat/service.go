package heartbeat

import (
	"context"
	"time"

	"eir-go/bus"
	"eir-go/services/hw"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	// TopicLinkState carries retained {"level","status","ts_ms"} maps.
	TopicLinkState = bus.Topic{"link", "state"}
)

// Link levels published on TopicLinkState.
const (
	LevelConnecting = "connecting"
	LevelUp         = "up"
	LevelDegraded   = "degraded"
	LevelDown       = "down"
)

// Service blinks the status LED. The blink half-period follows the link:
// Interval when up, a third of it while connecting or degraded, and the
// LED stays off when down.
type Service struct {
	LED      hw.OutputPin
	Interval time.Duration

	level string
	on    bool
}

func (s *Service) period() time.Duration {
	switch s.level {
	case LevelConnecting, LevelDegraded:
		return s.Interval / 3
	}
	return s.Interval
}

// Run is the service loop; it fits sched.Task once bound to a connection.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	if s.Interval <= 0 {
		s.Interval = 300 * time.Millisecond
	}
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	linkSub := conn.Subscribe(TopicLinkState)
	defer conn.Unsubscribe(linkSub)

	s.level = LevelConnecting
	tick := time.NewTicker(s.period())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.LED.Set(false)
			return nil
		case <-tick.C:
			s.on = !s.on && s.level != LevelDown
			s.LED.Set(s.on)
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval_ms"].(float64); ok && iv > 0 {
					s.Interval = time.Duration(iv) * time.Millisecond
					tick.Reset(s.period())
					println("[heartbeat] interval set to", int(iv), "ms")
				}
			}
		case msg := <-linkSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if lv, ok := m["level"].(string); ok && lv != s.level {
					s.level = lv
					tick.Reset(s.period())
				}
			}
		}
	}
}

// PublishLinkState publishes a retained link state.
func PublishLinkState(conn *bus.Connection, level, status string, err error) {
	payload := map[string]any{
		"level":  level,
		"status": status,
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	conn.Publish(conn.NewMessage(TopicLinkState, payload, true))
}
