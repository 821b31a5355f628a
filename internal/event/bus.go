// Package event provides the pub/sub bus that Hugin components use to
// announce stack and session activity, built on watermill's gochannel.
package event

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/hugin-ai/hugin/internal/logging"
)

// Type identifies a kind of framework event.
type Type string

const (
	InteractionAppended Type = "interaction.appended"
	InteractionRemoved  Type = "interaction.removed"
	AgentStepped        Type = "agent.stepped"
	ConfigTransitioned  Type = "config.transitioned"
	SessionSaved        Type = "session.saved"
	HumanAsked          Type = "human.asked"
)

// Event is one bus notification.
type Event struct {
	Type      Type           `json:"type"`
	SessionID string         `json:"sessionID,omitempty"`
	AgentID   string         `json:"agentID,omitempty"`
	Branch    string         `json:"branch,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

const topic = "hugin.events"

// Bus is an in-process event bus. A nil *Bus is valid and drops all
// publishes, so wiring a bus is optional everywhere.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
	}
}

// Publish sends an event to all subscribers. Failures are logged, never
// returned; eventing is best-effort by contract.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.Error().Err(err).Str("type", string(ev.Type)).Msg("encode event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		logging.Error().Err(err).Str("type", string(ev.Type)).Msg("publish event")
	}
}

// Subscribe returns a channel of events that closes when ctx is done or
// the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	msgs, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				logging.Warn().Err(err).Msg("skipping malformed event")
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	return b.pubsub.Close()
}
