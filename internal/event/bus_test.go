package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	bus.Publish(Event{
		Type:      AgentStepped,
		SessionID: "sess-1",
		AgentID:   "agent-1",
		Data:      map[string]any{"progress": true},
	})

	select {
	case ev := <-events:
		assert.Equal(t, AgentStepped, ev.Type)
		assert.Equal(t, "sess-1", ev.SessionID)
		assert.Equal(t, "agent-1", ev.AgentID)
		assert.Equal(t, true, ev.Data["progress"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	bus.Publish(Event{Type: SessionSaved, SessionID: "sess-1"})

	for name, ch := range map[string]<-chan Event{"first": first, "second": second} {
		select {
		case ev := <-ch:
			assert.Equal(t, SessionSaved, ev.Type, name)
		case <-time.After(2 * time.Second):
			t.Fatalf("%s subscriber got no event", name)
		}
	}
}

func TestSubscriberChannelClosesWithContext(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close")
	}
}

func TestNilBusDropsPublishes(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: AgentStepped})
	})
	assert.NoError(t, bus.Close())
}
