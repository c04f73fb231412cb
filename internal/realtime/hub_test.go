package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func attach(t *testing.T, hub *Hub, id string, buffer int) *Client {
	t.Helper()
	client := &Client{ID: id, hub: hub, send: make(chan []byte, buffer)}
	select {
	case hub.register <- client:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept registration")
	}
	return client
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw := <-c.send:
		var event Event
		require.NoError(t, json.Unmarshal(raw, &event))
		return event
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return Event{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("client %s unexpectedly received %s", c.ID, raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "client-a", 4)
	b := attach(t, hub, "client-b", 4)

	hub.Broadcast(Event{Type: EventBookingCreated, Payload: BookingCreatedPayload{AppointmentID: 7}})

	for _, c := range []*Client{a, b} {
		event := receive(t, c)
		assert.Equal(t, EventBookingCreated, event.Type)
	}
}

func TestHub_SendToTargetsOneClient(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "client-a", 4)
	b := attach(t, hub, "client-b", 4)

	hub.SendTo("client-a", Event{Type: EventClaimDenied, Payload: ClaimDeniedPayload{Reason: "taken"}})

	event := receive(t, a)
	assert.Equal(t, EventClaimDenied, event.Type)
	assertSilent(t, b)
}

func TestHub_SendToUnknownClientIsDropped(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "client-a", 4)

	hub.SendTo("nobody", Event{Type: EventClaimDenied})
	assertSilent(t, a)
}

func TestHub_SlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	hub := startHub(t)
	slow := attach(t, hub, "slow", 1)
	fast := attach(t, hub, "fast", 8)

	// The slow client's buffer holds one event; later ones are dropped
	// without stalling delivery to other clients.
	for i := 0; i < 4; i++ {
		hub.Broadcast(Event{Type: EventAvailabilityUpdated})
	}

	for i := 0; i < 4; i++ {
		receive(t, fast)
	}
	receive(t, slow)
	assertSilent(t, slow)
}

func TestHub_UnregisterClosesSendChannel(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "client-a", 4)

	hub.unregister <- a

	select {
	case _, open := <-a.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

type recordingHandler struct {
	got chan InboundMessage
}

func (h *recordingHandler) HandleInbound(clientID string, msg InboundMessage) {
	h.got <- msg
}

func TestHub_DispatchParsesEnvelope(t *testing.T) {
	hub := NewHub(zap.NewNop())
	handler := &recordingHandler{got: make(chan InboundMessage, 1)}
	hub.SetHandler(handler)

	hub.dispatch("client-a", []byte(`{"type":"claim_requested","payload":{"organizer_id":1}}`))

	select {
	case msg := <-handler.got:
		assert.Equal(t, EventClaimRequested, msg.Type)
		assert.JSONEq(t, `{"organizer_id":1}`, string(msg.Payload))
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	// Malformed frames are logged and dropped, never delivered.
	hub.dispatch("client-a", []byte(`{not json`))
	select {
	case <-handler.got:
		t.Fatal("malformed message reached the handler")
	case <-time.After(50 * time.Millisecond):
	}
}
