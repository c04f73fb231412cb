package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// InboundMessage is a raw client-to-server event before payload decoding.
type InboundMessage struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// InboundHandler receives decoded envelopes from connected clients.
type InboundHandler interface {
	HandleInbound(clientID string, msg InboundMessage)
}

type directedMessage struct {
	clientID string
	payload  []byte
}

// Hub fans events out to connected clients. Delivery is fire-and-forget: a
// client whose send buffer is full misses the event, nothing blocks, and no
// component's correctness depends on a message arriving.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	direct     chan directedMessage

	handler InboundHandler
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		direct:     make(chan directedMessage, 64),
		logger:     logger,
	}
}

// SetHandler wires the receiver for inbound client messages. Must be called
// before Run.
func (h *Hub) SetHandler(handler InboundHandler) {
	h.handler = handler
}

// Run owns the client table; all register, unregister and delivery traffic
// goes through this loop. Returns when ctx is canceled, closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.clients[client.ID] = client
			h.logger.Debug("Client connected", zap.String("client_id", client.ID))

		case client := <-h.unregister:
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				h.logger.Debug("Client disconnected", zap.String("client_id", client.ID))
			}

		case payload := <-h.broadcast:
			for _, client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// Slow consumer; the event is dropped, not queued.
				}
			}

		case msg := <-h.direct:
			if client, ok := h.clients[msg.clientID]; ok {
				select {
				case client.send <- msg.payload:
				default:
				}
			}

		case <-ctx.Done():
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			return
		}
	}
}

// Broadcast delivers the event to every connected client, best effort.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("Broadcast queue full, event dropped", zap.String("type", string(event.Type)))
	}
}

// SendTo delivers the event to a single client, best effort.
func (h *Hub) SendTo(clientID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	select {
	case h.direct <- directedMessage{clientID: clientID, payload: payload}:
	default:
		h.logger.Warn("Direct queue full, event dropped", zap.String("client_id", clientID))
	}
}

func (h *Hub) dispatch(clientID string, raw []byte) {
	if h.handler == nil {
		return
	}
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn("Malformed inbound message", zap.String("client_id", clientID), zap.Error(err))
		return
	}
	h.handler.HandleInbound(clientID, msg)
}
