package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/port"
	"cryptoarb/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const broadcastBufferSize = 256

// Message is the envelope for everything written to subscribers.
type Message struct {
	Type    string                       `json:"type"`
	Data    *domain.ArbitrageOpportunity `json:"data,omitempty"`
	Symbols []string                     `json:"symbols,omitempty"`
	Message string                       `json:"message,omitempty"`
}

type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *domain.ArbitrageOpportunity
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *domain.ArbitrageOpportunity, broadcastBufferSize),
		done:       make(chan struct{}),
	}
}

var _ port.OpportunityPublisher = (*Hub)(nil)

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			n := len(h.clients)
			h.mu.Unlock()
			metrics.SetStreamClients(n)
			slog.Debug("Stream client connected", "id", client.ID, "symbols", client.Symbols())

		case client := <-h.unregister:
			h.remove(client)

		case opp := <-h.broadcast:
			h.deliver(opp)

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.close()
			}
			h.mu.Unlock()
			metrics.SetStreamClients(0)
			slog.Info("Stream hub stopped")
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
		client.close()
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.SetStreamClients(n)
		slog.Debug("Stream client disconnected", "id", client.ID)
	}
}

func (h *Hub) deliver(opp *domain.ArbitrageOpportunity) {
	payload, err := json.Marshal(Message{Type: "opportunity", Data: opp})
	if err != nil {
		slog.Error("Failed to encode opportunity", "id", opp.ID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.IsSubscribed(opp.Symbol) {
			continue
		}
		if !client.enqueue(payload) {
			slog.Warn("Stream client buffer full, skipping message", "id", client.ID)
		}
	}
}

// RegisterClient adds a connection to the hub. It returns nil once the hub
// has stopped.
func (h *Hub) RegisterClient(conn *websocket.Conn, symbols []string) *Client {
	client := NewClient(uuid.NewString(), conn, symbols)
	select {
	case h.register <- client:
		return client
	case <-h.done:
		return nil
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an opportunity for broadcast without blocking the caller.
func (h *Hub) Publish(opp *domain.ArbitrageOpportunity) {
	if opp == nil {
		return
	}
	select {
	case h.broadcast <- opp:
	default:
		slog.Warn("Stream broadcast buffer full, dropping opportunity", "id", opp.ID, "symbol", opp.Symbol)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
