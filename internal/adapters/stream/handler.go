package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cryptoarb/internal/core/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// request is a subscription change sent by a client.
type request struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeHTTP upgrades the request. ?symbols=BTC/USDT,ETH/USDT restricts the
// stream; every symbol must be valid.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	symbols, err := parseSymbols(r.URL.Query().Get("symbols"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}

	client := h.hub.RegisterClient(conn, symbols)
	if client == nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	client.enqueue(encode(Message{Type: "subscribed", Symbols: client.Symbols()}))

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Handler) readPump(client *Client) {
	defer h.hub.UnregisterClient(client)

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Stream client read error", "id", client.ID, "error", err)
			}
			return
		}

		var req request
		if err := json.Unmarshal(message, &req); err != nil {
			client.enqueue(encode(Message{Type: "error", Message: "invalid message format"}))
			continue
		}

		symbol, err := domain.NormalizeSymbol(req.Symbol)
		if err != nil {
			client.enqueue(encode(Message{Type: "error", Message: err.Error()}))
			continue
		}

		switch req.Action {
		case "subscribe":
			client.Subscribe(symbol)
			client.enqueue(encode(Message{Type: "subscribed", Symbols: client.Symbols()}))
		case "unsubscribe":
			client.Unsubscribe(symbol)
			client.enqueue(encode(Message{Type: "unsubscribed", Symbols: client.Symbols()}))
		default:
			client.enqueue(encode(Message{Type: "error", Message: "unknown action"}))
		}
	}
}

func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func parseSymbols(raw string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		symbol, err := domain.NormalizeSymbol(part)
		if err != nil {
			return nil, err
		}
		out = append(out, symbol)
	}
	return out, nil
}

func encode(msg Message) []byte {
	b, _ := json.Marshal(msg)
	return b
}
