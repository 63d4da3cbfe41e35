package stream

import (
	"sort"
	"sync"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 64

// Client is a single websocket subscriber. A client connected without a
// symbol filter receives every opportunity until its first subscribe.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu      sync.RWMutex
	all     bool
	symbols map[string]struct{}

	sendMu sync.Mutex
	closed bool
}

func NewClient(id string, conn *websocket.Conn, symbols []string) *Client {
	c := &Client{
		ID:      id,
		Conn:    conn,
		Send:    make(chan []byte, sendBufferSize),
		all:     len(symbols) == 0,
		symbols: make(map[string]struct{}),
	}
	for _, s := range symbols {
		c.symbols[s] = struct{}{}
	}
	return c
}

func (c *Client) IsSubscribed(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.all {
		return true
	}
	_, ok := c.symbols[symbol]
	return ok
}

func (c *Client) Subscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all = false
	c.symbols[symbol] = struct{}{}
}

// Unsubscribe only narrows the feed. Removing the last symbol leaves the
// client subscribed to nothing.
func (c *Client) Unsubscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.symbols, symbol)
}

func (c *Client) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// enqueue never blocks; a full buffer or a closed client drops the message.
func (c *Client) enqueue(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
