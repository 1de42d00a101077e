/*
 * MIT License
 *
 * Copyright (c) 2026 Nguyen Thanh Phuong
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/phuonguno98/unopulse/internal/dashboard"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message types exchanged with WebSocket clients.
const (
	MessageHello    = "hello"
	MessageOverview = "overview"
	MessageStatus   = "status"
	MessagePing     = "ping"
	MessagePong     = "pong"
	MessageRefresh  = "refresh"
)

// Message is one WebSocket frame.
type Message struct {
	Type      string      `json:"type"`
	ClientID  string      `json:"client_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// Hub pushes the overview to every connected client after each engine update.
type Hub struct {
	engine   *dashboard.Engine
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates a hub for engine. Call Run to start pushing updates.
func NewHub(engine *dashboard.Engine, logger *slog.Logger) *Hub {
	return &Hub{
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is already served with permissive CORS.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Run broadcasts the current overview whenever the engine signals an update,
// until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	updates, cancel := h.engine.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			h.Broadcast(h.currentMessage())
		}
	}
}

// currentMessage is the overview, or the feed status while no snapshot exists.
func (h *Hub) currentMessage() Message {
	now := time.Now()
	view, err := h.engine.Overview()
	if err != nil {
		return Message{Type: MessageStatus, Timestamp: now, Data: h.engine.State(), Error: err.Error()}
	}
	return Message{Type: MessageOverview, Timestamp: now, Data: view}
}

// Broadcast queues msg for every client. Clients that lag miss the message.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("Client send buffer full, skipping message", "client", c.id)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendTo queues msg for one client if it is still connected.
func (h *Hub) sendTo(id string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[id]; ok {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("WebSocket client connected", "client", c.id, "total", total)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("WebSocket client disconnected", "client", id, "total", total)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// ServeWS upgrades the request and registers the connection under a fresh id.
// The client immediately receives its id and the current overview.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
	h.add(c)

	h.sendTo(c.id, Message{Type: MessageHello, ClientID: c.id, Timestamp: time.Now()})
	h.sendTo(c.id, h.currentMessage())

	go h.writePump(c)
	go h.readPump(c)
}

// readPump handles client requests until the connection fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c.id)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket read error", "client", c.id, "error", err)
			}
			return
		}

		switch msg.Type {
		case MessagePing:
			h.sendTo(c.id, Message{Type: MessagePong, Timestamp: time.Now()})
		case MessageRefresh:
			h.sendTo(c.id, h.currentMessage())
		default:
			h.logger.Debug("Unknown WebSocket message type", "client", c.id, "type", msg.Type)
		}
	}
}

// writePump sends queued messages and keeps the connection alive with pings.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("WebSocket write error", "client", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
