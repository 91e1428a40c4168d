package api

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Connections tracks live WebSocket chat connections per user. A user may
// have several tabs open; they all share one conversation session.
type Connections struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnections creates an empty registry.
func NewConnections() *Connections {
	return &Connections{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Get returns the connection registered for a user and connection id.
func (c *Connections) Get(userID, connID string) *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active[userID][connID]
}

// Register adds a connection.
func (c *Connections) Register(userID, connID string, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.active[userID]; !exists {
		c.active[userID] = make(map[string]*websocket.Conn)
	}
	c.active[userID][connID] = conn
	slog.Debug("Chat connection registered", "user_id", userID, "conn_id", connID)
}

// Unregister removes a connection if it is still the registered one.
func (c *Connections) Unregister(userID, connID string, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conns, ok := c.active[userID]
	if !ok {
		return
	}
	if current, exists := conns[connID]; exists && current == conn {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(c.active, userID)
		}
		slog.Debug("Chat connection unregistered", "user_id", userID, "conn_id", connID)
	}
}

// Count returns the number of live connections.
func (c *Connections) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, conns := range c.active {
		n += len(conns)
	}
	return n
}

// CloseAll closes every connection, used on shutdown.
func (c *Connections) CloseAll(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for userID, conns := range c.active {
		for _, conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, reason)
		}
		delete(c.active, userID)
	}
}
