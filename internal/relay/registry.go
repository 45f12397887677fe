// Package relay is the transport layer: it owns the websocket endpoint and
// the mapping from client id to live connection. It never touches
// conversation state.
package relay

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the write half of a transport handle. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// Registry maps client ids to transport handles. Delivery is best-effort:
// sending to an id that already disconnected is a silent no-op, because
// pipeline results routinely race against disconnection.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*entry
}

type entry struct {
	mu   sync.Mutex // serializes writes on one connection
	conn Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*entry)}
}

// Register installs the handle for id, replacing any prior one.
func (r *Registry) Register(clientID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[clientID] = &entry{conn: conn}
}

// Unregister removes the mapping. Idempotent.
func (r *Registry) Unregister(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, clientID)
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Registry) SendText(clientID, message string) {
	r.send(clientID, websocket.TextMessage, []byte(message))
}

func (r *Registry) SendBinary(clientID string, payload []byte) {
	r.send(clientID, websocket.BinaryMessage, payload)
}

func (r *Registry) send(clientID string, messageType int, data []byte) {
	r.mu.Lock()
	e, ok := r.conns[clientID]
	r.mu.Unlock()
	if !ok {
		slog.Debug("send to unknown client dropped", "client", clientID)
		return
	}

	e.mu.Lock()
	err := e.conn.WriteMessage(messageType, data)
	e.mu.Unlock()
	if err != nil {
		slog.Warn("send failed", "client", clientID, "err", err)
	}
}
