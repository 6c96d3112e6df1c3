package status

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/quantreplay/replay-engine/internal/coordinator"
)

// defaultBufferSize bounds how many undelivered snapshots a client may
// queue before new ones start getting dropped.
const defaultBufferSize = 16

// Manager fans a coordinator.State snapshot out to every connected
// subscriber. It implements coordinator.Notifier.
type Manager struct {
	mu         sync.RWMutex
	clients    map[uint64]*Client
	bufferSize int
}

// NewManager creates a status stream manager.
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[uint64]*Client),
		bufferSize: defaultBufferSize,
	}
}

// Register adds a new client and returns it for the handler's read/write
// pumps.
func (m *Manager) Register(conn *websocket.Conn) *Client {
	c := NewClient(conn, m.bufferSize)

	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()

	log.Printf("status: client %d connected (%s)", c.ID, conn.RemoteAddr())
	return c
}

// Unregister removes and closes a client.
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	delete(m.clients, c.ID)
	m.mu.Unlock()

	c.Close()
	log.Printf("status: client %d disconnected", c.ID)
}

// Notify encodes state once and fans it out to every subscriber. It
// satisfies coordinator.Notifier.
func (m *Manager) Notify(state coordinator.State) {
	data, err := json.Marshal(state)
	if err != nil {
		log.Printf("status: encode snapshot: %v", err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		c.Send(data)
	}
}

// ClientCount returns the number of connected subscribers.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
