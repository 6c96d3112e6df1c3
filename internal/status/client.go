// Package status broadcasts replay lifecycle snapshots to subscribed
// WebSocket clients, adapting the feed simulator's client/manager/handler
// fan-out shape (internal/session in the teacher repo) from per-symbol ITCH
// messages to a single coordinator.State stream.
package status

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Client represents a connected WebSocket subscriber.
type Client struct {
	ID   uint64
	Conn *websocket.Conn

	sendCh chan []byte
	done   chan struct{}

	closeOnce sync.Once

	// Dropped counts snapshots discarded because the client's send buffer
	// was full — a slow reader falls behind rather than blocking Notify.
	Dropped uint64
}

var clientIDCounter uint64

// NewClient wraps a WebSocket connection with a buffered send channel.
func NewClient(conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		ID:     atomic.AddUint64(&clientIDCounter, 1),
		Conn:   conn,
		sendCh: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// Send enqueues a snapshot for delivery. Returns false if the client's
// buffer is full, in which case the snapshot is dropped rather than
// blocking the broadcaster.
func (c *Client) Send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		atomic.AddUint64(&c.Dropped, 1)
		return false
	}
}

// SendCh returns the send channel consumed by the write pump.
func (c *Client) SendCh() <-chan []byte {
	return c.sendCh
}

// Done returns a channel closed when the client disconnects.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close terminates the client connection, idempotently.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}
