package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	reasonClosed        = "closed"
	reasonHeartbeat     = "heartbeat"
	reasonProtocolError = "protocol_error"
	reasonWriteFailed   = "write_failed"
	reasonShutdown      = "shutdown"
)

// wsConn is the outbound side of one client connection. Only the write loop
// writes data frames; control frames go through WriteControl, which gorilla
// allows concurrently.
type wsConn struct {
	conn   *websocket.Conn
	remote string

	send   chan []byte
	closed chan struct{}
	alive  atomic.Bool

	closeOnce   sync.Once
	cleanupOnce sync.Once

	mu     sync.Mutex
	reason string
}

func newWsConn(c *websocket.Conn, queueSize int) *wsConn {
	wc := &wsConn{
		conn:   c,
		remote: c.RemoteAddr().String(),
		send:   make(chan []byte, queueSize),
		closed: make(chan struct{}),
	}
	wc.alive.Store(true)
	return wc
}

// Send enqueues frame without blocking.
func (c *wsConn) Send(frame []byte) error {
	select {
	case <-c.closed:
		return fmt.Errorf("%w: connection closed", domain.ErrTransport)
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("%w: send queue full", domain.ErrTransport)
	}
}

// Close tears the socket down. The first reason wins.
func (c *wsConn) Close(reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()

		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// closeWith sends a close frame with code before tearing the socket down.
func (c *wsConn) closeWith(code int, text, reason string, timeout time.Duration) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
	_ = c.Close(reason)
}

func (c *wsConn) closeReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reason == "" {
		return reasonClosed
	}
	return c.reason
}
