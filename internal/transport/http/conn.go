package http

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// wsConn adapts a websocket connection to core.Conn. Writes are
// serialized with a mutex because replies come from the connection's
// own goroutine while broadcasts arrive from other connections'
// goroutines.
type wsConn struct {
	id           string
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

func newWSConn(id string, conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{id: id, conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}
