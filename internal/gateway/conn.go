package gateway

import (
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/yanun0323/errors"

	"cryptoflow/pkg/exception"
)

const _writeWait = 5 * time.Second

// Conn adapts a server-side gobwas connection to hub.Transport.
type Conn struct {
	conn      net.Conn
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

func (c *Conn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return exception.ErrWebSocketConnectionClose
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(_writeWait))
	if err := wsutil.WriteServerText(c.conn, msg); err != nil {
		return errors.Wrap(err, "write server text")
	}
	return nil
}

func (c *Conn) writeControl(op ws.OpCode, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return exception.ErrWebSocketConnectionClose
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(_writeWait))
	return wsutil.WriteServerMessage(c.conn, op, payload)
}

// Close sends a close frame and closes the socket once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		_ = c.conn.SetWriteDeadline(time.Now().Add(_writeWait))
		_, _ = c.conn.Write(ws.CompiledClose)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
