package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/yanun0323/errors"

	"cryptoflow/pkg/exception"
)

const (
	DefaultDialerTimeout = 10 * time.Second
	DefaultWriteTimeout  = 5 * time.Second
	DefaultReadLimit     = 4 << 20
	// DefaultReadTimeout faults a link that delivers no frame, ping or pong
	// for this long.
	DefaultReadTimeout = 90 * time.Second
)

type dialer struct {
	dialer       gorilla.Dialer
	header       http.Header
	writeTimeout time.Duration
	readTimeout  time.Duration
	readLimit    int64
}

// DialerOption tunes the gorilla backed dialer.
type DialerOption struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64
	// ReadTimeout bounds the silence between inbound frames. Control frames
	// count, so a peer answering pings keeps a quiet link alive. Negative
	// disables the deadline.
	ReadTimeout time.Duration
	Header      http.Header
}

// NewDialer returns a Dialer backed by gorilla/websocket.
func NewDialer(opt DialerOption) Dialer {
	if opt.HandshakeTimeout <= 0 {
		opt.HandshakeTimeout = DefaultDialerTimeout
	}
	if opt.WriteTimeout <= 0 {
		opt.WriteTimeout = DefaultWriteTimeout
	}
	if opt.ReadLimit <= 0 {
		opt.ReadLimit = DefaultReadLimit
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = DefaultReadTimeout
	}
	return &dialer{
		dialer: gorilla.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opt.HandshakeTimeout,
			ReadBufferSize:   32 << 10,
			WriteBufferSize:  4 << 10,
		},
		header:       opt.Header,
		writeTimeout: opt.WriteTimeout,
		readTimeout:  opt.ReadTimeout,
		readLimit:    opt.ReadLimit,
	}
}

func (d *dialer) Dial(ctx context.Context, endpoint Endpoint) (Conn, error) {
	if endpoint.URL == "" {
		return nil, exception.ErrStreamBadEndpoint
	}
	ws, resp, err := d.dialer.DialContext(ctx, endpoint.URL, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrap(err, "dial websocket").With("endpoint", endpoint.Name)
	}
	ws.SetReadLimit(d.readLimit)

	c := &wsConn{conn: ws, writeTimeout: d.writeTimeout, readTimeout: d.readTimeout}
	ws.SetPongHandler(func(string) error {
		c.extendRead()
		return nil
	})
	ws.SetPingHandler(c.onPing)
	return c, nil
}

type wsConn struct {
	conn         *gorilla.Conn
	writeTimeout time.Duration
	readTimeout  time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
}

func (c *wsConn) extendRead() {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

func (c *wsConn) onPing(data string) error {
	c.extendRead()
	err := c.conn.WriteControl(gorilla.PongMessage, []byte(data), time.Now().Add(c.writeTimeout))
	if err == nil || errors.Is(err, gorilla.ErrCloseSent) {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil
	}
	return err
}

func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	c.extendRead()
	msgType, payload, err := c.conn.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	return MessageType(msgType), payload, nil
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if msgType == MessagePing || msgType == MessagePong {
		return c.conn.WriteControl(int(msgType), payload, deadline)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(int(msgType), payload)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			gorilla.CloseMessage,
			gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
