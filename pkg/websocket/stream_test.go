package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"cryptoflow/pkg/exception"
)

type fakeConn struct {
	msgs      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	closes    atomic.Int32
}

func newFakeConn(msgs ...string) *fakeConn {
	c := &fakeConn{
		msgs:   make(chan []byte, len(msgs)),
		closed: make(chan struct{}),
	}
	for _, m := range msgs {
		c.msgs <- []byte(m)
	}
	return c
}

func (c *fakeConn) Read(ctx context.Context) (MessageType, []byte, error) {
	select {
	case msg := <-c.msgs:
		return MessageText, msg, nil
	case <-c.closed:
		return 0, nil, exception.ErrWebSocketConnectionClose
	}
}

func (c *fakeConn) Write(context.Context, MessageType, []byte) error { return nil }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		c.closes.Add(1)
		close(c.closed)
	})
	return nil
}

var errDialRefused = errors.New("dial refused")

func fastBackoff() Backoff {
	return Backoff{Base: time.Millisecond, Max: 4 * time.Millisecond, MaxAttempts: 5}
}

func TestStreamExhaustsAfterMaxAttempts(t *testing.T) {
	var dials atomic.Int32
	dialer := DialerFunc(func(ctx context.Context, ep Endpoint) (Conn, error) {
		dials.Add(1)
		return nil, errDialRefused
	})

	s, err := NewStream(StreamConfig{
		Endpoint:  Endpoint{Name: "test", URL: "ws://unused"},
		Dialer:    dialer,
		Backoff:   fastBackoff(),
		OnMessage: func(context.Context, []byte) {},
	})
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.True(t, errors.Is(err, exception.ErrStreamExhausted))
	// one initial attempt plus five reconnects, never a sixth reconnect
	assert.Equal(t, int32(6), dials.Load())
	assert.Equal(t, StateDisconnected, s.State())
	assert.True(t, s.Status().Exhausted)
}

func TestStreamResetsAttemptsOnOpen(t *testing.T) {
	var dials atomic.Int32
	conn := newFakeConn(`{"a":1}`, `{"a":2}`)
	dialer := DialerFunc(func(ctx context.Context, ep Endpoint) (Conn, error) {
		if dials.Add(1) <= 2 {
			return nil, errDialRefused
		}
		return conn, nil
	})

	got := make(chan string, 4)
	opened := make(chan struct{}, 1)
	s, err := NewStream(StreamConfig{
		Endpoint: Endpoint{Name: "test", URL: "ws://unused"},
		Dialer:   dialer,
		Backoff:  fastBackoff(),
		OnMessage: func(_ context.Context, payload []byte) {
			got <- string(payload)
		},
		OnOpen: func(Endpoint) { opened <- struct{}{} },
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("stream never opened")
	}
	assert.Equal(t, `{"a":1}`, <-got)
	assert.Equal(t, `{"a":2}`, <-got)
	assert.Equal(t, 0, s.Attempts())
	assert.Equal(t, StateOpen, s.State())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return after close")
	}
	assert.Equal(t, int32(1), conn.closes.Load())
	assert.Equal(t, StateDisconnected, s.State())
}

func TestStreamRejectsSecondRun(t *testing.T) {
	conn := newFakeConn()
	s, err := NewStream(StreamConfig{
		Endpoint:  Endpoint{Name: "test", URL: "ws://unused"},
		Dialer:    DialerFunc(func(context.Context, Endpoint) (Conn, error) { return conn, nil }),
		OnMessage: func(context.Context, []byte) {},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.State() == StateOpen }, time.Second, time.Millisecond)
	require.True(t, errors.Is(s.Run(ctx), exception.ErrStreamRunning))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), conn.closes.Load())
}

func TestStreamRunAfterClose(t *testing.T) {
	s, err := NewStream(StreamConfig{
		Endpoint:  Endpoint{Name: "test", URL: "ws://unused"},
		Dialer:    DialerFunc(func(context.Context, Endpoint) (Conn, error) { return newFakeConn(), nil }),
		OnMessage: func(context.Context, []byte) {},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.True(t, errors.Is(s.Run(context.Background()), exception.ErrStreamClosed))
}

func TestNewStreamValidates(t *testing.T) {
	_, err := NewStream(StreamConfig{Endpoint: Endpoint{URL: "ws://x"}, OnMessage: func(context.Context, []byte) {}})
	require.True(t, errors.Is(err, exception.ErrStreamNilDialer))

	_, err = NewStream(StreamConfig{Endpoint: Endpoint{URL: "ws://x"}, Dialer: NewDialer(DialerOption{})})
	require.True(t, errors.Is(err, exception.ErrStreamNilHandler))

	_, err = NewStream(StreamConfig{Dialer: NewDialer(DialerOption{}), OnMessage: func(context.Context, []byte) {}})
	require.True(t, errors.Is(err, exception.ErrStreamBadEndpoint))
}

func TestStreamWithGorillaDialer(t *testing.T) {
	upgrader := gorilla.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.WriteMessage(gorilla.TextMessage, []byte(`{"stream":"btcusdt@aggTrade","data":{}}`))
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	got := make(chan []byte, 1)
	s, err := NewStream(StreamConfig{
		Endpoint: Endpoint{Name: "aggTrade", URL: "ws" + strings.TrimPrefix(srv.URL, "http")},
		Dialer:   NewDialer(DialerOption{HandshakeTimeout: time.Second}),
		OnMessage: func(_ context.Context, payload []byte) {
			select {
			case got <- payload:
			default:
			}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case payload := <-got:
		assert.Contains(t, string(payload), "btcusdt@aggTrade")
	case <-time.After(2 * time.Second):
		t.Fatal("no message from server")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func silentServer(t *testing.T, answerPings bool) (string, *atomic.Int32) {
	t.Helper()
	var accepted atomic.Int32
	release := make(chan struct{})
	upgrader := gorilla.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		accepted.Add(1)
		if !answerPings {
			<-release
			return
		}
		go func() {
			<-release
			_ = c.Close()
		}()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &accepted
}

func TestStreamFaultsOnStalledUpstream(t *testing.T) {
	url, accepted := silentServer(t, false)

	var faults atomic.Int32
	s, err := NewStream(StreamConfig{
		Endpoint:     Endpoint{Name: "stalled", URL: url},
		Dialer:       NewDialer(DialerOption{HandshakeTimeout: time.Second, ReadTimeout: 150 * time.Millisecond}),
		Backoff:      fastBackoff(),
		PingInterval: 40 * time.Millisecond,
		OnMessage:    func(context.Context, []byte) {},
		OnState: func(_ Endpoint, _, to State) {
			if to == StateFaulted {
				faults.Add(1)
			}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return faults.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return accepted.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestStreamPongKeepsQuietLinkOpen(t *testing.T) {
	url, accepted := silentServer(t, true)

	var faults atomic.Int32
	s, err := NewStream(StreamConfig{
		Endpoint:     Endpoint{Name: "quiet", URL: url},
		Dialer:       NewDialer(DialerOption{HandshakeTimeout: time.Second, ReadTimeout: 150 * time.Millisecond}),
		Backoff:      fastBackoff(),
		PingInterval: 40 * time.Millisecond,
		OnMessage:    func(context.Context, []byte) {},
		OnState: func(_ Endpoint, _, to State) {
			if to == StateFaulted {
				faults.Add(1)
			}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.State() == StateOpen }, time.Second, time.Millisecond)
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, StateOpen, s.State())
	assert.Equal(t, int32(0), faults.Load())
	assert.Equal(t, int32(1), accepted.Load())

	cancel()
	require.NoError(t, <-done)
}
