package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"cryptoflow/pkg/exception"
)

// DefaultPingInterval is the keepalive period of an open stream.
const DefaultPingInterval = 30 * time.Second

// StreamConfig configures a Stream.
type StreamConfig struct {
	Endpoint  Endpoint
	Dialer    Dialer
	Backoff   Backoff
	OnMessage MessageHandler
	// PingInterval is how often an open stream pings the peer. The pong
	// refreshes the dialer's read deadline. Negative disables it.
	PingInterval time.Duration
	// OnOpen is called every time the transport reaches StateOpen.
	OnOpen func(endpoint Endpoint)
	// OnState observes every state transition.
	OnState func(endpoint Endpoint, from, to State)
}

// StreamStatus is a point-in-time view of a Stream.
type StreamStatus struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	State     string    `json:"state"`
	Attempts  int       `json:"attempts"`
	LastOpen  time.Time `json:"lastOpen"`
	Exhausted bool      `json:"exhausted"`
}

// Stream owns one upstream transport and reconnects it with a bounded budget.
type Stream struct {
	cfg StreamConfig

	mu        sync.Mutex
	state     State
	attempts  int
	lastOpen  time.Time
	conn      Conn
	cancel    context.CancelFunc
	closed    bool
	exhausted bool

	running atomic.Bool
}

// NewStream validates config and builds a stream in StateDisconnected.
func NewStream(cfg StreamConfig) (*Stream, error) {
	if cfg.Dialer == nil {
		return nil, exception.ErrStreamNilDialer
	}
	if cfg.OnMessage == nil {
		return nil, exception.ErrStreamNilHandler
	}
	if cfg.Endpoint.URL == "" {
		return nil, exception.ErrStreamBadEndpoint
	}
	if cfg.Backoff.isZero() {
		cfg.Backoff = DefaultBackoff()
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	return &Stream{cfg: cfg}, nil
}

// Run drives the connection until ctx is done or Close is called, returning nil,
// or until the reconnect budget is used up, returning ErrStreamExhausted.
func (s *Stream) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return exception.ErrStreamRunning
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return exception.ErrStreamClosed
	}
	s.cancel = cancel
	s.mu.Unlock()

	name := s.cfg.Endpoint.Name
	for {
		if s.stopped(ctx) {
			s.transition(StateDisconnected)
			return nil
		}

		err := s.connectAndServe(ctx)
		if s.stopped(ctx) {
			s.transition(StateDisconnected)
			return nil
		}

		s.transition(StateFaulted)
		attempt := s.fault()
		s.transition(StateDisconnected)

		if s.cfg.Backoff.Exhausted(attempt) {
			s.mu.Lock()
			s.exhausted = true
			s.mu.Unlock()
			logs.Errorf("stream %s: giving up after %d reconnect attempts, err: %+v", name, attempt-1, err)
			return exception.ErrStreamExhausted
		}

		wait := s.cfg.Backoff.Next(attempt)
		logs.Warnf("stream %s: transport fault, reconnect in %s (attempt %d), err: %+v", name, wait, attempt, err)
		if !sleep(ctx, wait) {
			s.transition(StateDisconnected)
			return nil
		}
	}
}

// Close shuts the stream down for good and releases the transport.
// Calling Close more than once is a no-op.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	cancel := s.cancel
	s.mu.Unlock()

	if conn != nil {
		s.transition(StateClosing)
	}
	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	if !s.running.Load() {
		s.transition(StateDisconnected)
	}
	return err
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts returns the consecutive failed reconnect count.
func (s *Stream) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Endpoint returns the endpoint descriptor the stream was built with.
func (s *Stream) Endpoint() Endpoint {
	return s.cfg.Endpoint
}

// Status returns a snapshot for health reporting.
func (s *Stream) Status() StreamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StreamStatus{
		Name:      s.cfg.Endpoint.Name,
		URL:       s.cfg.Endpoint.URL,
		State:     s.state.String(),
		Attempts:  s.attempts,
		LastOpen:  s.lastOpen,
		Exhausted: s.exhausted,
	}
}

func (s *Stream) connectAndServe(ctx context.Context) error {
	conn, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer s.release(conn)

	return s.serve(ctx, conn)
}

// open makes a single connect attempt. Run is the only caller, so at most one
// attempt is in flight per stream.
func (s *Stream) open(ctx context.Context) (Conn, error) {
	s.transition(StateConnecting)

	conn, err := s.cfg.Dialer.Dial(ctx, s.cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, exception.ErrStreamClosed
	}
	old := s.conn
	s.conn = conn
	s.attempts = 0
	s.lastOpen = time.Now()
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	s.transition(StateOpen)
	logs.Infof("stream %s: connected to %s", s.cfg.Endpoint.Name, s.cfg.Endpoint.URL)
	if s.cfg.OnOpen != nil {
		s.cfg.OnOpen(s.cfg.Endpoint)
	}
	return conn, nil
}

func (s *Stream) serve(ctx context.Context, conn Conn) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if s.cfg.PingInterval > 0 {
		pingCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go s.keepalive(pingCtx, conn)
	}

	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if msgType != MessageText && msgType != MessageBinary {
			continue
		}
		if len(payload) == 0 {
			continue
		}
		s.cfg.OnMessage(ctx, payload)
	}
}

// keepalive pings conn until ctx is done. A failed ping closes conn so the
// blocked read returns and the fault path runs.
func (s *Stream) keepalive(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Write(ctx, MessagePing, nil); err != nil {
				if ctx.Err() == nil {
					logs.Warnf("stream %s: ping failed, err: %+v", s.cfg.Endpoint.Name, err)
					_ = conn.Close()
				}
				return
			}
		}
	}
}

func (s *Stream) release(conn Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Stream) fault() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return s.attempts
}

func (s *Stream) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if from != to && s.cfg.OnState != nil {
		s.cfg.OnState(s.cfg.Endpoint, from, to)
	}
}

func sleep(ctx context.Context, wait time.Duration) bool {
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
