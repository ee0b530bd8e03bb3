package ingest

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"cryptoflow/internal/ingest/binance"
	"cryptoflow/internal/model"
	"cryptoflow/internal/model/enum"
	"cryptoflow/internal/obs"
	"cryptoflow/pkg/exception"
	"cryptoflow/pkg/websocket"
)

const (
	defaultStartupTimeout = 10 * time.Second
	defaultBuffer         = 4096
)

type Option struct {
	Groups         []binance.Group
	Dialer         websocket.Dialer
	Backoff        websocket.Backoff
	Thresholds     Thresholds
	StartupTimeout time.Duration
	PingInterval   time.Duration
	// Buffer is the capacity of the outbound event channel. A full channel
	// drops the event and counts it.
	Buffer  int
	Metrics *obs.Metrics
}

// Status is a point-in-time view of the ingestion layer.
type Status struct {
	Ready    bool                     `json:"ready"`
	Streams  []websocket.StreamStatus `json:"streams"`
	Degraded []string                 `json:"degraded"`
	Missing  []string                 `json:"missingAtStartup"`
}

// Supervisor owns one Stream per channel group and forwards filtered
// events to registered handlers.
type Supervisor struct {
	opt      Option
	streams  []*websocket.Stream
	handlers *Handlers
	events   chan model.Event

	mu       sync.Mutex
	opened   map[string]bool
	degraded map[string]error
	missing  []string

	ready      chan struct{}
	readyOnce  sync.Once
	isReady    atomic.Bool
	degradedCh chan string

	started atomic.Bool
}

func New(opt Option) (*Supervisor, error) {
	if len(opt.Groups) == 0 {
		return nil, exception.ErrIngestNoGroup
	}
	if opt.Dialer == nil {
		return nil, exception.ErrStreamNilDialer
	}
	if opt.StartupTimeout <= 0 {
		opt.StartupTimeout = defaultStartupTimeout
	}
	if opt.Buffer <= 0 {
		opt.Buffer = defaultBuffer
	}
	opt.Thresholds = opt.Thresholds.WithDefaults()

	s := &Supervisor{
		opt:        opt,
		handlers:   NewHandlers(opt.Metrics),
		events:     make(chan model.Event, opt.Buffer),
		opened:     make(map[string]bool, len(opt.Groups)),
		degraded:   make(map[string]error),
		ready:      make(chan struct{}),
		degradedCh: make(chan string, len(opt.Groups)),
	}

	for _, group := range opt.Groups {
		stream, err := websocket.NewStream(websocket.StreamConfig{
			Endpoint:  group.Endpoint,
			Dialer:    opt.Dialer,
			Backoff:      opt.Backoff,
			PingInterval: opt.PingInterval,
			OnMessage:    s.onMessage(group),
			OnOpen:       s.onOpen,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new stream").With("group", group.Endpoint.Name)
		}
		s.streams = append(s.streams, stream)
	}

	return s, nil
}

// OnEvent registers handler for kind. Handlers run in registration order on
// the dispatch goroutine.
func (s *Supervisor) OnEvent(kind enum.EventKind, handler Handler) error {
	return s.handlers.On(kind, handler)
}

// Run starts every stream concurrently and dispatches events until ctx is
// done. An exhausted stream degrades its group only.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return exception.ErrIngestStarted
	}

	for _, kind := range s.handlers.Unhandled() {
		logs.Infof("ingest: no handler registered for %s, those events are dropped", kind)
	}

	eg, ctx := errgroup.WithContext(ctx)

	for _, stream := range s.streams {
		eg.Go(func() error {
			err := stream.Run(ctx)
			if err != nil {
				s.degrade(stream.Endpoint().Name, err)
			}
			return nil
		})
	}

	eg.Go(func() error {
		s.awaitStartup(ctx)
		return nil
	})

	eg.Go(func() error {
		s.dispatch(ctx)
		return nil
	})

	err := eg.Wait()
	_ = s.Close()
	return err
}

// Ready is closed once every group opened at least once, or the startup
// deadline passed and ingestion continues in degraded mode.
func (s *Supervisor) Ready() <-chan struct{} {
	return s.ready
}

// Degraded yields the name of every group that gave up reconnecting.
func (s *Supervisor) Degraded() <-chan string {
	return s.degradedCh
}

// DegradedGroups returns the exhausted groups, sorted.
func (s *Supervisor) DegradedGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.degraded))
	for name := range s.degraded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Supervisor) Status() Status {
	statuses := make([]websocket.StreamStatus, 0, len(s.streams))
	for _, stream := range s.streams {
		statuses = append(statuses, stream.Status())
	}

	s.mu.Lock()
	missing := append([]string(nil), s.missing...)
	s.mu.Unlock()

	return Status{
		Ready:    s.isReady.Load(),
		Streams:  statuses,
		Degraded: s.DegradedGroups(),
		Missing:  missing,
	}
}

// Close releases every stream. It is safe to call more than once.
func (s *Supervisor) Close() error {
	var first error
	for _, stream := range s.streams {
		if err := stream.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "close stream").With("group", stream.Endpoint().Name)
		}
	}
	return first
}

func (s *Supervisor) onMessage(group binance.Group) websocket.MessageHandler {
	name := group.Endpoint.Name
	return func(ctx context.Context, payload []byte) {
		events, err := group.Decode(payload)
		if err != nil {
			s.opt.Metrics.IncDecodeFault()
			logs.Warnf("ingest %s: drop message, err: %+v", name, err)
			return
		}
		for _, ev := range events {
			for _, out := range s.opt.Thresholds.Apply(ev) {
				s.forward(name, out)
			}
		}
	}
}

func (s *Supervisor) forward(group string, ev model.Event) {
	select {
	case s.events <- ev:
	default:
		s.opt.Metrics.IncIngestDrop()
		logs.Warnf("ingest %s: event channel full, drop %s %s", group, ev.Kind(), ev.EventSymbol())
	}
}

func (s *Supervisor) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.opt.Metrics.ObserveEvent(ev.Kind(), ev.EventTime())
			s.handlers.Dispatch(ctx, ev)
		}
	}
}

func (s *Supervisor) onOpen(endpoint websocket.Endpoint) {
	s.mu.Lock()
	s.opened[endpoint.Name] = true
	all := len(s.opened) == len(s.streams)
	s.mu.Unlock()

	if all {
		s.markReady()
	}
}

func (s *Supervisor) awaitStartup(ctx context.Context) {
	timer := time.NewTimer(s.opt.StartupTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		logs.Infof("ingest: all %d channel groups connected", len(s.streams))
		return
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.mu.Lock()
	var missing []string
	for _, stream := range s.streams {
		if name := stream.Endpoint().Name; !s.opened[name] {
			missing = append(missing, name)
		}
	}
	s.missing = missing
	s.mu.Unlock()

	if len(missing) > 0 {
		logs.Errorf("ingest: startup deadline %s passed, running degraded without %v", s.opt.StartupTimeout, missing)
	}
	s.markReady()
}

func (s *Supervisor) markReady() {
	s.readyOnce.Do(func() {
		s.isReady.Store(true)
		close(s.ready)
	})
}

func (s *Supervisor) degrade(name string, err error) {
	s.mu.Lock()
	_, seen := s.degraded[name]
	s.degraded[name] = err
	s.mu.Unlock()
	if seen {
		return
	}

	logs.Errorf("ingest %s: channel group degraded, err: %+v", name, err)
	select {
	case s.degradedCh <- name:
	default:
	}
}
