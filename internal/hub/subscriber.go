package hub

import (
	"sync"
	"sync/atomic"
	"time"
)

// Transport is the subscriber side of a connection.
// Close must be idempotent.
type Transport interface {
	Send(msg []byte) error
	Close() error
}

// Subscriber owns its transport and an outbox drained by one writer goroutine.
type Subscriber struct {
	id        string
	transport Transport
	outbox    *outbox
	createdAt time.Time
	lastPing  atomic.Int64

	closeOnce sync.Once
}

// SubscriberStats describes one connected subscriber.
type SubscriberStats struct {
	ID       string    `json:"id"`
	JoinedAt time.Time `json:"joinedAt"`
	LastPing time.Time `json:"lastPing"`
	Pending  int       `json:"pending"`
	Topics   []string  `json:"topics"`
}

func newSubscriber(id string, transport Transport, queueSize int, now time.Time) *Subscriber {
	s := &Subscriber{
		id:        id,
		transport: transport,
		outbox:    newOutbox(queueSize),
		createdAt: now,
	}
	s.lastPing.Store(now.UnixNano())
	return s
}

func (s *Subscriber) ID() string { return s.id }

func (s *Subscriber) CreatedAt() time.Time { return s.createdAt }

func (s *Subscriber) LastPing() time.Time {
	return time.Unix(0, s.lastPing.Load())
}

func (s *Subscriber) touch(now time.Time) {
	s.lastPing.Store(now.UnixNano())
}

func (s *Subscriber) enqueue(key string, msg []byte) pushResult {
	return s.outbox.push(key, msg)
}

// writeLoop delivers queued messages until the outbox closes or a send fails.
func (s *Subscriber) writeLoop(onFault func(*Subscriber, error)) {
	for {
		msg, ok := s.outbox.pop()
		if !ok {
			return
		}
		if err := s.transport.Send(msg); err != nil {
			onFault(s, err)
			return
		}
	}
}

func (s *Subscriber) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.outbox.close()
		err = s.transport.Close()
	})
	return err
}
