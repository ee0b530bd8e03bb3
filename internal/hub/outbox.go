package hub

import "sync"

type pushResult uint8

const (
	pushQueued pushResult = iota
	// pushCoalesced replaced a pending message with the same key in place.
	pushCoalesced
	// pushEvicted queued the message after dropping the oldest pending one.
	pushEvicted
	pushClosed
)

type outboxEntry struct {
	key string
	msg []byte
}

// outbox is a subscriber's bounded FIFO. A message with a non-empty key
// overwrites the pending message carrying the same key, keeping its place in
// line. A full outbox drops its oldest message.
type outbox struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	ring     []outboxEntry
	head     int
	size     int
	// seq is the sequence number of ring[head]; pending maps keys to the
	// sequence number of their entry.
	seq     uint64
	pending map[string]uint64
	closed  bool
}

func newOutbox(capacity int) *outbox {
	if capacity <= 0 {
		capacity = 1
	}
	o := &outbox{
		ring:    make([]outboxEntry, capacity),
		pending: make(map[string]uint64),
	}
	o.notEmpty = sync.NewCond(&o.mu)
	return o
}

func (o *outbox) push(key string, msg []byte) pushResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return pushClosed
	}

	if key != "" {
		if seq, ok := o.pending[key]; ok {
			o.ring[o.index(seq)].msg = msg
			return pushCoalesced
		}
	}

	result := pushQueued
	if o.size == len(o.ring) {
		o.popHead()
		result = pushEvicted
	}

	seq := o.seq + uint64(o.size)
	o.ring[o.index(seq)] = outboxEntry{key: key, msg: msg}
	if key != "" {
		o.pending[key] = seq
	}
	o.size++
	o.notEmpty.Signal()
	return result
}

// pop blocks until a message is available or the outbox is closed.
func (o *outbox) pop() ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.size == 0 {
		if o.closed {
			return nil, false
		}
		o.notEmpty.Wait()
	}
	return o.popHead().msg, true
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	clear(o.ring)
	clear(o.pending)
	o.size = 0
	o.notEmpty.Broadcast()
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size
}

func (o *outbox) index(seq uint64) int {
	return (o.head + int(seq-o.seq)) % len(o.ring)
}

// popHead removes ring[head]. The caller holds mu and size is positive.
func (o *outbox) popHead() outboxEntry {
	e := o.ring[o.head]
	o.ring[o.head] = outboxEntry{}
	if e.key != "" && o.pending[e.key] == o.seq {
		delete(o.pending, e.key)
	}
	o.head = (o.head + 1) % len(o.ring)
	o.seq++
	o.size--
	return e
}
