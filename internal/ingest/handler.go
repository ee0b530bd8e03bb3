package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"cryptoflow/internal/model"
	"cryptoflow/internal/model/enum"
	"cryptoflow/internal/obs"
	"cryptoflow/pkg/exception"
)

// Handler reacts to one event. A returned error or a panic is logged and
// isolated from the other handlers.
type Handler func(ctx context.Context, ev model.Event) error

// Handlers maps an event kind to its handlers in registration order.
type Handlers struct {
	mu      sync.RWMutex
	byKind  map[enum.EventKind][]Handler
	metrics *obs.Metrics
}

func NewHandlers(metrics *obs.Metrics) *Handlers {
	return &Handlers{
		byKind:  make(map[enum.EventKind][]Handler),
		metrics: metrics,
	}
}

func (h *Handlers) On(kind enum.EventKind, handler Handler) error {
	if !kind.IsAvailable() {
		return errors.Wrapf(exception.ErrInvalidArgument, "event kind %d", kind)
	}
	if handler == nil {
		return exception.ErrIngestNilHandler
	}

	h.mu.Lock()
	h.byKind[kind] = append(h.byKind[kind], handler)
	h.mu.Unlock()
	return nil
}

// Dispatch runs every handler of ev's kind and returns how many failed.
func (h *Handlers) Dispatch(ctx context.Context, ev model.Event) int {
	h.mu.RLock()
	handlers := h.byKind[ev.Kind()]
	h.mu.RUnlock()

	failed := 0
	for i, handler := range handlers {
		if err := invoke(ctx, handler, ev); err != nil {
			failed++
			h.metrics.IncHandlerFailure()
			logs.Errorf("ingest: %s handler #%d failed for %s, err: %+v", ev.Kind(), i, ev.EventSymbol(), err)
		}
	}
	return failed
}

// Len returns the number of handlers registered for kind.
func (h *Handlers) Len(kind enum.EventKind) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byKind[kind])
}

// Unhandled lists the kinds with no registered handler.
func (h *Handlers) Unhandled() []enum.EventKind {
	var kinds []enum.EventKind
	for _, kind := range enum.EventKinds() {
		if h.Len(kind) == 0 {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func invoke(ctx context.Context, handler Handler, ev model.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(exception.ErrIngestHandlerPanic, fmt.Sprint(r))
		}
	}()
	return handler(ctx, ev)
}
