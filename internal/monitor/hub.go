// Package monitor turns host events into notifier calls. A Hub delivers
// every inbound event, in arrival order, to a fixed set of reactors on a
// single goroutine; the reactors never touch notifier state directly.
package monitor

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Handler reacts to a single host event.
type Handler interface {
	Handle(ev domain.Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ev domain.Event)

// Handle calls f(ev).
func (f HandlerFunc) Handle(ev domain.Event) { f(ev) }

// Hub fans events out to handlers.
type Hub struct {
	handlers []Handler
	log      *logger.Logger
}

// NewHub creates a hub. Handlers run in the order given.
func NewHub(log *logger.Logger, handlers ...Handler) *Hub {
	return &Hub{handlers: handlers, log: log}
}

// Run consumes events until ctx is done or the channel is closed.
// Blocks; call it on its own goroutine.
func (h *Hub) Run(ctx context.Context, events <-chan domain.Event) {
	h.log.Info("event hub started (%d handlers)", len(h.handlers))
	for {
		select {
		case <-ctx.Done():
			h.log.Info("event hub stopped")
			return
		case ev, ok := <-events:
			if !ok {
				h.log.Info("event hub: source closed")
				return
			}
			h.Dispatch(ev)
		}
	}
}

// Dispatch delivers ev to every handler synchronously. A panicking handler
// is logged and skipped so the remaining handlers still see the event.
func (h *Hub) Dispatch(ev domain.Event) {
	if err := ev.Validate(); err != nil {
		h.log.Warn("event hub: dropping event: %v", err)
		return
	}
	h.log.Debug("event %s (source=%s, path=%s)", ev.Type, ev.Source, ev.Path)
	for i, handler := range h.handlers {
		if err := safeHandle(handler, ev); err != nil {
			h.log.Error("event hub: handler %d on %s: %v", i, ev.Type, err)
		}
	}
}

func safeHandle(handler Handler, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	handler.Handle(ev)
	return nil
}
