package memory

import (
	"sync"

	"github.com/dkeye/Presence/internal/core"
)

// handle is one subscription. Inbound frames are queued and handed to fn
// from a single goroutine, so fn never runs concurrently with itself.
type handle struct {
	bus  *Bus
	name string
	fn   func(core.Frame)
	in   chan core.Frame
	done chan struct{}

	once sync.Once
}

func (h *handle) Publish(f core.Frame) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	return h.bus.publish(h, f)
}

func (h *handle) trySend(f core.Frame) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.in <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (h *handle) Close() {
	h.once.Do(func() {
		close(h.done)
		h.bus.remove(h)
	})
}

func (h *handle) pump() {
	for {
		select {
		case <-h.done:
			return
		case f := <-h.in:
			if h.fn != nil {
				h.fn(f)
			}
		}
	}
}
