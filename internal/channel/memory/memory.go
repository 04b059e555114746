// Package memory is an in-process core.Transport: every handle opened on
// the same Bus under the same name receives the frames published there.
package memory

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
)

var (
	ErrInvalidName  = errors.New("channel name empty")
	ErrClosed       = errors.New("channel closed")
	ErrBackpressure = errors.New("backpressure")
)

const defaultQueueSize = 256

type Option func(*Bus)

// WithEcho delivers frames back to the publishing handle as well.
func WithEcho() Option {
	return func(b *Bus) { b.echo = true }
}

// WithQueueSize bounds the per-handle inbound queue.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

type room struct {
	handles map[*handle]struct{}
}

type Bus struct {
	mu        sync.RWMutex
	rooms     map[string]*room
	echo      bool
	queueSize int
	dropped   atomic.Int64
	closed    bool
}

func New(opts ...Option) *Bus {
	b := &Bus{
		rooms:     make(map[string]*room),
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Open(name string, fn func(core.Frame)) (core.Channel, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	h := &handle{
		bus:  b,
		name: name,
		fn:   fn,
		in:   make(chan core.Frame, b.queueSize),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	r, ok := b.rooms[name]
	if !ok {
		r = &room{handles: make(map[*handle]struct{})}
		b.rooms[name] = r
	}
	r.handles[h] = struct{}{}
	count := len(r.handles)
	b.mu.Unlock()

	go h.pump()
	log.Debug().Str("module", "channel.memory").Str("channel", name).Int("handles", count).Msg("handle opened")
	return h, nil
}

func (b *Bus) publish(from *handle, f core.Frame) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.rooms[from.name]
	if !ok {
		return ErrClosed
	}
	if _, ok := r.handles[from]; !ok {
		return ErrClosed
	}
	for h := range r.handles {
		if h == from && !b.echo {
			continue
		}
		if err := h.trySend(f); err != nil {
			b.dropped.Add(1)
			log.Warn().Err(err).Str("module", "channel.memory").Str("channel", from.name).Msg("frame dropped")
		}
	}
	return nil
}

func (b *Bus) remove(h *handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rooms[h.name]
	if !ok {
		return
	}
	delete(r.handles, h)
	if len(r.handles) == 0 {
		delete(b.rooms, h.name)
		log.Debug().Str("module", "channel.memory").Str("channel", h.name).Msg("channel removed")
	}
}

// Stats reports open channels, open handles and frames dropped on full queues.
func (b *Bus) Stats() (channels, handles, dropped int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	channels = len(b.rooms)
	for _, r := range b.rooms {
		handles += len(r.handles)
	}
	return channels, handles, int(b.dropped.Load())
}

// Close closes every open handle. Further Open calls fail with ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	var all []*handle
	for _, r := range b.rooms {
		for h := range r.handles {
			all = append(all, h)
		}
	}
	b.mu.Unlock()
	for _, h := range all {
		h.Close()
	}
}
