// Package natsbus carries room channels over a NATS connection shared by
// processes on one host. Each channel name maps to one subject; a process
// holds a single refcounted subscription per subject and fans frames out
// to its local handles.
package natsbus

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
)

var (
	ErrInvalidName = errors.New("invalid subject")
	ErrClosed      = errors.New("channel closed")
)

// Connect dials NATS with unbounded reconnects.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1*time.Second),
		nats.Name(name),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Str("module", "channel.nats").Msg("disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("module", "channel.nats").Str("url", c.ConnectedUrl()).Msg("reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

type roomSub struct {
	sub     *nats.Subscription
	handles []*handle
}

type Transport struct {
	nc *nats.Conn

	mu   sync.Mutex
	subs map[string]*roomSub
}

func New(nc *nats.Conn) *Transport {
	return &Transport{
		nc:   nc,
		subs: make(map[string]*roomSub),
	}
}

// Subject validates name as a literal NATS subject.
func Subject(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, " \t\r\n*>") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, tok := range strings.Split(name, ".") {
		if tok == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return name, nil
}

func (t *Transport) Open(name string, fn func(core.Frame)) (core.Channel, error) {
	subject, err := Subject(name)
	if err != nil {
		return nil, err
	}
	if t.nc == nil || t.nc.IsClosed() {
		return nil, nats.ErrConnectionClosed
	}
	h := &handle{t: t, subject: subject, fn: fn}

	t.mu.Lock()
	defer t.mu.Unlock()
	if rs, ok := t.subs[subject]; ok {
		rs.handles = append(rs.handles, h)
		return h, nil
	}
	sub, err := t.nc.Subscribe(subject, func(m *nats.Msg) {
		t.deliver(subject, core.Frame(m.Data))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	t.subs[subject] = &roomSub{sub: sub, handles: []*handle{h}}
	log.Debug().Str("module", "channel.nats").Str("subject", subject).Msg("subscribed")
	return h, nil
}

// deliver runs on the subscription's goroutine, so frames reach each
// handle in the order NATS delivered them.
func (t *Transport) deliver(subject string, f core.Frame) {
	t.mu.Lock()
	rs, ok := t.subs[subject]
	var handles []*handle
	if ok {
		handles = append(handles, rs.handles...)
	}
	t.mu.Unlock()

	for _, h := range handles {
		if h.isClosed() || h.fn == nil {
			continue
		}
		h.fn(f)
	}
}

func (t *Transport) release(h *handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rs, ok := t.subs[h.subject]
	if !ok {
		return
	}
	for i, cur := range rs.handles {
		if cur == h {
			rs.handles = append(rs.handles[:i], rs.handles[i+1:]...)
			break
		}
	}
	if len(rs.handles) > 0 {
		return
	}
	if err := rs.sub.Unsubscribe(); err != nil {
		log.Error().Err(err).Str("module", "channel.nats").Str("subject", h.subject).Msg("unsubscribe")
	}
	delete(t.subs, h.subject)
}

// Subscriptions returns the number of live NATS subscriptions.
func (t *Transport) Subscriptions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

type handle struct {
	t       *Transport
	subject string
	fn      func(core.Frame)

	mu     sync.RWMutex
	closed bool
}

func (h *handle) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

func (h *handle) Publish(f core.Frame) error {
	if h.isClosed() {
		return ErrClosed
	}
	return h.t.nc.Publish(h.subject, f)
}

func (h *handle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()
	h.t.release(h)
}
