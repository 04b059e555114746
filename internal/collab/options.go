package collab

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dkeye/Presence/internal/codec"
	"github.com/dkeye/Presence/internal/core"
)

const (
	DefaultHeartbeatInterval = 3 * time.Second
	// DefaultStaleThreshold is a little over three missed heartbeats.
	DefaultStaleThreshold = 10 * time.Second
	DefaultNamespace      = "collab-"
)

type options struct {
	clock     clockwork.Clock
	identity  IdentityFunc
	codec     core.Codec
	interval  time.Duration
	threshold time.Duration
	namespace string
}

type Option func(*options)

func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithIdentity(fn IdentityFunc) Option {
	return func(o *options) { o.identity = fn }
}

func WithCodec(c core.Codec) Option {
	return func(o *options) { o.codec = c }
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

func WithStaleThreshold(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.threshold = d
		}
	}
}

// WithNamespace sets the prefix joined with the room name to form the
// channel name.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

func buildOptions(opts []Option) options {
	o := options{
		codec:     codec.JSON,
		interval:  DefaultHeartbeatInterval,
		threshold: DefaultStaleThreshold,
		namespace: DefaultNamespace,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.identity == nil {
		o.identity = DefaultIdentity(o.clock)
	}
	return o
}
