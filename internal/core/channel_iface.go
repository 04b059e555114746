package core

import "github.com/dkeye/Presence/internal/domain"

// Transport opens named broadcast channels. Every frame published on a
// channel is delivered to all handles currently open for the same name,
// in publish order per publisher.
type Transport interface {
	// Open subscribes to name. fn is installed before Open returns and is
	// invoked sequentially for each inbound frame.
	Open(name string, fn func(Frame)) (Channel, error)
}

// Channel is one subscription on a shared channel. Closing it releases
// the subscription only; other subscribers are unaffected.
type Channel interface {
	Publish(Frame) error
	Close()
}

// Codec frames messages for a Channel.
type Codec interface {
	Name() string
	Encode(domain.Message) (Frame, error)
	Decode(Frame) (domain.Message, error)
}
