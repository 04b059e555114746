// Package collab implements room presence: a participant announces itself
// on a shared channel, tracks the peers it hears heartbeats from, evicts
// peers that go quiet and dispatches every inbound message to typed
// handlers.
//
// A Service starts Connected if its channel opens and becomes
// Disconnected for good on Disconnect. If the channel cannot be opened the
// Service stays Disconnected and every operation is a silent no-op.
package collab

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

type Service struct {
	room      domain.RoomName
	id        domain.ClientID
	clock     clockwork.Clock
	codec     core.Codec
	interval  time.Duration
	threshold time.Duration

	// pubMu orders publishes against Disconnect: once the final LEAVE
	// is sent nothing else reaches the channel.
	pubMu sync.Mutex

	mu        sync.Mutex
	channel   core.Channel
	connected bool
	closed    bool
	stop      context.CancelFunc
	handlers  *registry
	lastSeen  map[domain.ClientID]time.Time
}

// New joins room on t. Failure to open the channel is logged and leaves
// the returned Service inert.
func New(t core.Transport, room domain.RoomName, opts ...Option) *Service {
	o := buildOptions(opts)
	s := &Service{
		room:      room,
		id:        o.identity(),
		clock:     o.clock,
		codec:     o.codec,
		interval:  o.interval,
		threshold: o.threshold,
		handlers:  newRegistry(),
		lastSeen:  make(map[domain.ClientID]time.Time),
	}

	name := o.namespace + string(room)
	ch, err := t.Open(name, s.receive)
	if err != nil {
		log.Error().Err(err).Str("module", "collab").Str("room", string(room)).Str("channel", name).Msg("channel unavailable, presence offline")
		return s
	}

	s.mu.Lock()
	s.channel = ch
	s.connected = true
	s.mu.Unlock()

	s.startHeartbeat()
	log.Info().Str("module", "collab").Str("room", string(room)).Str("client", string(s.id)).Msg("connected")
	return s
}

func (s *Service) ClientID() domain.ClientID { return s.id }

func (s *Service) Room() domain.RoomName { return s.room }

// ConnectionStatus reports whether the room channel is open.
func (s *Service) ConnectionStatus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// ConnectedClients returns a sorted snapshot of the peers currently
// considered present. The Service itself is never included.
func (s *Service) ConnectedClients() []domain.ClientID {
	s.mu.Lock()
	out := make([]domain.ClientID, 0, len(s.lastSeen))
	for id := range s.lastSeen {
		out = append(out, id)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// On registers fn for t and returns an id for Off. After Disconnect it
// registers nothing and returns 0.
func (s *Service) On(t domain.MessageType, fn Handler) HandlerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || fn == nil {
		return 0
	}
	return s.handlers.add(t, fn)
}

// Off removes one registration. Unknown ids are ignored.
func (s *Service) Off(t domain.MessageType, id HandlerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers.remove(t, id)
}

// Broadcast publishes a message of type t stamped with this client's id
// and the current time. It does nothing while disconnected; publish
// failures are logged and dropped.
func (s *Service) Broadcast(t domain.MessageType, p domain.Payload) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	ch, ok := s.channel, s.connected
	s.mu.Unlock()
	if !ok {
		return
	}
	s.publish(ch, s.message(t, p))
}

func (s *Service) message(t domain.MessageType, p domain.Payload) domain.Message {
	return domain.Message{
		Type:     t,
		SenderID: s.id,
		SentAt:   s.clock.Now().UnixMilli(),
		Payload:  p,
	}
}

func (s *Service) publish(ch core.Channel, m domain.Message) {
	f, err := s.codec.Encode(m)
	if err != nil {
		log.Error().Err(err).Str("module", "collab").Str("type", string(m.Type)).Msg("encode")
		return
	}
	if err := ch.Publish(f); err != nil {
		log.Error().Err(err).Str("module", "collab").Str("room", string(s.room)).Str("type", string(m.Type)).Msg("broadcast failed")
		return
	}
	log.Debug().Str("module", "collab").Str("client", string(s.id)).Str("type", string(m.Type)).Msg("broadcast")
}

// receive is the channel callback. Frames from this client are ignored;
// heartbeat-class frames refresh the sender's entry and an explicit LEAVE
// drops it before handlers run.
func (s *Service) receive(f core.Frame) {
	m, err := s.codec.Decode(f)
	if err != nil {
		log.Warn().Err(err).Str("module", "collab").Str("room", string(s.room)).Msg("bad frame")
		return
	}
	if m.SenderID == s.id {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	switch {
	case m.Type.IsHeartbeat():
		if _, known := s.lastSeen[m.SenderID]; !known {
			log.Info().Str("module", "collab").Str("client", string(s.id)).Str("peer", string(m.SenderID)).Msg("peer seen")
		}
		s.lastSeen[m.SenderID] = time.UnixMilli(m.SentAt)
	case m.Type == domain.MsgLeave:
		delete(s.lastSeen, m.SenderID)
	}
	hs := s.handlers.snapshot(m.Type)
	s.mu.Unlock()

	for _, h := range hs {
		h(m)
	}
}

// Disconnect stops the heartbeat, sends a final LEAVE and releases the
// channel. A broadcast in flight finishes before the LEAVE; none starts
// after it. Safe to call more than once.
func (s *Service) Disconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	ch, wasConnected := s.channel, s.connected
	s.channel = nil
	s.connected = false
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if !wasConnected {
		return
	}
	// Waits for a heartbeat already inside Publish.
	s.pubMu.Lock()
	s.publish(ch, s.message(domain.MsgLeave, nil))
	ch.Close()
	s.pubMu.Unlock()
	log.Info().Str("module", "collab").Str("room", string(s.room)).Str("client", string(s.id)).Msg("disconnected")
}
