package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/collab"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

const DefaultRefresh = time.Second

var (
	ErrNotApplicationType = errors.New("message type is reserved for the presence layer")
	ErrPayloadMismatch    = errors.New("payload does not match message type")
)

// PresenceOptions configures a Presence. Message callbacks run on the
// channel's delivery goroutine and must not block. OnClientsChanged may
// also run on the refresh goroutine; its calls never overlap and arrive
// in the order the snapshots were taken.
type PresenceOptions struct {
	Room domain.RoomName

	OnJoin         func(domain.ClientID)
	OnLeave        func(domain.ClientID)
	OnActivity     func(domain.ClientID, domain.ActivityPayload)
	OnStatusUpdate func(domain.ClientID, domain.StatusPayload)
	OnSyncState    func(domain.ClientID, domain.SyncStatePayload)
	// OnClientsChanged fires whenever the refreshed peer list differs
	// from the previous one.
	OnClientsChanged func([]domain.ClientID)

	Refresh time.Duration
	Clock   clockwork.Clock
}

// Presence adapts one collab.Service for a host session: it mirrors the
// peer list, forwards typed callbacks and limits outbound traffic to
// application message types.
type Presence struct {
	svc  *collab.Service
	opts PresenceOptions

	// refreshMu serializes refresh so change notifications stay ordered.
	refreshMu sync.Mutex

	mu      sync.Mutex
	clients []domain.ClientID

	stop context.CancelFunc
	once sync.Once
}

func NewPresence(t core.Transport, opts PresenceOptions, svcOpts ...collab.Option) *Presence {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	svcOpts = append([]collab.Option{collab.WithClock(opts.Clock)}, svcOpts...)

	p := &Presence{
		svc:     collab.New(t, opts.Room, svcOpts...),
		opts:    opts,
		clients: []domain.ClientID{},
	}
	p.mount()
	return p
}

func (p *Presence) mount() {
	s := p.svc
	s.On(domain.MsgJoin, func(m domain.Message) {
		if p.opts.OnJoin != nil {
			p.opts.OnJoin(m.SenderID)
		}
		// Answer so the newcomer learns about us before our next heartbeat.
		s.Broadcast(domain.MsgPresence, nil)
		p.refresh()
	})
	s.On(domain.MsgLeave, func(m domain.Message) {
		if p.opts.OnLeave != nil {
			p.opts.OnLeave(m.SenderID)
		}
		p.refresh()
	})
	s.On(domain.MsgActivity, func(m domain.Message) {
		if p.opts.OnActivity != nil {
			pl, _ := m.Payload.(domain.ActivityPayload)
			p.opts.OnActivity(m.SenderID, pl)
		}
	})
	s.On(domain.MsgUpdateStatus, func(m domain.Message) {
		if p.opts.OnStatusUpdate != nil {
			pl, _ := m.Payload.(domain.StatusPayload)
			p.opts.OnStatusUpdate(m.SenderID, pl)
		}
	})
	s.On(domain.MsgSyncState, func(m domain.Message) {
		if p.opts.OnSyncState != nil {
			pl, _ := m.Payload.(domain.SyncStatePayload)
			p.opts.OnSyncState(m.SenderID, pl)
		}
	})
	s.On(domain.MsgHeartbeat, func(domain.Message) { p.refresh() })
	s.On(domain.MsgPresence, func(domain.Message) { p.refresh() })

	s.Broadcast(domain.MsgJoin, nil)

	ctx, cancel := context.WithCancel(context.Background())
	p.stop = cancel
	ticker := p.opts.Clock.NewTicker(p.opts.Refresh)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				p.refresh()
			}
		}
	}()
}

func (p *Presence) refresh() {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	next := p.svc.ConnectedClients()
	p.mu.Lock()
	changed := !slices.Equal(p.clients, next)
	p.clients = next
	p.mu.Unlock()
	if changed && p.opts.OnClientsChanged != nil {
		p.opts.OnClientsChanged(slices.Clone(next))
	}
}

func (p *Presence) IsConnected() bool { return p.svc.ConnectionStatus() }

func (p *Presence) ClientID() domain.ClientID { return p.svc.ClientID() }

func (p *Presence) Room() domain.RoomName { return p.svc.Room() }

// ConnectedClients returns the last refreshed peer list.
func (p *Presence) ConnectedClients() []domain.ClientID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.clients)
}

// Broadcast sends an application message. JOIN, LEAVE, HEARTBEAT and
// PRESENCE are rejected; a disconnected presence drops the message.
func (p *Presence) Broadcast(t domain.MessageType, pl domain.Payload) error {
	if !t.IsApplication() {
		return ErrNotApplicationType
	}
	if pl != nil && pl.MessageType() != t {
		return ErrPayloadMismatch
	}
	p.svc.Broadcast(t, pl)
	return nil
}

// Close tears the presence down. Only the first call has an effect.
func (p *Presence) Close() {
	p.once.Do(func() {
		p.stop()
		p.svc.Disconnect()
		log.Debug().Str("module", "app.presence").Str("client", string(p.ClientID())).Msg("presence closed")
	})
}
