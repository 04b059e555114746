package app

import (
	"context"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/collab"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// Orchestrator wires hosted sessions to presence services and keeps the
// registry and room counts in step.
type Orchestrator struct {
	Registry  *Registry
	Rooms     *RoomManager
	Policy    Policy
	Transport core.Transport
	Clock     clockwork.Clock
	Refresh   time.Duration
	Options   []collab.Option
}

// Join starts a presence for opts.Room and binds it. The returned context
// is canceled when the session is kicked, its room evicted or it leaves;
// after a kick the caller must call Leave.
func (o *Orchestrator) Join(parent context.Context, opts PresenceOptions) (*Presence, context.Context) {
	if opts.Clock == nil {
		opts.Clock = o.Clock
	}
	if opts.Refresh <= 0 {
		opts.Refresh = o.Refresh
	}
	ctx, cancel := context.WithCancel(parent)
	p := NewPresence(o.Transport, opts, o.Options...)
	o.Rooms.Acquire(p.Room())
	o.Registry.Bind(p, cancel)
	log.Info().Str("module", "app.orch").Str("client", string(p.ClientID())).Str("room", string(p.Room())).Bool("online", p.IsConnected()).Msg("joined")
	return p, ctx
}

// Leave closes the session's presence, cancels its context and forgets
// it. Unknown ids are ignored.
func (o *Orchestrator) Leave(id domain.ClientID) {
	p, ok := o.Registry.Get(id)
	if !ok {
		return
	}
	o.Registry.Unbind(id)
	o.Rooms.Release(p.Room())
	p.Close()
	log.Info().Str("module", "app.orch").Str("client", string(id)).Str("room", string(p.Room())).Msg("left")
}

// Move leaves the current room and joins another with the same callbacks.
// The session gets a new client id, like any fresh participant.
func (o *Orchestrator) Move(parent context.Context, id domain.ClientID, opts PresenceOptions) (*Presence, context.Context, bool) {
	from, ok := o.Registry.RoomOf(id)
	if !ok {
		return nil, nil, false
	}
	o.Leave(id)
	p, ctx := o.Join(parent, opts)
	log.Info().Str("module", "app.orch").Str("from_room", string(from)).Str("room", string(opts.Room)).Msg("moved")
	return p, ctx, true
}

// Kick asks the owner of id to end its session.
func (o *Orchestrator) Kick(id domain.ClientID) bool {
	return o.Registry.Cancel(id)
}

// EvictRoom kicks every local session in name and returns how many were
// kicked. The room is dropped once the kicked sessions have left.
func (o *Orchestrator) EvictRoom(name domain.RoomName) int {
	n := 0
	for _, snap := range o.Registry.MembersOfRoom(name) {
		if o.Kick(snap.ID) {
			n++
		}
	}
	return n
}

// OnBackPressure is called by adapters when a session's outbound queue
// overflows.
func (o *Orchestrator) OnBackPressure(id domain.ClientID, drops int) {
	if o.Policy == nil {
		return
	}
	p, ok := o.Registry.Get(id)
	if !ok {
		return
	}
	switch o.Policy.OnBackPressure(p, drops) {
	case KickMember:
		log.Warn().Str("module", "app.orch").Str("client", string(id)).Int("drops", drops).Msg("slow consumer kicked")
		o.Kick(id)
	case DropFrame, NoAction:
	}
}

// ListRooms reports local rooms with the number of distinct participants
// visible from this process.
func (o *Orchestrator) ListRooms() []core.RoomInfo {
	rooms := o.Rooms.List()
	for i := range rooms {
		peers, online := o.view(rooms[i].Name)
		rooms[i].Peers = len(peers)
		rooms[i].Online = online
	}
	return rooms
}

// Peers lists the participants of name visible from this process: local
// sessions plus every peer they track.
func (o *Orchestrator) Peers(name domain.RoomName) ([]domain.PeerInfo, bool) {
	if !o.Rooms.Has(name) {
		return nil, false
	}
	peers, _ := o.view(name)
	out := make([]domain.PeerInfo, 0, len(peers))
	for id, local := range peers {
		out = append(out, domain.PeerInfo{ID: id, Self: local})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, true
}

func (o *Orchestrator) view(name domain.RoomName) (map[domain.ClientID]bool, bool) {
	peers := make(map[domain.ClientID]bool)
	online := false
	for _, snap := range o.Registry.MembersOfRoom(name) {
		peers[snap.ID] = true
		if !snap.Presence.IsConnected() {
			continue
		}
		online = true
		for _, id := range snap.Presence.ConnectedClients() {
			if _, ok := peers[id]; !ok {
				peers[id] = false
			}
		}
	}
	return peers, online
}
