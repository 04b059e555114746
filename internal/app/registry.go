package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

type sessionEntry struct {
	Room     domain.RoomName
	Presence *Presence
	Cancel   context.CancelFunc
}

// Registry tracks the presence sessions hosted by this process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ClientID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ClientID]*sessionEntry),
	}
}

func (r *Registry) Bind(p *Presence, cancel context.CancelFunc) {
	id := p.ClientID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &sessionEntry{
		Room:     p.Room(),
		Presence: p,
		Cancel:   cancel,
	}
	log.Info().Str("module", "app.registry").Str("client", string(id)).Str("room", string(p.Room())).Msg("bound session")
}

func (r *Registry) Get(id domain.ClientID) (*Presence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[id]; ok {
		return e.Presence, true
	}
	return nil, false
}

func (r *Registry) RoomOf(id domain.ClientID) (domain.RoomName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	return e.Room, true
}

// Unbind forgets id and cancels its session context.
func (r *Registry) Unbind(id domain.ClientID) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok && e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("client", string(id)).Msg("unbind session")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

type regSnap struct {
	ID       domain.ClientID
	Presence *Presence
}

func (r *Registry) MembersOfRoom(name domain.RoomName) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.sessions))
	for id, e := range r.sessions {
		if e.Room == name {
			out = append(out, regSnap{ID: id, Presence: e.Presence})
		}
	}
	return out
}

// Cancel signals the owner of a session to shut it down.
func (r *Registry) Cancel(id domain.ClientID) bool {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("client", string(id)).Msg("canceled session")
	return true
}
