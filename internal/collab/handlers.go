package collab

import "github.com/dkeye/Presence/internal/domain"

// Handler receives a dispatched message.
type Handler func(domain.Message)

// HandlerID names one registration. Registering the same function twice
// yields two ids, each removable on its own.
type HandlerID uint64

type registration struct {
	id HandlerID
	fn Handler
}

// registry keeps handlers per type in registration order. Not safe for
// concurrent use; Service guards it with its mutex.
type registry struct {
	next   HandlerID
	byType map[domain.MessageType][]registration
}

func newRegistry() *registry {
	return &registry{byType: make(map[domain.MessageType][]registration)}
}

func (r *registry) add(t domain.MessageType, fn Handler) HandlerID {
	r.next++
	r.byType[t] = append(r.byType[t], registration{id: r.next, fn: fn})
	return r.next
}

func (r *registry) remove(t domain.MessageType, id HandlerID) bool {
	regs := r.byType[t]
	for i, reg := range regs {
		if reg.id != id {
			continue
		}
		out := make([]registration, 0, len(regs)-1)
		out = append(out, regs[:i]...)
		out = append(out, regs[i+1:]...)
		if len(out) == 0 {
			delete(r.byType, t)
		} else {
			r.byType[t] = out
		}
		return true
	}
	return false
}

// snapshot copies the handler list so dispatch is unaffected by
// registrations made while it runs.
func (r *registry) snapshot(t domain.MessageType) []Handler {
	regs := r.byType[t]
	if len(regs) == 0 {
		return nil
	}
	out := make([]Handler, len(regs))
	for i, reg := range regs {
		out[i] = reg.fn
	}
	return out
}
