package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// RoomManager counts the local sessions of every room this process takes
// part in. A room exists while at least one session holds it.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]int
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomName]int)}
}

func (m *RoomManager) Acquire(name domain.RoomName) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[name]++
	return m.rooms[name]
}

// Release drops one session from name and forgets the room at zero.
func (m *RoomManager) Release(name domain.RoomName) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rooms[name]
	if !ok {
		return 0
	}
	n--
	if n <= 0 {
		delete(m.rooms, name)
		return 0
	}
	m.rooms[name] = n
	return n
}

func (m *RoomManager) Has(name domain.RoomName) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[name]
	return ok
}

// List returns rooms sorted by name with their local session counts.
func (m *RoomManager) List() []core.RoomInfo {
	m.mu.RLock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for name, n := range m.rooms {
		out = append(out, core.RoomInfo{Name: name, Sessions: n})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
