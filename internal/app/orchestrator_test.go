package app

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/channel/memory"
	"github.com/dkeye/Presence/internal/collab"
	"github.com/dkeye/Presence/internal/domain"
)

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	bus := memory.New()
	t.Cleanup(bus.Close)
	return &Orchestrator{
		Registry:  NewRegistry(),
		Rooms:     NewRoomManager(),
		Policy:    SimplePolicy{MaxDrops: 2},
		Transport: bus,
		Clock:     clockwork.NewFakeClockAt(start),
		Options:   []collab.Option{collab.WithIdentity(collab.SequentialIdentity("s"))},
	}
}

func TestOrchestrator_JoinLeave(t *testing.T) {
	o := newOrchestrator(t)

	a, _ := o.Join(context.Background(), PresenceOptions{Room: "lobby"})
	b, _ := o.Join(context.Background(), PresenceOptions{Room: "lobby"})
	c, _ := o.Join(context.Background(), PresenceOptions{Room: "other"})

	assert.Equal(t, 3, o.Registry.Len())
	rooms := o.Rooms.List()
	require.Len(t, rooms, 2)
	assert.Equal(t, domain.RoomName("lobby"), rooms[0].Name)
	assert.Equal(t, 2, rooms[0].Sessions)

	require.Eventually(t, func() bool { return len(a.ConnectedClients()) == 1 }, time.Second, 5*time.Millisecond)

	peers, ok := o.Peers("lobby")
	require.True(t, ok)
	assert.Equal(t, []domain.PeerInfo{{ID: a.ClientID(), Self: true}, {ID: b.ClientID(), Self: true}}, peers)

	listed := o.ListRooms()
	assert.Equal(t, 2, listed[0].Peers)
	assert.True(t, listed[0].Online)

	o.Leave(a.ClientID())
	o.Leave(a.ClientID())
	o.Leave(c.ClientID())
	assert.False(t, a.IsConnected())
	assert.False(t, o.Rooms.Has("other"))
	assert.Equal(t, 1, o.Rooms.List()[0].Sessions)

	_, ok = o.Peers("missing")
	assert.False(t, ok)
}

func TestOrchestrator_EvictRoom(t *testing.T) {
	o := newOrchestrator(t)
	_, ctxA := o.Join(context.Background(), PresenceOptions{Room: "lobby"})
	_, ctxB := o.Join(context.Background(), PresenceOptions{Room: "lobby"})
	_, ctxC := o.Join(context.Background(), PresenceOptions{Room: "other"})

	assert.Equal(t, 2, o.EvictRoom("lobby"))
	assert.Error(t, ctxA.Err())
	assert.Error(t, ctxB.Err())
	assert.NoError(t, ctxC.Err())
	assert.True(t, o.Rooms.Has("lobby"), "kicked sessions still hold the room")
}

func TestOrchestrator_EvictThenRejoin(t *testing.T) {
	o := newOrchestrator(t)
	old, _ := o.Join(context.Background(), PresenceOptions{Room: "lobby"})
	require.Equal(t, 1, o.EvictRoom("lobby"))

	fresh, ctx := o.Join(context.Background(), PresenceOptions{Room: "lobby"})
	o.Leave(old.ClientID())

	assert.NoError(t, ctx.Err())
	assert.True(t, fresh.IsConnected())
	assert.True(t, o.Rooms.Has("lobby"))
	// The evicted session may have answered the newcomer's JOIN before
	// its LEAVE, so wait for the LEAVE to land.
	want := []domain.PeerInfo{{ID: fresh.ClientID(), Self: true}}
	require.Eventually(t, func() bool {
		peers, ok := o.Peers("lobby")
		return ok && assert.ObjectsAreEqual(want, peers)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, o.Rooms.List()[0].Sessions)

	o.Leave(fresh.ClientID())
	assert.False(t, o.Rooms.Has("lobby"))
}

func TestOrchestrator_LeaveCancelsContext(t *testing.T) {
	o := newOrchestrator(t)
	a, ctx := o.Join(context.Background(), PresenceOptions{Room: "lobby"})

	o.Leave(a.ClientID())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestOrchestrator_Move(t *testing.T) {
	o := newOrchestrator(t)
	a, oldCtx := o.Join(context.Background(), PresenceOptions{Room: "lobby"})

	moved, ctx, ok := o.Move(context.Background(), a.ClientID(), PresenceOptions{Room: "other"})
	require.True(t, ok)
	assert.NoError(t, ctx.Err())
	assert.ErrorIs(t, oldCtx.Err(), context.Canceled)
	assert.NotEqual(t, a.ClientID(), moved.ClientID())
	assert.Equal(t, domain.RoomName("other"), moved.Room())
	assert.False(t, a.IsConnected())
	assert.False(t, o.Rooms.Has("lobby"))

	_, _, ok = o.Move(context.Background(), "nobody", PresenceOptions{Room: "x"})
	assert.False(t, ok)
}

func TestOrchestrator_OnBackPressure(t *testing.T) {
	o := newOrchestrator(t)
	a, ctx := o.Join(context.Background(), PresenceOptions{Room: "lobby"})

	o.OnBackPressure(a.ClientID(), 1)
	assert.NoError(t, ctx.Err())
	o.OnBackPressure(a.ClientID(), 3)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	o.OnBackPressure("unknown", 10)
}

func TestSimplePolicy(t *testing.T) {
	tests := []struct {
		name  string
		max   int
		drops int
		want  BackpressureAction
	}{
		{"first drop kicks by default", 0, 1, KickMember},
		{"under limit", 3, 2, DropFrame},
		{"at limit", 3, 3, DropFrame},
		{"over limit", 3, 4, KickMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SimplePolicy{MaxDrops: tt.max}.OnBackPressure(nil, tt.drops))
		})
	}
}

func TestRoomManager_Release(t *testing.T) {
	m := NewRoomManager()
	assert.Equal(t, 1, m.Acquire("r"))
	assert.Equal(t, 2, m.Acquire("r"))
	assert.Equal(t, 1, m.Release("r"))
	assert.Equal(t, 0, m.Release("r"))
	assert.Equal(t, 0, m.Release("r"))
	assert.False(t, m.Has("r"))
}
