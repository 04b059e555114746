package signal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/codec"
	"github.com/dkeye/Presence/internal/domain"
)

var ErrRateLimited = errors.New("rate limited")

// presenceOptions forwards every presence callback to the socket.
func (ctl *SignalWSController) presenceOptions(sess *session, room domain.RoomName) app.PresenceOptions {
	return app.PresenceOptions{
		Room: room,
		OnJoin: func(id domain.ClientID) {
			ctl.sendJSON(sess, peerEvent{Type: evPeerJoined, ClientID: id})
		},
		OnLeave: func(id domain.ClientID) {
			ctl.sendJSON(sess, peerEvent{Type: evPeerLeft, ClientID: id})
		},
		OnActivity: func(id domain.ClientID, p domain.ActivityPayload) {
			ctl.sendJSON(sess, messageEvent{Type: evActivity, ClientID: id, Payload: p})
		},
		OnStatusUpdate: func(id domain.ClientID, p domain.StatusPayload) {
			ctl.sendJSON(sess, messageEvent{Type: evStatus, ClientID: id, Payload: p})
		},
		OnSyncState: func(id domain.ClientID, p domain.SyncStatePayload) {
			ctl.sendJSON(sess, messageEvent{Type: evSyncState, ClientID: id, Payload: p})
		},
		OnClientsChanged: func(ids []domain.ClientID) {
			ctl.sendJSON(sess, peersEvent{Type: evPeers, Clients: ids})
		},
	}
}

func (ctl *SignalWSController) join(ctx context.Context, sess *session, room domain.RoomName) {
	p, kick := ctl.Orch.Join(ctx, ctl.presenceOptions(sess, room))
	ctl.attach(sess, p, kick)
}

// attach makes p the socket's current presence and sends the welcome.
// When kick fires while p is still current the socket is closed; the
// watcher exits when p leaves.
func (ctl *SignalWSController) attach(sess *session, p *app.Presence, kick context.Context) {
	sess.presence.Store(p)
	sess.drops.Store(0)
	ctl.sendJSON(sess, welcomeEvent{
		Type:      evWelcome,
		ClientID:  p.ClientID(),
		Room:      p.Room(),
		Connected: p.IsConnected(),
	})
	go func() {
		<-kick.Done()
		if sess.presence.Load() == p {
			log.Info().Str("module", "signal").Str("sid", sess.sid).Str("client", string(p.ClientID())).Msg("session kicked")
			sess.conn.Close()
		}
	}()
}

func (ctl *SignalWSController) handleMove(ctx context.Context, sess *session, env inbound) {
	room, err := domain.NewRoomName(env.Room)
	if err != nil {
		ctl.sendError(sess, err.Error())
		return
	}
	cur := sess.presence.Load()
	if cur != nil && cur.Room() == room {
		ctl.sendError(sess, "already_in_room")
		return
	}
	if cur == nil {
		ctl.join(ctx, sess, room)
		return
	}
	// Leaving cancels the old kick context; detach first so its watcher
	// leaves the socket open.
	sess.presence.Store(nil)
	p, kick, ok := ctl.Orch.Move(ctx, cur.ClientID(), ctl.presenceOptions(sess, room))
	if !ok {
		// The old session was already torn down by a kick.
		ctl.sendError(sess, "session_gone")
		return
	}
	ctl.attach(sess, p, kick)
}

func (ctl *SignalWSController) handleBroadcast(sess *session, env inbound) {
	p := sess.presence.Load()
	if p == nil {
		ctl.sendError(sess, "no_room")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(sess.sid) {
		log.Debug().Str("module", "signal").Str("sid", sess.sid).Msg("broadcast rate limited")
		ctl.sendError(sess, ErrRateLimited.Error())
		return
	}
	t := domain.MessageType(env.Type)
	pl, err := codec.DecodePayloadJSON(t, env.Payload)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", sess.sid).Msg("bad payload")
		ctl.sendError(sess, "bad_payload")
		return
	}
	if st, ok := pl.(domain.StatusPayload); ok && !st.Status.Valid() {
		ctl.sendError(sess, "bad_status")
		return
	}
	if err := p.Broadcast(t, pl); err != nil {
		ctl.sendError(sess, err.Error())
	}
}
