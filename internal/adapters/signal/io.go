package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	period := ctl.PingPeriod
	if period <= 0 {
		period = defaultPingPeriod
	}
	ping := time.NewTicker(period)
	defer func() {
		ping.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sess *session, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", sess.sid).Msg("readPump closing")
		if id := sess.clientID(); id != "" {
			ctl.Orch.Leave(id)
		}
		cancel()
		c.Close()
	}()

	limit := ctl.ReadLimit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	period := ctl.PingPeriod
	if period <= 0 {
		period = defaultPingPeriod
	}
	pongWait := period * 10 / 9
	c.conn.SetReadLimit(limit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", sess.sid).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", sess.sid).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(ctx, sess, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sess *session, data []byte) {
	var env inbound
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", sess.sid).Msg("bad json")
		ctl.sendError(sess, "bad_json")
		return
	}

	switch env.Type {
	case "ACTIVITY", "UPDATE_STATUS", "SYNC_STATE":
		ctl.handleBroadcast(sess, env)
	case "join":
		ctl.handleMove(ctx, sess, env)
	case "ping":
		ctl.handlePing(sess)
	case "whoami":
		ctl.handleWhoAmI(sess)
	case "peers":
		ctl.handlePeers(sess)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(sess, "unknown_type")
	}
}

func (ctl *SignalWSController) sendJSON(sess *session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	err = sess.conn.TrySend(b)
	if errors.Is(err, ErrBackpressure) {
		drops := sess.drops.Add(1)
		log.Debug().Str("module", "signal").Str("sid", sess.sid).Int64("drops", drops).Msg("send queue full")
		if id := sess.clientID(); id != "" {
			ctl.Orch.OnBackPressure(id, int(drops))
		}
	}
}

func (ctl *SignalWSController) sendError(sess *session, msg string) {
	ctl.sendJSON(sess, errorEvent{Type: evError, Error: msg})
}
