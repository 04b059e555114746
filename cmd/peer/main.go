// Command peer joins a room over NATS without a browser. It logs what the
// room does and can emit ACTIVITY on a timer, which makes it handy for
// watching a server's rooms from a terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/channel/natsbus"
	"github.com/dkeye/Presence/internal/codec"
	"github.com/dkeye/Presence/internal/collab"
	"github.com/dkeye/Presence/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		natsURL   = pflag.String("nats-url", "nats://127.0.0.1:4222", "NATS server URL")
		roomFlag  = pflag.String("room", "lobby", "room to join")
		codecName = pflag.String("codec", "json", "wire codec: json or msgpack")
		prefix    = pflag.String("channel-prefix", collab.DefaultNamespace, "channel namespace prefix")
		every     = pflag.Duration("activity-every", 0, "emit ACTIVITY at this interval (0 disables)")
		level     = pflag.String("log-level", "info", "log level")
	)
	pflag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(*level); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	room, err := domain.NewRoomName(*roomFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad room")
	}
	wire, err := codec.ByName(*codecName)
	if err != nil {
		log.Fatal().Err(err).Msg("bad codec")
	}
	nc, err := natsbus.Connect(*natsURL, "presence-peer")
	if err != nil {
		log.Fatal().Err(err).Str("url", *natsURL).Msg("nats connect")
	}
	defer func() { _ = nc.Drain() }()

	p := app.NewPresence(natsbus.New(nc), app.PresenceOptions{
		Room: room,
		OnJoin: func(id domain.ClientID) {
			log.Info().Str("client", string(id)).Msg("joined")
		},
		OnLeave: func(id domain.ClientID) {
			log.Info().Str("client", string(id)).Msg("left")
		},
		OnActivity: func(id domain.ClientID, a domain.ActivityPayload) {
			log.Info().Str("client", string(id)).Str("kind", a.Kind).Interface("data", a.Data).Msg("activity")
		},
		OnStatusUpdate: func(id domain.ClientID, s domain.StatusPayload) {
			log.Info().Str("client", string(id)).Str("status", string(s.Status)).Msg("status")
		},
		OnSyncState: func(id domain.ClientID, s domain.SyncStatePayload) {
			log.Info().Str("client", string(id)).Int("keys", len(s.State)).Msg("sync state")
		},
		OnClientsChanged: func(ids []domain.ClientID) {
			log.Info().Int("count", len(ids)).Interface("clients", ids).Msg("peers")
		},
	}, collab.WithCodec(wire), collab.WithNamespace(*prefix))
	defer p.Close()

	if !p.IsConnected() {
		log.Fatal().Str("room", string(room)).Msg("presence offline")
	}
	log.Info().Str("client", string(p.ClientID())).Str("room", string(room)).Msg("peer running")

	var tick <-chan time.Time
	if *every > 0 {
		t := time.NewTicker(*every)
		defer t.Stop()
		tick = t.C
	}
	n := 0
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("bye")
			return
		case <-tick:
			n++
			_ = p.Broadcast(domain.MsgActivity, domain.ActivityPayload{
				Kind: "tick",
				Data: map[string]any{"n": n},
			})
		}
	}
}
