package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Presence/internal/adapters/http"
	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/channel/memory"
	"github.com/dkeye/Presence/internal/channel/natsbus"
	"github.com/dkeye/Presence/internal/codec"
	"github.com/dkeye/Presence/internal/collab"
	"github.com/dkeye/Presence/internal/config"
	"github.com/dkeye/Presence/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logger first so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	fs := config.Flags("presence-server")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad flags")
	}
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	transport, closeTransport, err := openTransport(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("transport", cfg.Transport).Msg("failed to open transport")
	}
	defer closeTransport()

	wire, err := codec.ByName(cfg.Codec)
	if err != nil {
		log.Fatal().Err(err).Msg("bad codec")
	}

	orch := &app.Orchestrator{
		Registry:  app.NewRegistry(),
		Rooms:     app.NewRoomManager(),
		Policy:    app.SimplePolicy{MaxDrops: cfg.MaxDrops},
		Transport: transport,
		Refresh:   cfg.PresenceRefresh,
		Options: []collab.Option{
			collab.WithCodec(wire),
			collab.WithNamespace(cfg.ChannelPrefix),
			collab.WithHeartbeatInterval(cfg.HeartbeatInterval),
			collab.WithStaleThreshold(cfg.StaleThreshold),
		},
	}

	r := router.SetupRouter(ctx, cfg, orch)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Presence server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

func openTransport(cfg *config.Config) (core.Transport, func(), error) {
	switch cfg.Transport {
	case "nats":
		nc, err := natsbus.Connect(cfg.NatsURL, "presence-server")
		if err != nil {
			return nil, nil, err
		}
		return natsbus.New(nc), func() { _ = nc.Drain() }, nil
	default:
		bus := memory.New()
		return bus, bus.Close, nil
	}
}
