package collab

import (
	"context"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

func (s *Service) startHeartbeat() {
	ticker := s.clock.NewTicker(s.interval)
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.stop = cancel
	s.mu.Unlock()

	s.Broadcast(domain.MsgHeartbeat, nil)
	go s.heartbeat(ctx, ticker)
}

func (s *Service) heartbeat(ctx context.Context, ticker clockwork.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Broadcast(domain.MsgHeartbeat, nil)
			s.sweep()
		}
	}
}

// sweep evicts peers not heard from for longer than the stale threshold
// and dispatches a locally built LEAVE for each one. Nothing is sent on
// the channel.
func (s *Service) sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	var gone []domain.ClientID
	for id, seen := range s.lastSeen {
		if now.Sub(seen) > s.threshold {
			delete(s.lastSeen, id)
			gone = append(gone, id)
		}
	}
	hs := s.handlers.snapshot(domain.MsgLeave)
	s.mu.Unlock()

	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	for _, id := range gone {
		log.Info().Str("module", "collab").Str("client", string(s.id)).Str("peer", string(id)).Msg("peer stale, evicted")
		m := domain.Message{Type: domain.MsgLeave, SenderID: id, SentAt: now.UnixMilli()}
		for _, h := range hs {
			h(m)
		}
	}
}
