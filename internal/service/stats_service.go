package service

import (
	"context"
	"log"
	"sync"

	"clickbag.eco/backend/internal/model"
	"clickbag.eco/backend/internal/repository"
)

// StatsHub fans committed community-stats snapshots out to live dashboard
// subscribers. Slow subscribers drop updates rather than block a commit path.
type StatsHub struct {
	mu      sync.Mutex
	clients map[chan *model.CommunityStats]struct{}
}

func NewStatsHub() *StatsHub {
	return &StatsHub{
		clients: make(map[chan *model.CommunityStats]struct{}),
	}
}

func (h *StatsHub) Subscribe() chan *model.CommunityStats {
	ch := make(chan *model.CommunityStats, 8)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *StatsHub) Unsubscribe(ch chan *model.CommunityStats) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *StatsHub) Broadcast(stats *model.CommunityStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- stats:
		default:
			// Subscriber is behind; it will catch up on the next update.
		}
	}
}

type StatsService interface {
	Community(ctx context.Context) (*model.CommunityStats, error)
	// NotifyChanged re-reads the singleton and pushes it to live
	// subscribers. Called after every committed aggregate mutation.
	NotifyChanged(ctx context.Context)
	Hub() *StatsHub
}

type statsService struct {
	ledgerRepo repository.LedgerRepository
	hub        *StatsHub
}

func NewStatsService(ledgerRepo repository.LedgerRepository, hub *StatsHub) StatsService {
	return &statsService{
		ledgerRepo: ledgerRepo,
		hub:        hub,
	}
}

func (s *statsService) Community(ctx context.Context) (*model.CommunityStats, error) {
	return s.ledgerRepo.GetCommunityStats(ctx)
}

func (s *statsService) NotifyChanged(ctx context.Context) {
	stats, err := s.ledgerRepo.GetCommunityStats(ctx)
	if err != nil {
		log.Printf("failed to load community stats for broadcast: %v", err)
		return
	}
	s.hub.Broadcast(stats)
}

func (s *statsService) Hub() *StatsHub {
	return s.hub
}
