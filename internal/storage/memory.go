package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"atlantis-companion/internal/domain"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs tests and the
// ephemeral-session configuration.
type MemoryStore struct {
	mu             sync.RWMutex
	players        map[string]domain.Player
	matches        map[string]domain.Match
	participations map[string]domain.MatchParticipation
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players:        make(map[string]domain.Player),
		matches:        make(map[string]domain.Match),
		participations: make(map[string]domain.MatchParticipation),
	}
}

func (s *MemoryStore) GetPlayer(_ context.Context, id string) (*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, domain.NewNotFound("player", id)
	}
	cp := clonePlayer(p)
	return &cp, nil
}

func (s *MemoryStore) ListPlayers(_ context.Context) ([]domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, clonePlayer(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) PutPlayer(_ context.Context, p *domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = clonePlayer(*p)
	return nil
}

func (s *MemoryStore) DeletePlayer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return domain.NewNotFound("player", id)
	}
	delete(s.players, id)
	return nil
}

func (s *MemoryStore) GetMatch(_ context.Context, id string) (*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, domain.NewNotFound("match", id)
	}
	return &m, nil
}

func (s *MemoryStore) ListMatches(_ context.Context) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	// Insertion order is the documented tiebreaker for equal dates.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) PutMatch(_ context.Context, m *domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = *m
	return nil
}

func (s *MemoryStore) DeleteMatch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		return domain.NewNotFound("match", id)
	}
	delete(s.matches, id)
	return nil
}

func (s *MemoryStore) ListParticipationsByMatch(_ context.Context, matchID string) ([]domain.MatchParticipation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterParticipations(func(p *domain.MatchParticipation) bool {
		return p.MatchID == matchID
	}), nil
}

func (s *MemoryStore) ListParticipationsByPlayer(_ context.Context, playerID string) ([]domain.MatchParticipation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterParticipations(func(p *domain.MatchParticipation) bool {
		return p.PlayerID == playerID
	}), nil
}

func (s *MemoryStore) ListAllParticipations(_ context.Context) ([]domain.MatchParticipation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterParticipations(func(*domain.MatchParticipation) bool { return true }), nil
}

func (s *MemoryStore) PutParticipation(_ context.Context, p *domain.MatchParticipation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participations[p.ID] = cloneParticipation(*p)
	return nil
}

func (s *MemoryStore) DeleteParticipation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participations[id]; !ok {
		return domain.NewNotFound("participation", id)
	}
	delete(s.participations, id)
	return nil
}

func (s *MemoryStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = make(map[string]domain.Player)
	s.matches = make(map[string]domain.Match)
	s.participations = make(map[string]domain.MatchParticipation)
	return nil
}

// filterParticipations must be called with at least a read lock held.
func (s *MemoryStore) filterParticipations(keep func(*domain.MatchParticipation) bool) []domain.MatchParticipation {
	var out []domain.MatchParticipation
	for _, p := range s.participations {
		if keep(&p) {
			out = append(out, cloneParticipation(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// clonePlayer copies pointer fields so callers cannot alias stored state.
func clonePlayer(p domain.Player) domain.Player {
	p.Mu = cloneFloat(p.Mu)
	p.Sigma = cloneFloat(p.Sigma)
	p.Ordinal = cloneFloat(p.Ordinal)
	p.LastPlayed = cloneTimePtr(p.LastPlayed)
	return p
}

func cloneParticipation(p domain.MatchParticipation) domain.MatchParticipation {
	p.HeroRoles = append([]string(nil), p.HeroRoles...)
	p.Kills = cloneInt(p.Kills)
	p.Deaths = cloneInt(p.Deaths)
	p.Assists = cloneInt(p.Assists)
	p.GoldEarned = cloneInt(p.GoldEarned)
	p.MinionKills = cloneInt(p.MinionKills)
	p.Level = cloneInt(p.Level)
	return p
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
