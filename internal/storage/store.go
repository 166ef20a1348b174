// Package storage defines the persistence port the engine is programmed
// against, plus its two backends: sqlite for durable installs and an
// in-memory store for tests and throwaway sessions. Backend choice is a
// configuration detail; nothing above this package knows which one is live.
package storage

import (
	"context"

	"atlantis-companion/internal/domain"
)

// Store is the CRUD port for the three record kinds. All writes performed
// within one logical operation must be visible to subsequent reads on the
// same Store (read-your-writes).
type Store interface {
	GetPlayer(ctx context.Context, id string) (*domain.Player, error)
	ListPlayers(ctx context.Context) ([]domain.Player, error)
	PutPlayer(ctx context.Context, p *domain.Player) error
	// DeletePlayer removes a player row. Callers must only invoke it for
	// players with zero recorded games; the store does not re-check.
	DeletePlayer(ctx context.Context, id string) error

	GetMatch(ctx context.Context, id string) (*domain.Match, error)
	ListMatches(ctx context.Context) ([]domain.Match, error)
	PutMatch(ctx context.Context, m *domain.Match) error
	DeleteMatch(ctx context.Context, id string) error

	ListParticipationsByMatch(ctx context.Context, matchID string) ([]domain.MatchParticipation, error)
	ListParticipationsByPlayer(ctx context.Context, playerID string) ([]domain.MatchParticipation, error)
	ListAllParticipations(ctx context.Context) ([]domain.MatchParticipation, error)
	PutParticipation(ctx context.Context, p *domain.MatchParticipation) error
	DeleteParticipation(ctx context.Context, id string) error

	ClearAll(ctx context.Context) error
}
