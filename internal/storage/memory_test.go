package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlantis-companion/internal/domain"
)

func TestMemoryStorePlayerRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	mu := 27.5
	now := time.Now()
	require.NoError(t, s.PutPlayer(ctx, &domain.Player{
		ID: "p1", Name: "Dana", Mu: &mu,
		CreatedAt: now, UpdatedAt: now,
	}))

	got, err := s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Dana", got.Name)
	require.NotNil(t, got.Mu)

	// Mutating the returned copy must not reach the stored row.
	*got.Mu = 0
	again, err := s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 27.5, *again.Mu)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetPlayer(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
	_, err = s.GetMatch(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
	assert.True(t, domain.IsNotFound(s.DeleteMatch(ctx, "nope")))
	assert.True(t, domain.IsNotFound(s.DeleteParticipation(ctx, "nope")))
}

func TestMemoryStoreMatchOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	// Same created-at second and third: id breaks the tie.
	require.NoError(t, s.PutMatch(ctx, &domain.Match{ID: "m-c", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, s.PutMatch(ctx, &domain.Match{ID: "m-b", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, s.PutMatch(ctx, &domain.Match{ID: "m-a", CreatedAt: base}))

	matches, err := s.ListMatches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "m-a", matches[0].ID)
	assert.Equal(t, "m-b", matches[1].ID)
	assert.Equal(t, "m-c", matches[2].ID)
}

func TestMemoryStoreParticipationFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	put := func(id, matchID, playerID string) {
		require.NoError(t, s.PutParticipation(ctx, &domain.MatchParticipation{
			ID: id, MatchID: matchID, PlayerID: playerID, CreatedAt: now,
		}))
	}
	put("c1", "m1", "alice")
	put("c2", "m1", "bob")
	put("c3", "m2", "alice")

	byMatch, err := s.ListParticipationsByMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, byMatch, 2)

	byPlayer, err := s.ListParticipationsByPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, byPlayer, 2)

	all, err := s.ListAllParticipations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStoreClearAll(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.PutPlayer(ctx, &domain.Player{ID: "p1"}))
	require.NoError(t, s.PutMatch(ctx, &domain.Match{ID: "m1"}))
	require.NoError(t, s.PutParticipation(ctx, &domain.MatchParticipation{ID: "c1", MatchID: "m1"}))
	require.NoError(t, s.ClearAll(ctx))

	players, err := s.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Empty(t, players)
	matches, err := s.ListMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)
	parts, err := s.ListAllParticipations(ctx)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestMemoryStoreUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.PutPlayer(ctx, &domain.Player{ID: "p1", Name: "old"}))
	require.NoError(t, s.PutPlayer(ctx, &domain.Player{ID: "p1", Name: "new"}))

	got, err := s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)

	players, err := s.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 1)
}
