package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlantis-companion/internal/domain"
)

func TestRecordAutoCreatesPlayers(t *testing.T) {
	env := newTestEnv(t)
	recordMatch(t, env, twoVsTwo(domain.TeamTitans, daysAgo(1)))

	p := getPlayer(t, env, "p1")
	assert.Equal(t, "p1", p.Name, "auto-created player uses its id as the initial name")
	assert.Equal(t, domain.SourceLive, p.Source)
}

func TestRecordRejectsDuplicateHero(t *testing.T) {
	env := newTestEnv(t)
	in := twoVsTwo(domain.TeamTitans, daysAgo(1))
	in.Participants[1].HeroID = in.Participants[0].HeroID

	_, err := env.lifecycle.Record(context.Background(), in)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	// Nothing persisted.
	matches, err := env.store.ListMatches(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matches)
	players, err := env.store.ListPlayers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestRecordRequiresTwoPerSide(t *testing.T) {
	env := newTestEnv(t)
	in := &MatchInput{
		Date:        daysAgo(1),
		WinningTeam: domain.TeamTitans,
		GameLength:  domain.GameLengthQuick,
		Participants: []ParticipantInput{
			participant("p1", "arien", domain.TeamTitans),
			participant("p3", "dodger", domain.TeamAtlanteans),
			participant("p4", "tigerclaw", domain.TeamAtlanteans),
		},
	}

	_, err := env.lifecycle.Record(context.Background(), in)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestRecordReturnsWarnings(t *testing.T) {
	env := newTestEnv(t)
	in := twoVsTwo(domain.TeamTitans, daysAgo(1))
	in.Participants = append(in.Participants,
		participant("p5", "wasp", domain.TeamTitans),
		participant("p6", "swift", domain.TeamTitans))

	result, err := env.lifecycle.Record(context.Background(), in)
	require.NoError(t, err, "lopsided rosters are recordable")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "team sizes differ")
}

func TestLevelRatchet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := twoVsTwo(domain.TeamTitans, daysAgo(3))
	five := 5
	in.Participants[0].Level = &five
	recordMatch(t, env, in)
	assert.Equal(t, 5, getPlayer(t, env, "p1").Level)

	in = twoVsTwo(domain.TeamTitans, daysAgo(2))
	three := 3
	in.Participants[0].Level = &three
	recordMatch(t, env, in)
	assert.Equal(t, 5, getPlayer(t, env, "p1").Level, "level never decreases from match data")

	in = twoVsTwo(domain.TeamTitans, daysAgo(1))
	seven := 7
	in.Participants[0].Level = &seven
	recordMatch(t, env, in)
	assert.Equal(t, 7, getPlayer(t, env, "p1").Level)

	// Direct edits may lower it.
	_, err := env.players.SetLevel(ctx, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, getPlayer(t, env, "p1").Level)
}

func TestEditMergesAndRevalidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	matchID := recordMatch(t, env, twoVsTwo(domain.TeamTitans, daysAgo(1)))

	// Flip the winner; tallies must follow on the next recalculation.
	winner := domain.TeamAtlanteans
	_, err := env.lifecycle.Edit(ctx, matchID, &MatchUpdate{WinningTeam: &winner})
	require.NoError(t, err)

	assert.Equal(t, 0, getPlayer(t, env, "p1").Wins)
	assert.Equal(t, 1, getPlayer(t, env, "p1").Losses)
	assert.Equal(t, 1, getPlayer(t, env, "p3").Wins)
}

func TestEditRejectsInvalidMergedState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	matchID := recordMatch(t, env, twoVsTwo(domain.TeamTitans, daysAgo(1)))
	parts, err := env.store.ListParticipationsByMatch(ctx, matchID)
	require.NoError(t, err)

	// Steal another participant's hero: the merged state has a duplicate.
	stolen := parts[1].HeroID
	_, err = env.lifecycle.Edit(ctx, matchID, &MatchUpdate{
		Participations: []ParticipationUpdate{{ID: parts[0].ID, HeroID: &stolen}},
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	// The stored roster is untouched.
	after, err := env.store.ListParticipationsByMatch(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, parts[0].HeroID, after[0].HeroID)
}

func TestEditUnknownMatch(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.lifecycle.Edit(context.Background(), "nope", &MatchUpdate{})
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteUnknownMatch(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.lifecycle.Delete(context.Background(), "nope")
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteRemovesParticipations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	matchID := recordMatch(t, env, twoVsTwo(domain.TeamTitans, daysAgo(1)))
	_, err := env.lifecycle.Delete(ctx, matchID)
	require.NoError(t, err)

	parts, err := env.store.ListAllParticipations(ctx)
	require.NoError(t, err)
	assert.Empty(t, parts)
	matches, err := env.store.ListMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDeletePlayerGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	recordMatch(t, env, twoVsTwo(domain.TeamTitans, daysAgo(1)))

	err := env.lifecycle.DeletePlayer(ctx, "p1")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err), "players with games cannot be deleted")

	// A fresh player with no games can go.
	_, err = env.players.SetLevel(ctx, "p9", 1)
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, env.store.PutPlayer(ctx, &domain.Player{ID: "p9", Name: "p9"}))
	require.NoError(t, env.lifecycle.DeletePlayer(ctx, "p9"))
	_, err = env.store.GetPlayer(ctx, "p9")
	assert.True(t, domain.IsNotFound(err))
}
