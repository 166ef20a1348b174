package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlantis-companion/internal/domain"
)

func heroStatsByID(stats []HeroStats) map[string]HeroStats {
	out := make(map[string]HeroStats, len(stats))
	for _, s := range stats {
		out[s.HeroID] = s
	}
	return out
}

func TestHeroStatsEmptyHistory(t *testing.T) {
	env := newTestEnv(t)
	stats, err := env.heroStats.ComputeAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestHeroStatsWinRates(t *testing.T) {
	env := newTestEnv(t)
	base := daysAgo(10)

	// arien and brogan win twice as Titans, lose once.
	recordMatch(t, env, twoVsTwo(domain.TeamTitans, base))
	recordMatch(t, env, twoVsTwo(domain.TeamTitans, base.Add(time.Hour)))
	recordMatch(t, env, twoVsTwo(domain.TeamAtlanteans, base.Add(2*time.Hour)))

	stats, err := env.heroStats.ComputeAll(context.Background())
	require.NoError(t, err)
	byID := heroStatsByID(stats)

	arien := byID["arien"]
	assert.Equal(t, 3, arien.TotalGames)
	assert.Equal(t, 2, arien.Wins)
	assert.Equal(t, 1, arien.Losses)
	assert.InDelta(t, 2.0/3.0, arien.WinRate, 1e-9)

	dodger := byID["dodger"]
	assert.Equal(t, 1, dodger.Wins)
	assert.InDelta(t, 1.0/3.0, dodger.WinRate, 1e-9)
}

func TestHeroStatsTeammatesAndOpponents(t *testing.T) {
	env := newTestEnv(t)
	base := daysAgo(5)

	recordMatch(t, env, twoVsTwo(domain.TeamTitans, base))
	recordMatch(t, env, twoVsTwo(domain.TeamAtlanteans, base.Add(time.Hour)))

	stats, err := env.heroStats.ComputeAll(context.Background())
	require.NoError(t, err)
	byID := heroStatsByID(stats)

	arien := byID["arien"]
	require.Len(t, arien.BestTeammates, 1)
	assert.Equal(t, "brogan", arien.BestTeammates[0].HeroID)
	assert.Equal(t, 2, arien.BestTeammates[0].Games)
	assert.InDelta(t, 0.5, arien.BestTeammates[0].WinRate, 1e-9)

	// Both opposing heroes were faced twice with one win each.
	assert.Len(t, arien.BestAgainst, 2)
	assert.Len(t, arien.WorstAgainst, 2)
	for _, p := range arien.BestAgainst {
		assert.Equal(t, 2, p.Games)
		assert.InDelta(t, 0.5, p.WinRate, 1e-9)
	}
}

func TestHeroStatsPairRankingAndTopN(t *testing.T) {
	env := newTestEnv(t)
	base := daysAgo(8)

	pair := func(mate string, winner domain.Team, offset time.Duration) *MatchInput {
		return &MatchInput{
			Date:        base.Add(offset),
			WinningTeam: winner,
			GameLength:  domain.GameLengthQuick,
			Participants: []ParticipantInput{
				participant("p1", "arien", domain.TeamTitans),
				participant("p2", mate, domain.TeamTitans),
				participant("p3", "dodger", domain.TeamAtlanteans),
				participant("p4", "tigerclaw", domain.TeamAtlanteans),
			},
		}
	}

	// Four distinct teammates with win rates 1.0, 1.0, 0.0, 0.0. The two
	// wins differ in games so the ranking is exercised past the rate.
	recordMatch(t, env, pair("brogan", domain.TeamTitans, 0))
	recordMatch(t, env, pair("brogan", domain.TeamTitans, time.Hour))
	recordMatch(t, env, pair("cutter", domain.TeamTitans, 2*time.Hour))
	recordMatch(t, env, pair("gronk", domain.TeamAtlanteans, 3*time.Hour))
	recordMatch(t, env, pair("mimic", domain.TeamAtlanteans, 4*time.Hour))

	stats, err := env.heroStats.ComputeAll(context.Background())
	require.NoError(t, err)
	byID := heroStatsByID(stats)

	arien := byID["arien"]
	require.Len(t, arien.BestTeammates, 3, "pair lists are capped at three")
	assert.Equal(t, "brogan", arien.BestTeammates[0].HeroID, "more games wins the tie at equal rate")
	assert.Equal(t, "cutter", arien.BestTeammates[1].HeroID)
	// gronk and mimic tie at 0.0 and one game each; hero id breaks the tie.
	assert.Equal(t, "gronk", arien.BestTeammates[2].HeroID)
}

func TestHeroStatsSortedByGames(t *testing.T) {
	env := newTestEnv(t)
	base := daysAgo(3)

	recordMatch(t, env, twoVsTwo(domain.TeamTitans, base))
	recordMatch(t, env, &MatchInput{
		Date:        base.Add(time.Hour),
		WinningTeam: domain.TeamTitans,
		GameLength:  domain.GameLengthLong,
		Participants: []ParticipantInput{
			participant("p1", "arien", domain.TeamTitans),
			participant("p2", "brogan", domain.TeamTitans),
			participant("p3", "sentinel", domain.TeamAtlanteans),
			participant("p4", "wisp", domain.TeamAtlanteans),
		},
	})

	stats, err := env.heroStats.ComputeAll(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, stats)

	for i := 1; i < len(stats); i++ {
		if stats[i-1].TotalGames == stats[i].TotalGames {
			assert.Less(t, stats[i-1].HeroID, stats[i].HeroID)
		} else {
			assert.Greater(t, stats[i-1].TotalGames, stats[i].TotalGames)
		}
	}
	assert.Equal(t, 2, heroStatsByID(stats)["arien"].TotalGames)
}

func TestHeroStatsExcludesUnknownTeamRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	match := &domain.Match{
		ID: "m1", Date: daysAgo(2), WinningTeam: domain.TeamTitans,
		GameLength:   domain.GameLengthQuick,
		TitanPlayers: 2, AtlanteanPlayers: 2,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, env.store.PutMatch(ctx, match))

	put := func(id, playerID, heroID string, team domain.Team) {
		require.NoError(t, env.store.PutParticipation(ctx, &domain.MatchParticipation{
			ID: id, MatchID: match.ID, PlayerID: playerID,
			Team: team, HeroID: heroID, HeroName: heroID,
			CreatedAt: now, UpdatedAt: now,
		}))
	}
	put("c1", "p1", "arien", domain.TeamTitans)
	put("c2", "p2", "brogan", domain.TeamTitans)
	put("c3", "p3", "dodger", domain.TeamAtlanteans)
	put("c4", "p4", "tigerclaw", domain.TeamAtlanteans)
	put("c5", "p5", "watcher", domain.Team("observer"))

	stats, err := env.heroStats.ComputeAll(ctx)
	require.NoError(t, err)
	arien := heroStatsByID(stats)["arien"]

	for _, pairs := range [][]PairStat{arien.BestTeammates, arien.BestAgainst, arien.WorstAgainst} {
		for _, p := range pairs {
			assert.NotEqual(t, "watcher", p.HeroID, "unknown-team rows must not enter pair tables")
		}
	}
	require.Len(t, arien.BestTeammates, 1)
	assert.Equal(t, "brogan", arien.BestTeammates[0].HeroID)
	assert.Len(t, arien.BestAgainst, 2)
}
