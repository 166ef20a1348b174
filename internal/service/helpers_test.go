package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"atlantis-companion/internal/domain"
	"atlantis-companion/internal/storage"
)

type testEnv struct {
	store     *storage.MemoryStore
	recalc    *RecalcEngine
	lifecycle *LifecycleManager
	advisor   *Advisor
	heroStats *HeroStatsAggregator
	transfer  *TransferService
	players   *PlayerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	store := storage.NewMemoryStore()
	recalc := NewRecalcEngine(store, log)
	lifecycle := NewLifecycleManager(store, recalc, log)
	return &testEnv{
		store:     store,
		recalc:    recalc,
		lifecycle: lifecycle,
		advisor:   NewAdvisor(store, recalc, log),
		heroStats: NewHeroStatsAggregator(store, log),
		transfer:  NewTransferService(store, lifecycle, log),
		players:   NewPlayerService(store, log),
	}
}

func participant(playerID, heroID string, team domain.Team) ParticipantInput {
	return ParticipantInput{
		PlayerID: playerID,
		Team:     team,
		HeroID:   heroID,
		HeroName: heroID,
	}
}

// twoVsTwo is the canonical Titans {p1,p2} vs Atlanteans {p3,p4} input.
func twoVsTwo(winner domain.Team, date time.Time) *MatchInput {
	return &MatchInput{
		Date:        date,
		WinningTeam: winner,
		GameLength:  domain.GameLengthQuick,
		Participants: []ParticipantInput{
			participant("p1", "arien", domain.TeamTitans),
			participant("p2", "brogan", domain.TeamTitans),
			participant("p3", "dodger", domain.TeamAtlanteans),
			participant("p4", "tigerclaw", domain.TeamAtlanteans),
		},
	}
}

func recordMatch(t *testing.T, env *testEnv, in *MatchInput) string {
	t.Helper()
	result, err := env.lifecycle.Record(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, result.RecalcWarning)
	return result.MatchID
}

func getPlayer(t *testing.T, env *testEnv, id string) *domain.Player {
	t.Helper()
	p, err := env.store.GetPlayer(context.Background(), id)
	require.NoError(t, err)
	return p
}

func daysAgo(n int) time.Time {
	return time.Now().Add(-time.Duration(n) * 24 * time.Hour)
}
