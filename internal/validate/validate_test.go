package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"atlantis-companion/internal/domain"
)

func intp(v int) *int { return &v }

func testMatch() *domain.Match {
	return &domain.Match{
		ID:          "m1",
		Date:        time.Now().Add(-24 * time.Hour),
		WinningTeam: domain.TeamTitans,
		GameLength:  domain.GameLengthQuick,
	}
}

func part(player, hero string, team domain.Team) domain.MatchParticipation {
	return domain.MatchParticipation{
		ID:       player + "-" + hero,
		MatchID:  "m1",
		PlayerID: player,
		Team:     team,
		HeroID:   hero,
		HeroName: hero,
	}
}

func TestValidMatchPasses(t *testing.T) {
	parts := []domain.MatchParticipation{
		part("p1", "arien", domain.TeamTitans),
		part("p2", "brogan", domain.TeamTitans),
		part("p3", "dodger", domain.TeamAtlanteans),
		part("p4", "tigerclaw", domain.TeamAtlanteans),
	}
	res := Match(testMatch(), parts)
	assert.True(t, res.Valid())
	assert.Empty(t, res.Warnings)
	assert.NoError(t, res.Err())
}

func TestEmptyTeamIsError(t *testing.T) {
	parts := []domain.MatchParticipation{
		part("p1", "arien", domain.TeamTitans),
		part("p2", "brogan", domain.TeamTitans),
	}
	res := Match(testMatch(), parts)
	assert.False(t, res.Valid())
	assert.Contains(t, res.Err().Error(), "Atlanteans have no participants")
}

func TestUnbalancedTeamsWarnsButValid(t *testing.T) {
	parts := []domain.MatchParticipation{
		part("p1", "arien", domain.TeamTitans),
		part("p2", "brogan", domain.TeamTitans),
		part("p3", "wasp", domain.TeamTitans),
		part("p4", "dodger", domain.TeamAtlanteans),
	}
	res := Match(testMatch(), parts)
	assert.True(t, res.Valid(), "lopsided rosters are still recordable")
	assert.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "team sizes differ by 2")
}

func TestDuplicateHeroIsError(t *testing.T) {
	parts := []domain.MatchParticipation{
		part("p1", "arien", domain.TeamTitans),
		part("p2", "arien", domain.TeamTitans),
		part("p3", "dodger", domain.TeamAtlanteans),
	}
	res := Match(testMatch(), parts)
	assert.False(t, res.Valid())

	found := false
	for _, e := range res.Errors {
		if e.Field == "heroId" && strings.Contains(e.Message, "p1") && strings.Contains(e.Message, "p2") {
			found = true
		}
	}
	assert.True(t, found, "duplicate hero error should list all affected players")
}

func TestNegativeCountersAreErrors(t *testing.T) {
	p := part("p1", "arien", domain.TeamTitans)
	p.Kills = intp(-1)
	p.GoldEarned = intp(-100)
	parts := []domain.MatchParticipation{p, part("p2", "dodger", domain.TeamAtlanteans)}

	res := Match(testMatch(), parts)
	assert.False(t, res.Valid())

	fields := make(map[string]bool)
	for _, e := range res.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["kills"])
	assert.True(t, fields["goldEarned"])
}

func TestKillCeilingDependsOnGameLength(t *testing.T) {
	p := part("p1", "arien", domain.TeamTitans)
	p.Kills = intp(40)
	parts := []domain.MatchParticipation{p, part("p2", "dodger", domain.TeamAtlanteans)}

	quick := testMatch()
	res := Match(quick, parts)
	assert.True(t, res.Valid())
	assert.NotEmpty(t, res.Warnings, "40 kills in a quick game should warn")

	long := testMatch()
	long.GameLength = domain.GameLengthLong
	res = Match(long, parts)
	assert.Empty(t, res.Warnings, "40 kills in a long game is fine")
}

func TestDeathCeilingWarns(t *testing.T) {
	p := part("p1", "arien", domain.TeamTitans)
	p.Deaths = intp(25)
	parts := []domain.MatchParticipation{p, part("p2", "dodger", domain.TeamAtlanteans)}

	res := Match(testMatch(), parts)
	assert.True(t, res.Valid())
	assert.Contains(t, res.Warnings[0], "deaths")
}

func TestLevelBounds(t *testing.T) {
	for _, level := range []int{0, 11, -3} {
		p := part("p1", "arien", domain.TeamTitans)
		p.Level = intp(level)
		parts := []domain.MatchParticipation{p, part("p2", "dodger", domain.TeamAtlanteans)}

		res := Match(testMatch(), parts)
		assert.False(t, res.Valid(), "level %d should be rejected", level)
	}

	p := part("p1", "arien", domain.TeamTitans)
	p.Level = intp(10)
	parts := []domain.MatchParticipation{p, part("p2", "dodger", domain.TeamAtlanteans)}
	assert.True(t, Match(testMatch(), parts).Valid())
}

func TestDateWarnings(t *testing.T) {
	future := testMatch()
	future.Date = time.Now().Add(48 * time.Hour)
	parts := []domain.MatchParticipation{
		part("p1", "arien", domain.TeamTitans),
		part("p2", "dodger", domain.TeamAtlanteans),
	}
	res := Match(future, parts)
	assert.True(t, res.Valid())
	assert.Contains(t, res.Warnings[0], "future")

	old := testMatch()
	old.Date = time.Now().AddDate(-2, 0, 0)
	res = Match(old, parts)
	assert.True(t, res.Valid())
	assert.Contains(t, res.Warnings[0], "more than a year old")
}

func TestUnknownWinningTeam(t *testing.T) {
	m := testMatch()
	m.WinningTeam = "Krakens"
	parts := []domain.MatchParticipation{
		part("p1", "arien", domain.TeamTitans),
		part("p2", "dodger", domain.TeamAtlanteans),
	}
	res := Match(m, parts)
	assert.False(t, res.Valid())
}
