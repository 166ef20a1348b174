// Package validate holds the stateless rule checks run before any match
// write. Errors block persistence; warnings are informational and never do.
package validate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"atlantis-companion/internal/constants"
	"atlantis-companion/internal/domain"
)

// Result is the outcome of one validation pass.
type Result struct {
	Errors   []*domain.ValidationError `json:"errors"`
	Warnings []string                  `json:"warnings"`
}

// Valid reports whether the match may be persisted.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns the blocking errors as a single error value, or nil.
func (r *Result) Err() error {
	if r.Valid() {
		return nil
	}
	return domain.ValidationErrors(r.Errors)
}

func (r *Result) addError(field, playerID, msg string) {
	r.Errors = append(r.Errors, &domain.ValidationError{Field: field, PlayerID: playerID, Message: msg})
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Match checks a proposed match and its full participation set. Edits must
// pass the merged proposed state, not the delta, so the same rules apply to
// creation and edit alike. The function is pure: it never touches storage.
func Match(m *domain.Match, parts []domain.MatchParticipation) *Result {
	res := &Result{}

	if !m.WinningTeam.Valid() {
		res.addError("winningTeam", "", fmt.Sprintf("unknown team %q", m.WinningTeam))
	}

	checkTeams(res, parts)
	checkHeroExclusivity(res, parts)
	for i := range parts {
		checkCounters(res, m, &parts[i])
	}
	checkDate(res, m)

	return res
}

func checkTeams(res *Result, parts []domain.MatchParticipation) {
	var titans, atlanteans int
	for i := range parts {
		switch parts[i].Team {
		case domain.TeamTitans:
			titans++
		case domain.TeamAtlanteans:
			atlanteans++
		default:
			res.addError("team", parts[i].PlayerID, fmt.Sprintf("unknown team %q", parts[i].Team))
		}
	}

	if titans == 0 {
		res.addError("team", "", "Titans have no participants")
	}
	if atlanteans == 0 {
		res.addError("team", "", "Atlanteans have no participants")
	}

	diff := titans - atlanteans
	if diff < 0 {
		diff = -diff
	}
	if titans > 0 && atlanteans > 0 && diff > constants.MaxTeamSizeDiff {
		res.addWarning("team sizes differ by %d (%d Titans vs %d Atlanteans)", diff, titans, atlanteans)
	}
}

func checkHeroExclusivity(res *Result, parts []domain.MatchParticipation) {
	byHero := make(map[string][]string)
	for i := range parts {
		byHero[parts[i].HeroID] = append(byHero[parts[i].HeroID], parts[i].PlayerID)
	}

	heroes := make([]string, 0, len(byHero))
	for hero := range byHero {
		heroes = append(heroes, hero)
	}
	sort.Strings(heroes)

	for _, hero := range heroes {
		players := byHero[hero]
		if len(players) > 1 {
			res.addError("heroId", "", fmt.Sprintf("hero %s assigned to multiple players: %s",
				hero, strings.Join(players, ", ")))
		}
	}
}

func checkCounters(res *Result, m *domain.Match, p *domain.MatchParticipation) {
	nonNegative := []struct {
		field string
		value *int
	}{
		{"kills", p.Kills},
		{"deaths", p.Deaths},
		{"assists", p.Assists},
		{"goldEarned", p.GoldEarned},
		{"minionKills", p.MinionKills},
	}
	for _, c := range nonNegative {
		if c.value != nil && *c.value < 0 {
			res.addError(c.field, p.PlayerID, fmt.Sprintf("%s cannot be negative", c.field))
		}
	}

	killCeiling := constants.KillWarnQuick
	if m.GameLength == domain.GameLengthLong {
		killCeiling = constants.KillWarnLong
	}
	if p.Kills != nil && *p.Kills > killCeiling {
		res.addWarning("player %s has %d kills, above the usual ceiling of %d for a %s game",
			p.PlayerID, *p.Kills, killCeiling, m.GameLength)
	}
	if p.Deaths != nil && *p.Deaths > constants.DeathWarn {
		res.addWarning("player %s has %d deaths, above the usual ceiling of %d",
			p.PlayerID, *p.Deaths, constants.DeathWarn)
	}

	if p.Level != nil && (*p.Level < constants.MinLevel || *p.Level > constants.MaxLevel) {
		res.addError("level", p.PlayerID, fmt.Sprintf("level %d outside [%d,%d]",
			*p.Level, constants.MinLevel, constants.MaxLevel))
	}
}

func checkDate(res *Result, m *domain.Match) {
	now := time.Now()
	if m.Date.After(now) {
		res.addWarning("match date %s is in the future", m.Date.Format(time.RFC3339))
	}
	if m.Date.Before(now.Add(-constants.StaleMatchAge)) {
		res.addWarning("match date %s is more than a year old", m.Date.Format(time.RFC3339))
	}
}
