package service

import (
	"context"
	"math"
	"sort"

	"atlantis-companion/internal/constants"
	"atlantis-companion/internal/domain"
	"atlantis-companion/internal/rating"
	"atlantis-companion/internal/storage"

	"github.com/rs/zerolog"
)

// Advisor is a read-only consumer of current ratings: win probabilities and
// greedy team balancing. It never writes.
type Advisor struct {
	store  storage.Store
	recalc *RecalcEngine
	logger zerolog.Logger
}

func NewAdvisor(store storage.Store, recalc *RecalcEngine, logger zerolog.Logger) *Advisor {
	return &Advisor{store: store, recalc: recalc, logger: logger}
}

// WinProbability is the chance, as an integer percent, that teamA beats
// teamB given current beliefs. Unknown ids fall back to the default belief.
func (a *Advisor) WinProbability(ctx context.Context, teamA, teamB []string) (int, error) {
	est, err := a.estimate(ctx, teamA, teamB)
	if err != nil {
		return 0, err
	}
	return est.pA, nil
}

// Probability is a win probability with its 95% confidence bounds, for both
// sides. The two point estimates always sum to 100.
type Probability struct {
	TeamA     int `json:"teamA"`
	TeamALow  int `json:"teamALow"`
	TeamAHigh int `json:"teamAHigh"`
	TeamB     int `json:"teamB"`
	TeamBLow  int `json:"teamBLow"`
	TeamBHigh int `json:"teamBHigh"`
}

// WinProbabilityWithCI computes the point estimate plus a 95% interval. The
// interval perturbs the skill delta by z times the skill-only standard
// deviation (performance noise excluded) and re-evaluates the CDF at each
// bound. This matches the engine's long-standing behavior; it is not a
// textbook credible interval.
func (a *Advisor) WinProbabilityWithCI(ctx context.Context, teamA, teamB []string) (*Probability, error) {
	est, err := a.estimate(ctx, teamA, teamB)
	if err != nil {
		return nil, err
	}

	margin := constants.ConfidenceZ * math.Sqrt(est.skillVar)
	low := percent((est.delta - margin) / est.c)
	high := percent((est.delta + margin) / est.c)

	p := &Probability{
		TeamA:     est.pA,
		TeamALow:  low,
		TeamAHigh: high,
		TeamB:     100 - est.pA,
		TeamBLow:  100 - high,
		TeamBHigh: 100 - low,
	}

	a.logger.Debug().
		Int("team_a", p.TeamA).
		Int("team_a_low", p.TeamALow).
		Int("team_a_high", p.TeamAHigh).
		Msg("win probability computed")
	return p, nil
}

type estimateResult struct {
	pA       int
	delta    float64
	c        float64
	skillVar float64
}

func (a *Advisor) estimate(ctx context.Context, teamA, teamB []string) (*estimateResult, error) {
	beliefs, err := a.recalc.CurrentBeliefs(ctx, append(append([]string{}, teamA...), teamB...))
	if err != nil {
		return nil, err
	}

	var muA, muB, skillVar, perfVar float64
	for _, id := range teamA {
		b := beliefs[id]
		muA += b.Mu
		skillVar += b.Sigma * b.Sigma
		perfVar += constants.Beta * constants.Beta
	}
	for _, id := range teamB {
		b := beliefs[id]
		muB += b.Mu
		skillVar += b.Sigma * b.Sigma
		perfVar += constants.Beta * constants.Beta
	}

	delta := muA - muB
	c := math.Sqrt(skillVar + perfVar)

	return &estimateResult{
		pA:       percent(delta / c),
		delta:    delta,
		c:        c,
		skillVar: skillVar,
	}, nil
}

// percent evaluates the standard normal CDF at t and clamps to [0,100].
func percent(t float64) int {
	p := int(math.Round(rating.NormCDF(t) * 100))
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}

// TeamSplit is the outcome of a balancing run. Both sides empty signals
// "not applicable" (fewer than four selected players), not an error.
type TeamSplit struct {
	TeamA []string `json:"teamA"`
	TeamB []string `json:"teamB"`
}

// BalanceBySkill splits the selected players into two teams by greedy
// running-sum assignment over display ratings, highest first. Ties favor
// team A. The heuristic is deterministic and intentionally not a general
// optimal partition.
func (a *Advisor) BalanceBySkill(ctx context.Context, playerIDs []string) (*TeamSplit, error) {
	return a.balance(ctx, playerIDs, func(p *domain.Player) int {
		if p == nil || p.Ordinal == nil {
			return rating.DisplayRating(rating.Ordinal(rating.DefaultBelief()))
		}
		return rating.DisplayRating(*p.Ordinal)
	})
}

// BalanceByExperience is the same greedy split keyed on games played.
func (a *Advisor) BalanceByExperience(ctx context.Context, playerIDs []string) (*TeamSplit, error) {
	return a.balance(ctx, playerIDs, func(p *domain.Player) int {
		if p == nil {
			return 0
		}
		return p.TotalGames
	})
}

func (a *Advisor) balance(ctx context.Context, playerIDs []string, weight func(*domain.Player) int) (*TeamSplit, error) {
	split := &TeamSplit{TeamA: []string{}, TeamB: []string{}}
	if len(playerIDs) < constants.MinBalancePlayers {
		a.logger.Debug().Int("players", len(playerIDs)).Msg("too few players to balance")
		return split, nil
	}

	type weighted struct {
		id     string
		weight int
	}
	players := make([]weighted, 0, len(playerIDs))
	for _, id := range playerIDs {
		p, err := a.store.GetPlayer(ctx, id)
		if err != nil && !domain.IsNotFound(err) {
			return nil, err
		}
		players = append(players, weighted{id: id, weight: weight(p)})
	}

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].weight > players[j].weight
	})

	var sumA, sumB int
	for _, p := range players {
		if sumA <= sumB {
			split.TeamA = append(split.TeamA, p.id)
			sumA += p.weight
		} else {
			split.TeamB = append(split.TeamB, p.id)
			sumB += p.weight
		}
	}

	a.logger.Debug().
		Int("team_a_sum", sumA).
		Int("team_b_sum", sumB).
		Msg("teams balanced")
	return split, nil
}
