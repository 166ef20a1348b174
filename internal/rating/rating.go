// Package rating implements the two-team Bayesian skill update used for all
// rating math. Every function here is pure: the full-history replay in the
// recalculation engine depends on these producing identical outputs for
// identical inputs.
package rating

import (
	"math"

	"atlantis-companion/internal/constants"
	"atlantis-companion/internal/domain"
)

// DefaultBelief returns the belief assigned to a player before their first
// recorded match.
func DefaultBelief() domain.Belief {
	return domain.Belief{Mu: constants.DefaultMu, Sigma: constants.DefaultSigma}
}

// Ordinal is the conservative scalar summary mu - k*sigma used for ranking.
func Ordinal(b domain.Belief) float64 {
	return b.Mu - constants.OrdinalK*b.Sigma
}

// DisplayRating maps an ordinal onto the user-facing integer band. The
// rescale (offset 1500, multiplier 40) is fixed and monotonic so historical
// ratings remain comparable across recalculations.
func DisplayRating(ordinal float64) int {
	return int(math.Round(constants.DisplayOffset + constants.DisplayScale*ordinal))
}

// UpdateTeams applies one win/lose observation to two teams of beliefs and
// returns the posterior beliefs in the same order. Teams may be uneven. The
// winner argument selects which slice won; there are no draws.
//
// Each input sigma^2 is first inflated by tau^2 (skill drift since the
// player's last observation). Team performance variance is the sum of member
// variances plus beta^2 per member. The shared correction derived from the
// skill delta is distributed over members in proportion to their variance,
// and each sigma shrinks toward (but never below) a small floor.
func UpdateTeams(teamA, teamB []domain.Belief, winnerA bool) ([]domain.Belief, []domain.Belief) {
	a := inflate(teamA)
	b := inflate(teamB)

	muA, varA := teamPerformance(a)
	muB, varB := teamPerformance(b)

	c := math.Sqrt(varA + varB)
	delta := muA - muB
	if !winnerA {
		delta = -delta
	}

	t := delta / c
	v := vWin(t)
	w := v * (v + t)

	updA := apply(a, c, v, w, winnerA)
	updB := apply(b, c, v, w, !winnerA)
	return updA, updB
}

// inflate returns a copy of team with each sigma^2 grown by tau^2.
func inflate(team []domain.Belief) []domain.Belief {
	out := make([]domain.Belief, len(team))
	for i, m := range team {
		out[i] = domain.Belief{
			Mu:    m.Mu,
			Sigma: math.Sqrt(m.Sigma*m.Sigma + constants.Tau*constants.Tau),
		}
	}
	return out
}

// teamPerformance sums member means and variances, adding beta^2 of
// performance noise per member.
func teamPerformance(team []domain.Belief) (mu, variance float64) {
	for _, m := range team {
		mu += m.Mu
		variance += m.Sigma*m.Sigma + constants.Beta*constants.Beta
	}
	return mu, variance
}

// apply distributes the shared correction over one team's members. won flips
// the sign of the mean shift; the variance shrink is the same either way.
func apply(team []domain.Belief, c, v, w float64, won bool) []domain.Belief {
	out := make([]domain.Belief, len(team))
	for i, m := range team {
		variance := m.Sigma * m.Sigma
		shift := variance / c * v
		if !won {
			shift = -shift
		}
		shrink := 1.0 - variance/(c*c)*w
		if shrink < 0 {
			shrink = 0
		}
		sigma := math.Sqrt(variance * shrink)
		if sigma < constants.SigmaMin {
			sigma = constants.SigmaMin
		}
		out[i] = domain.Belief{Mu: m.Mu + shift, Sigma: sigma}
	}
	return out
}

// vWin is the additive correction factor pdf(t)/cdf(t) for a win/lose
// observation with no draw margin.
func vWin(t float64) float64 {
	denom := NormCDF(t)
	if denom < 1e-12 {
		// Deep in the tail the ratio approaches -t.
		return -t
	}
	return normPDF(t) / denom
}

// NormCDF is the standard normal cumulative distribution function.
func NormCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}
