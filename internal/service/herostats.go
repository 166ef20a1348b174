package service

import (
	"context"
	"sort"

	"atlantis-companion/internal/constants"
	"atlantis-companion/internal/domain"
	"atlantis-companion/internal/storage"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// HeroStatsAggregator derives per-hero win rates plus synergy (teammate) and
// counter (opponent) pairings from the full match history. Pure read side;
// nothing is persisted.
type HeroStatsAggregator struct {
	store  storage.Store
	logger zerolog.Logger
}

func NewHeroStatsAggregator(store storage.Store, logger zerolog.Logger) *HeroStatsAggregator {
	return &HeroStatsAggregator{store: store, logger: logger}
}

// PairStat is one hero-pair aggregate anchored on the hero owning it: games
// played together (or against) and how often the anchor's team won.
type PairStat struct {
	HeroID   string  `json:"heroId"`
	HeroName string  `json:"heroName"`
	Games    int     `json:"games"`
	Wins     int     `json:"wins"`
	WinRate  float64 `json:"winRate"`
}

// HeroStats is the full aggregate for one hero.
type HeroStats struct {
	HeroID        string     `json:"heroId"`
	HeroName      string     `json:"heroName"`
	TotalGames    int        `json:"totalGames"`
	Wins          int        `json:"wins"`
	Losses        int        `json:"losses"`
	WinRate       float64    `json:"winRate"`
	BestTeammates []PairStat `json:"bestTeammates"`
	BestAgainst   []PairStat `json:"bestAgainst"`
	WorstAgainst  []PairStat `json:"worstAgainst"`
}

type pairKey struct {
	anchor, other string
}

type pairAgg struct {
	games int
	wins  int
}

// ComputeAll aggregates every hero's stats across the whole history, sorted
// by total games descending (hero id as tiebreaker).
func (h *HeroStatsAggregator) ComputeAll(ctx context.Context) ([]HeroStats, error) {
	g, gCtx := errgroup.WithContext(ctx)
	var matches []domain.Match
	var parts []domain.MatchParticipation

	g.Go(func() error {
		var err error
		matches, err = h.store.ListMatches(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		parts, err = h.store.ListAllParticipations(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matchByID := make(map[string]*domain.Match, len(matches))
	for i := range matches {
		matchByID[matches[i].ID] = &matches[i]
	}
	partsByMatch := make(map[string][]domain.MatchParticipation)
	for _, p := range parts {
		partsByMatch[p.MatchID] = append(partsByMatch[p.MatchID], p)
	}

	names := make(map[string]string)
	totals := make(map[string]*pairAgg)
	teammates := make(map[pairKey]*pairAgg)
	opponents := make(map[pairKey]*pairAgg)

	for matchID, roster := range partsByMatch {
		m, ok := matchByID[matchID]
		if !ok {
			continue
		}
		for i := range roster {
			anchor := &roster[i]
			names[anchor.HeroID] = anchor.HeroName
			won := anchor.Won(m)
			bump(totals, anchor.HeroID, won)

			for j := range roster {
				if i == j {
					continue
				}
				other := &roster[j]
				key := pairKey{anchor: anchor.HeroID, other: other.HeroID}
				switch other.Team {
				case anchor.Team:
					if other.HeroID != anchor.HeroID {
						bumpPair(teammates, key, won)
					}
				case anchor.Team.Opponent():
					bumpPair(opponents, key, won)
				}
			}
		}
	}

	heroes := make([]string, 0, len(totals))
	for id := range totals {
		heroes = append(heroes, id)
	}
	sort.Strings(heroes)

	out := make([]HeroStats, 0, len(heroes))
	for _, id := range heroes {
		agg := totals[id]
		hs := HeroStats{
			HeroID:     id,
			HeroName:   names[id],
			TotalGames: agg.games,
			Wins:       agg.wins,
			Losses:     agg.games - agg.wins,
			WinRate:    float64(agg.wins) / float64(agg.games),
		}
		hs.BestTeammates = topPairs(teammates, id, names, false)
		hs.BestAgainst = topPairs(opponents, id, names, false)
		hs.WorstAgainst = topPairs(opponents, id, names, true)
		out = append(out, hs)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalGames != out[j].TotalGames {
			return out[i].TotalGames > out[j].TotalGames
		}
		return out[i].HeroID < out[j].HeroID
	})

	h.logger.Debug().Int("heroes", len(out)).Msg("hero statistics aggregated")
	return out, nil
}

func bump(m map[string]*pairAgg, id string, won bool) {
	agg := m[id]
	if agg == nil {
		agg = &pairAgg{}
		m[id] = agg
	}
	agg.games++
	if won {
		agg.wins++
	}
}

func bumpPair(m map[pairKey]*pairAgg, key pairKey, won bool) {
	agg := m[key]
	if agg == nil {
		agg = &pairAgg{}
		m[key] = agg
	}
	agg.games++
	if won {
		agg.wins++
	}
}

// topPairs ranks an anchor hero's pairings by win rate (games, then hero id
// as tiebreakers) and returns the top three; worst flips the order to return
// the bottom three instead.
func topPairs(pairs map[pairKey]*pairAgg, anchor string, names map[string]string, worst bool) []PairStat {
	var stats []PairStat
	for key, agg := range pairs {
		if key.anchor != anchor || agg.games < 1 {
			continue
		}
		stats = append(stats, PairStat{
			HeroID:   key.other,
			HeroName: names[key.other],
			Games:    agg.games,
			Wins:     agg.wins,
			WinRate:  float64(agg.wins) / float64(agg.games),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.WinRate != b.WinRate {
			if worst {
				return a.WinRate < b.WinRate
			}
			return a.WinRate > b.WinRate
		}
		if a.Games != b.Games {
			return a.Games > b.Games
		}
		return a.HeroID < b.HeroID
	})

	if len(stats) > constants.PairStatsTopN {
		stats = stats[:constants.PairStatsTopN]
	}
	return stats
}
