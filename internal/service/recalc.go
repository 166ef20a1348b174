package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"atlantis-companion/internal/constants"
	"atlantis-companion/internal/domain"
	"atlantis-companion/internal/rating"
	"atlantis-companion/internal/storage"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RecalcEngine replays the entire match history from scratch to derive every
// player's rating and win/loss tally. Ratings are a pure function of the
// current history: there is no incremental path, so edits and deletes stay
// trivially consistent.
type RecalcEngine struct {
	store  storage.Store
	logger zerolog.Logger
}

func NewRecalcEngine(store storage.Store, logger zerolog.Logger) *RecalcEngine {
	return &RecalcEngine{store: store, logger: logger}
}

// PlayerState is one player's accumulated standing during a replay.
type PlayerState struct {
	Belief     domain.Belief
	TotalGames int
	Wins       int
	Losses     int
	LastPlayed time.Time
}

// dataset is one consistent load of everything the replay needs.
type dataset struct {
	players []domain.Player
	matches []domain.Match
	parts   []domain.MatchParticipation
}

func (e *RecalcEngine) load(ctx context.Context) (*dataset, error) {
	g, gCtx := errgroup.WithContext(ctx)
	ds := &dataset{}

	g.Go(func() error {
		var err error
		ds.players, err = e.store.ListPlayers(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		ds.matches, err = e.store.ListMatches(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		ds.parts, err = e.store.ListAllParticipations(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return ds, nil
}

// observeFunc is invoked after each applied match with the replay state so
// far. matchNumber counts applied matches from 1; skipped matches do not
// advance it.
type observeFunc func(matchNumber int, m *domain.Match, states map[string]*PlayerState)

// replay runs the chronological replay over a loaded dataset. It is pure:
// the same inputs always produce the same states. Matches are ordered by
// date ascending with insertion order (the store's list order) as the stable
// tiebreaker. A match with an empty side cannot affect ratings and is
// skipped; a participation referencing an unknown player is an inconsistency
// and aborts the replay.
func replay(ds *dataset, observe observeFunc) (map[string]*PlayerState, error) {
	states := make(map[string]*PlayerState, len(ds.players))
	for i := range ds.players {
		states[ds.players[i].ID] = &PlayerState{Belief: rating.DefaultBelief()}
	}

	partsByMatch := make(map[string][]domain.MatchParticipation)
	for _, p := range ds.parts {
		partsByMatch[p.MatchID] = append(partsByMatch[p.MatchID], p)
	}

	ordered := make([]domain.Match, len(ds.matches))
	copy(ordered, ds.matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	applied := 0
	for i := range ordered {
		m := &ordered[i]
		parts := partsByMatch[m.ID]

		var titans, atlanteans []domain.MatchParticipation
		for _, p := range parts {
			switch p.Team {
			case domain.TeamTitans:
				titans = append(titans, p)
			case domain.TeamAtlanteans:
				atlanteans = append(atlanteans, p)
			}
		}
		if len(titans) == 0 || len(atlanteans) == 0 {
			// Tolerated: a one-sided roster cannot move any rating.
			continue
		}

		for _, p := range parts {
			if _, ok := states[p.PlayerID]; !ok {
				return nil, &domain.InconsistentStateError{
					MatchID: m.ID,
					Reason:  fmt.Sprintf("participation %s references unknown player %s", p.ID, p.PlayerID),
				}
			}
		}

		titanBeliefs := make([]domain.Belief, len(titans))
		for i, p := range titans {
			titanBeliefs[i] = states[p.PlayerID].Belief
		}
		atlanteanBeliefs := make([]domain.Belief, len(atlanteans))
		for i, p := range atlanteans {
			atlanteanBeliefs[i] = states[p.PlayerID].Belief
		}

		titansWon := m.WinningTeam == domain.TeamTitans
		newTitans, newAtlanteans := rating.UpdateTeams(titanBeliefs, atlanteanBeliefs, titansWon)

		for i, p := range titans {
			states[p.PlayerID].Belief = newTitans[i]
		}
		for i, p := range atlanteans {
			states[p.PlayerID].Belief = newAtlanteans[i]
		}

		for _, p := range parts {
			st := states[p.PlayerID]
			st.TotalGames++
			if p.Won(m) {
				st.Wins++
			} else {
				st.Losses++
			}
			if m.Date.After(st.LastPlayed) {
				st.LastPlayed = m.Date
			}
		}

		applied++
		if observe != nil {
			observe(applied, m, states)
		}
	}

	return states, nil
}

// RecalculateAll replays the full history and overwrites every player's
// rating fields and tallies. Players with zero games keep a nil belief and
// their stored lastPlayed; everyone else gets their state refreshed from the
// replay.
func (e *RecalcEngine) RecalculateAll(ctx context.Context) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	ds, err := e.load(ctx)
	if err != nil {
		return err
	}

	states, err := replay(ds, nil)
	if err != nil {
		return err
	}

	for i := range ds.players {
		p := &ds.players[i]
		st := states[p.ID]

		p.TotalGames = st.TotalGames
		p.Wins = st.Wins
		p.Losses = st.Losses

		if st.TotalGames > 0 {
			mu, sigma := st.Belief.Mu, st.Belief.Sigma
			ordinal := rating.Ordinal(st.Belief)
			p.Mu = &mu
			p.Sigma = &sigma
			p.Ordinal = &ordinal
			p.Elo = rating.DisplayRating(ordinal)
			lastPlayed := st.LastPlayed
			p.LastPlayed = &lastPlayed
		} else {
			p.Mu = nil
			p.Sigma = nil
			p.Ordinal = nil
			p.Elo = rating.DisplayRating(rating.Ordinal(rating.DefaultBelief()))
		}
		p.UpdatedAt = time.Now()

		if err := e.store.PutPlayer(ctx, p); err != nil {
			e.logger.Error().Err(err).Str("player_id", p.ID).Msg("failed to persist recalculated player")
			return fmt.Errorf("failed to persist player %s: %w", p.ID, err)
		}
	}

	e.logger.Info().
		Int("players", len(ds.players)).
		Int("matches", len(ds.matches)).
		Dur("duration", time.Since(start)).
		Msg("recalculation completed")
	return nil
}

// HistoricalRatings replays the history and captures every rated player's
// display rating after each applied match. It shares the exact per-match
// update step with RecalculateAll.
func (e *RecalcEngine) HistoricalRatings(ctx context.Context) ([]domain.RatingSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	ds, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	var snapshots []domain.RatingSnapshot
	_, err = replay(ds, func(matchNumber int, m *domain.Match, states map[string]*PlayerState) {
		ratings := make(map[string]int)
		for id, st := range states {
			if st.TotalGames == 0 {
				continue
			}
			ratings[id] = rating.DisplayRating(rating.Ordinal(st.Belief))
		}
		snapshots = append(snapshots, domain.RatingSnapshot{
			MatchNumber: matchNumber,
			Date:        m.Date,
			Ratings:     ratings,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug().Int("snapshots", len(snapshots)).Msg("historical ratings computed")
	return snapshots, nil
}

// CurrentBeliefs returns each rated player's stored belief, falling back to
// the default for unrated or unknown ids. Read-only consumers use this
// instead of re-running a replay.
func (e *RecalcEngine) CurrentBeliefs(ctx context.Context, ids []string) (map[string]domain.Belief, error) {
	beliefs := make(map[string]domain.Belief, len(ids))
	for _, id := range ids {
		p, err := e.store.GetPlayer(ctx, id)
		if err != nil {
			if domain.IsNotFound(err) {
				beliefs[id] = rating.DefaultBelief()
				continue
			}
			return nil, err
		}
		if p.Rated() {
			beliefs[id] = domain.Belief{Mu: *p.Mu, Sigma: *p.Sigma}
		} else {
			beliefs[id] = rating.DefaultBelief()
		}
	}
	return beliefs, nil
}
