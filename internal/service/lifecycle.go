package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"atlantis-companion/internal/constants"
	"atlantis-companion/internal/domain"
	"atlantis-companion/internal/storage"
	"atlantis-companion/internal/validate"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// LifecycleManager owns the only write paths that mutate match data. Every
// successful write is followed by a full recalculation; the pair runs under
// a process-wide write lock so concurrent writes cannot interleave with a
// recalculation pass.
type LifecycleManager struct {
	store  storage.Store
	recalc *RecalcEngine
	logger zerolog.Logger

	writeMu sync.Mutex
}

func NewLifecycleManager(store storage.Store, recalc *RecalcEngine, logger zerolog.Logger) *LifecycleManager {
	return &LifecycleManager{store: store, recalc: recalc, logger: logger}
}

// ParticipantInput is one roster entry of a proposed match.
type ParticipantInput struct {
	PlayerID    string      `json:"playerId"`
	Team        domain.Team `json:"team"`
	HeroID      string      `json:"heroId"`
	HeroName    string      `json:"heroName"`
	HeroRoles   []string    `json:"heroRoles"`
	Kills       *int        `json:"kills,omitempty"`
	Deaths      *int        `json:"deaths,omitempty"`
	Assists     *int        `json:"assists,omitempty"`
	GoldEarned  *int        `json:"goldEarned,omitempty"`
	MinionKills *int        `json:"minionKills,omitempty"`
	Level       *int        `json:"level,omitempty"`
}

// MatchInput is a proposed new match with its full roster.
type MatchInput struct {
	Date         time.Time          `json:"date"`
	WinningTeam  domain.Team        `json:"winningTeam"`
	GameLength   domain.GameLength  `json:"gameLength"`
	DoubleLanes  bool               `json:"doubleLanes"`
	Participants []ParticipantInput `json:"participants"`
}

// WriteResult reports the outcome of a write operation. RecalcWarning is set
// when the match write succeeded but the follow-up recalculation failed even
// after retries; the write stands and ratings are stale until a retry.
type WriteResult struct {
	MatchID       string   `json:"matchId,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	RecalcWarning string   `json:"recalcWarning,omitempty"`
}

// Record validates and persists a new match with its participations, then
// triggers a full recalculation. Referenced players that do not exist yet
// are auto-created with the default belief, using the participant id as both
// id and initial name.
func (s *LifecycleManager) Record(ctx context.Context, in *MatchInput) (*WriteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	now := time.Now()
	match := &domain.Match{
		ID:          uuid.New().String(),
		Date:        in.Date,
		WinningTeam: in.WinningTeam,
		GameLength:  in.GameLength,
		DoubleLanes: in.DoubleLanes,
		Source:      domain.SourceLive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	parts := make([]domain.MatchParticipation, 0, len(in.Participants))
	for i := range in.Participants {
		p := &in.Participants[i]
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate participation id: %w", err)
		}
		parts = append(parts, domain.MatchParticipation{
			ID:          id,
			MatchID:     match.ID,
			PlayerID:    p.PlayerID,
			Team:        p.Team,
			HeroID:      p.HeroID,
			HeroName:    p.HeroName,
			HeroRoles:   p.HeroRoles,
			Kills:       p.Kills,
			Deaths:      p.Deaths,
			Assists:     p.Assists,
			GoldEarned:  p.GoldEarned,
			MinionKills: p.MinionKills,
			Level:       p.Level,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		switch p.Team {
		case domain.TeamTitans:
			match.TitanPlayers++
		case domain.TeamAtlanteans:
			match.AtlanteanPlayers++
		}
	}

	res := validate.Match(match, parts)
	if err := res.Err(); err != nil {
		s.logger.Info().Err(err).Msg("match rejected by validation")
		return nil, err
	}
	if err := s.requireRankedTeamSizes(match); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensurePlayers(ctx, parts); err != nil {
		return nil, err
	}

	if err := s.store.PutMatch(ctx, match); err != nil {
		s.logger.Error().Err(err).Str("match_id", match.ID).Msg("failed to persist match")
		return nil, err
	}
	for i := range parts {
		if err := s.store.PutParticipation(ctx, &parts[i]); err != nil {
			s.logger.Error().Err(err).Str("participation_id", parts[i].ID).Msg("failed to persist participation")
			return nil, err
		}
	}

	result := &WriteResult{MatchID: match.ID, Warnings: res.Warnings}
	s.runRecalc(ctx, result)

	s.logger.Info().
		Str("match_id", match.ID).
		Str("winning_team", string(match.WinningTeam)).
		Int("participants", len(parts)).
		Msg("match recorded")
	return result, nil
}

// requireRankedTeamSizes enforces the new-match precondition that each side
// fields at least two players. Edits of existing matches are exempt.
func (s *LifecycleManager) requireRankedTeamSizes(m *domain.Match) error {
	if m.TitanPlayers < constants.MinRankedTeamSize || m.AtlanteanPlayers < constants.MinRankedTeamSize {
		return &domain.ValidationError{
			Field: "team",
			Message: fmt.Sprintf("each team needs at least %d players for a ranked result",
				constants.MinRankedTeamSize),
		}
	}
	return nil
}

// ensurePlayers creates any missing referenced players and applies the
// monotonic level ratchet for known ones.
func (s *LifecycleManager) ensurePlayers(ctx context.Context, parts []domain.MatchParticipation) error {
	seen := make(map[string]bool, len(parts))
	for i := range parts {
		p := &parts[i]
		if seen[p.PlayerID] {
			continue
		}
		seen[p.PlayerID] = true

		player, err := s.store.GetPlayer(ctx, p.PlayerID)
		if domain.IsNotFound(err) {
			now := time.Now()
			player = &domain.Player{
				ID:          p.PlayerID,
				Name:        p.PlayerID,
				Elo:         1500,
				DateCreated: now,
				Source:      domain.SourceLive,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if p.Level != nil {
				player.Level = *p.Level
			}
			if err := s.store.PutPlayer(ctx, player); err != nil {
				return fmt.Errorf("failed to auto-create player %s: %w", p.PlayerID, err)
			}
			s.logger.Info().Str("player_id", p.PlayerID).Msg("auto-created player")
			continue
		}
		if err != nil {
			return err
		}

		// Level only ever ratchets upward from match data.
		if p.Level != nil && *p.Level > player.Level {
			player.Level = *p.Level
			player.UpdatedAt = time.Now()
			if err := s.store.PutPlayer(ctx, player); err != nil {
				return fmt.Errorf("failed to bump level for player %s: %w", p.PlayerID, err)
			}
			s.logger.Debug().Str("player_id", p.PlayerID).Int("level", player.Level).Msg("player level bumped")
		}
	}
	return nil
}

// MatchUpdate carries field-level edits to a match; nil means unchanged.
type MatchUpdate struct {
	Date           *time.Time            `json:"date,omitempty"`
	WinningTeam    *domain.Team          `json:"winningTeam,omitempty"`
	GameLength     *domain.GameLength    `json:"gameLength,omitempty"`
	DoubleLanes    *bool                 `json:"doubleLanes,omitempty"`
	Participations []ParticipationUpdate `json:"participations,omitempty"`
}

// ParticipationUpdate edits one existing participation; nil fields are
// unchanged.
type ParticipationUpdate struct {
	ID          string       `json:"id"`
	Team        *domain.Team `json:"team,omitempty"`
	HeroID      *string      `json:"heroId,omitempty"`
	HeroName    *string      `json:"heroName,omitempty"`
	HeroRoles   []string     `json:"heroRoles,omitempty"`
	Kills       *int         `json:"kills,omitempty"`
	Deaths      *int         `json:"deaths,omitempty"`
	Assists     *int         `json:"assists,omitempty"`
	GoldEarned  *int         `json:"goldEarned,omitempty"`
	MinionKills *int         `json:"minionKills,omitempty"`
	Level       *int         `json:"level,omitempty"`
}

// Edit merges proposed updates into the stored match, validates the merged
// state, persists it, and recalculates. All updates from one call apply
// sequentially against one consistent snapshot under the write lock.
func (s *LifecycleManager) Edit(ctx context.Context, matchID string, update *MatchUpdate) (*WriteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	parts, err := s.store.ListParticipationsByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if update.Date != nil {
		match.Date = *update.Date
	}
	if update.WinningTeam != nil {
		match.WinningTeam = *update.WinningTeam
	}
	if update.GameLength != nil {
		match.GameLength = *update.GameLength
	}
	if update.DoubleLanes != nil {
		match.DoubleLanes = *update.DoubleLanes
	}

	byID := make(map[string]*domain.MatchParticipation, len(parts))
	for i := range parts {
		byID[parts[i].ID] = &parts[i]
	}
	for _, pu := range update.Participations {
		p, ok := byID[pu.ID]
		if !ok {
			return nil, domain.NewNotFound("participation", pu.ID)
		}
		mergeParticipation(p, &pu)
	}

	match.TitanPlayers, match.AtlanteanPlayers = 0, 0
	for i := range parts {
		switch parts[i].Team {
		case domain.TeamTitans:
			match.TitanPlayers++
		case domain.TeamAtlanteans:
			match.AtlanteanPlayers++
		}
	}

	res := validate.Match(match, parts)
	if err := res.Err(); err != nil {
		s.logger.Info().Err(err).Str("match_id", matchID).Msg("edit rejected by validation")
		return nil, err
	}

	match.UpdatedAt = time.Now()
	if err := s.store.PutMatch(ctx, match); err != nil {
		s.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to persist match edit")
		return nil, err
	}
	for i := range parts {
		parts[i].UpdatedAt = match.UpdatedAt
		if err := s.store.PutParticipation(ctx, &parts[i]); err != nil {
			s.logger.Error().Err(err).Str("participation_id", parts[i].ID).Msg("failed to persist participation edit")
			return nil, err
		}
	}

	result := &WriteResult{MatchID: matchID, Warnings: res.Warnings}
	s.runRecalc(ctx, result)

	s.logger.Info().Str("match_id", matchID).Msg("match edited")
	return result, nil
}

func mergeParticipation(p *domain.MatchParticipation, u *ParticipationUpdate) {
	if u.Team != nil {
		p.Team = *u.Team
	}
	if u.HeroID != nil {
		p.HeroID = *u.HeroID
	}
	if u.HeroName != nil {
		p.HeroName = *u.HeroName
	}
	if u.HeroRoles != nil {
		p.HeroRoles = u.HeroRoles
	}
	if u.Kills != nil {
		p.Kills = u.Kills
	}
	if u.Deaths != nil {
		p.Deaths = u.Deaths
	}
	if u.Assists != nil {
		p.Assists = u.Assists
	}
	if u.GoldEarned != nil {
		p.GoldEarned = u.GoldEarned
	}
	if u.MinionKills != nil {
		p.MinionKills = u.MinionKills
	}
	if u.Level != nil {
		p.Level = u.Level
	}
}

// Delete removes a match and all its participations, then recalculates.
func (s *LifecycleManager) Delete(ctx context.Context, matchID string) (*WriteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.store.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	parts, err := s.store.ListParticipationsByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	for i := range parts {
		if err := s.store.DeleteParticipation(ctx, parts[i].ID); err != nil {
			s.logger.Error().Err(err).Str("participation_id", parts[i].ID).Msg("failed to delete participation")
			return nil, err
		}
	}
	if err := s.store.DeleteMatch(ctx, matchID); err != nil {
		s.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to delete match")
		return nil, err
	}

	result := &WriteResult{MatchID: matchID}
	s.runRecalc(ctx, result)

	s.logger.Info().Str("match_id", matchID).Int("participations", len(parts)).Msg("match deleted")
	return result, nil
}

// DeletePlayer removes a player. Only players with zero recorded games may
// be deleted; everyone else is referenced by history the replay depends on.
func (s *LifecycleManager) DeletePlayer(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	player, err := s.store.GetPlayer(ctx, id)
	if err != nil {
		return err
	}
	if player.TotalGames != 0 {
		return &domain.ValidationError{
			Field:    "totalGames",
			PlayerID: id,
			Message:  fmt.Sprintf("player has %d recorded games and cannot be deleted", player.TotalGames),
		}
	}
	return s.store.DeletePlayer(ctx, id)
}

// Recalculate runs a full recalculation on demand, under the write lock.
// Callers use it to clear the stale-ratings window after a reported
// recalculation failure.
func (s *LifecycleManager) Recalculate(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.recalc.RecalculateAll(ctx)
}

// Exclusive runs fn under the write lock and follows it with the same
// retried recalculation as a live match write. Bulk writers use it so their
// persistence phase cannot interleave with another write or its
// recalculation. The returned warning is non-empty when fn's writes
// persisted but the recalculation failed.
func (s *LifecycleManager) Exclusive(ctx context.Context, fn func(context.Context) error) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := fn(ctx); err != nil {
		return "", err
	}
	result := &WriteResult{}
	s.runRecalc(ctx, result)
	return result.RecalcWarning, nil
}

// runRecalc performs the post-write recalculation with a short retry. A
// persistent failure does not roll the write back; it is surfaced on the
// result so the caller knows ratings are stale.
func (s *LifecycleManager) runRecalc(ctx context.Context, result *WriteResult) {
	backoff := retry.WithMaxRetries(constants.RecalcRetryAttempts,
		retry.NewConstant(constants.RecalcRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.recalc.RecalculateAll(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("recalculation failed after write; ratings are stale")
		result.RecalcWarning = fmt.Sprintf("write persisted but recalculation failed: %v", err)
	}
}
