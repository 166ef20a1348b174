package service

import (
	"context"
	"fmt"
	"time"

	"atlantis-companion/internal/constants"
	"atlantis-companion/internal/domain"
	"atlantis-companion/internal/storage"

	"github.com/rs/zerolog"
)

// PlayerService serves player reads and the one user-editable progression
// field. Ratings and tallies on the returned records are whatever the last
// recalculation wrote; this service never computes them.
type PlayerService struct {
	store  storage.Store
	logger zerolog.Logger
}

func NewPlayerService(store storage.Store, logger zerolog.Logger) *PlayerService {
	return &PlayerService{store: store, logger: logger}
}

func (s *PlayerService) Get(ctx context.Context, id string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	player, err := s.store.GetPlayer(ctx, id)
	if err != nil {
		s.logger.Debug().Err(err).Str("player_id", id).Msg("player lookup failed")
		return nil, err
	}
	return player, nil
}

func (s *PlayerService) List(ctx context.Context) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list players")
		return nil, err
	}
	return players, nil
}

// SetLevel sets a player's progression level directly. Unlike the ratchet
// applied during match recording, an explicit edit may lower the level.
func (s *PlayerService) SetLevel(ctx context.Context, id string, level int) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if level < constants.MinLevel || level > constants.MaxLevel {
		return nil, &domain.ValidationError{
			Field:    "level",
			PlayerID: id,
			Message: fmt.Sprintf("level %d outside [%d,%d]",
				level, constants.MinLevel, constants.MaxLevel),
		}
	}

	player, err := s.store.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}

	player.Level = level
	player.UpdatedAt = time.Now()
	if err := s.store.PutPlayer(ctx, player); err != nil {
		s.logger.Error().Err(err).Str("player_id", id).Msg("failed to set player level")
		return nil, err
	}

	s.logger.Info().Str("player_id", id).Int("level", level).Msg("player level set")
	return player, nil
}
