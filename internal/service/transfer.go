package service

import (
	"context"
	"fmt"
	"time"

	"atlantis-companion/internal/constants"
	"atlantis-companion/internal/domain"
	"atlantis-companion/internal/storage"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TransferService produces and consumes the bulk snapshot format at the
// engine boundary. Every import ends with exactly one full recalculation,
// the same as any live match write.
type TransferService struct {
	store     storage.Store
	lifecycle *LifecycleManager
	logger    zerolog.Logger
}

func NewTransferService(store storage.Store, lifecycle *LifecycleManager, logger zerolog.Logger) *TransferService {
	return &TransferService{store: store, lifecycle: lifecycle, logger: logger}
}

// Export captures the full dataset as a snapshot.
func (t *TransferService) Export(ctx context.Context) (*domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	snap := &domain.Snapshot{
		ExportDate:    time.Now(),
		SchemaVersion: domain.SchemaVersion,
	}

	g.Go(func() error {
		var err error
		snap.Players, err = t.store.ListPlayers(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Matches, err = t.store.ListMatches(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.MatchParticipations, err = t.store.ListAllParticipations(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to export snapshot: %w", err)
	}

	t.logger.Info().
		Int("players", len(snap.Players)).
		Int("matches", len(snap.Matches)).
		Int("participations", len(snap.MatchParticipations)).
		Msg("snapshot exported")
	return snap, nil
}

// ImportResult reports what an import changed.
type ImportResult struct {
	PlayersAdded        int    `json:"playersAdded"`
	MatchesAdded        int    `json:"matchesAdded"`
	ParticipationsAdded int    `json:"participationsAdded"`
	RecalcWarning       string `json:"recalcWarning,omitempty"`
}

// Import applies a snapshot. Replace wipes storage and loads the snapshot
// verbatim; merge keeps existing players and matches by id and adds only
// genuinely new rows, marking them as imported. The whole persistence phase
// plus the closing recalculation run under the lifecycle write lock, so a
// concurrent match write can never see (or recalculate over) a half-loaded
// dataset.
func (t *TransferService) Import(ctx context.Context, snap *domain.Snapshot, mode domain.ImportMode) (*ImportResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if mode != domain.ImportReplace && mode != domain.ImportMerge {
		return nil, &domain.ValidationError{Field: "mode", Message: fmt.Sprintf("unknown import mode %q", mode)}
	}

	var result *ImportResult
	warning, err := t.lifecycle.Exclusive(ctx, func(ctx context.Context) error {
		var err error
		if mode == domain.ImportReplace {
			result, err = t.importReplace(ctx, snap)
		} else {
			result, err = t.importMerge(ctx, snap)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	result.RecalcWarning = warning

	t.logger.Info().
		Str("mode", string(mode)).
		Int("players_added", result.PlayersAdded).
		Int("matches_added", result.MatchesAdded).
		Msg("snapshot imported")
	return result, nil
}

func (t *TransferService) importReplace(ctx context.Context, snap *domain.Snapshot) (*ImportResult, error) {
	if err := t.store.ClearAll(ctx); err != nil {
		return nil, err
	}

	for i := range snap.Players {
		if err := t.store.PutPlayer(ctx, &snap.Players[i]); err != nil {
			return nil, fmt.Errorf("failed to import player %s: %w", snap.Players[i].ID, err)
		}
	}
	for i := range snap.Matches {
		if err := t.store.PutMatch(ctx, &snap.Matches[i]); err != nil {
			return nil, fmt.Errorf("failed to import match %s: %w", snap.Matches[i].ID, err)
		}
	}
	for i := range snap.MatchParticipations {
		if err := t.store.PutParticipation(ctx, &snap.MatchParticipations[i]); err != nil {
			return nil, fmt.Errorf("failed to import participation %s: %w", snap.MatchParticipations[i].ID, err)
		}
	}

	return &ImportResult{
		PlayersAdded:        len(snap.Players),
		MatchesAdded:        len(snap.Matches),
		ParticipationsAdded: len(snap.MatchParticipations),
	}, nil
}

func (t *TransferService) importMerge(ctx context.Context, snap *domain.Snapshot) (*ImportResult, error) {
	result := &ImportResult{}

	existingPlayers := make(map[string]bool)
	players, err := t.store.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range players {
		existingPlayers[players[i].ID] = true
	}

	existingMatches := make(map[string]bool)
	matches, err := t.store.ListMatches(ctx)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		existingMatches[matches[i].ID] = true
	}

	for i := range snap.Players {
		p := snap.Players[i]
		if existingPlayers[p.ID] {
			continue
		}
		p.Source = domain.SourceImported
		if err := t.store.PutPlayer(ctx, &p); err != nil {
			return nil, fmt.Errorf("failed to merge player %s: %w", p.ID, err)
		}
		result.PlayersAdded++
	}

	addedMatches := make(map[string]bool)
	for i := range snap.Matches {
		m := snap.Matches[i]
		if existingMatches[m.ID] {
			continue
		}
		m.Source = domain.SourceImported
		if err := t.store.PutMatch(ctx, &m); err != nil {
			return nil, fmt.Errorf("failed to merge match %s: %w", m.ID, err)
		}
		addedMatches[m.ID] = true
		result.MatchesAdded++
	}

	// Participations ride along with their match: an existing match keeps
	// its stored roster untouched.
	for i := range snap.MatchParticipations {
		p := snap.MatchParticipations[i]
		if !addedMatches[p.MatchID] {
			continue
		}
		if err := t.store.PutParticipation(ctx, &p); err != nil {
			return nil, fmt.Errorf("failed to merge participation %s: %w", p.ID, err)
		}
		result.ParticipationsAdded++
	}

	return result, nil
}
