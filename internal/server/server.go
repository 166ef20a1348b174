// Package server exposes the engine over JSON HTTP for the companion UI.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"atlantis-companion/internal/charts"
	"atlantis-companion/internal/domain"
	"atlantis-companion/internal/service"
	"atlantis-companion/internal/storage"

	"github.com/rs/zerolog"
)

type CompanionServer struct {
	lifecycle *service.LifecycleManager
	players   *service.PlayerService
	advisor   *service.Advisor
	heroStats *service.HeroStatsAggregator
	recalc    *service.RecalcEngine
	transfer  *service.TransferService
	store     storage.Store
	logger    zerolog.Logger
}

func NewCompanionServer(
	lifecycle *service.LifecycleManager,
	players *service.PlayerService,
	advisor *service.Advisor,
	heroStats *service.HeroStatsAggregator,
	recalc *service.RecalcEngine,
	transfer *service.TransferService,
	store storage.Store,
	logger zerolog.Logger,
) *CompanionServer {
	return &CompanionServer{
		lifecycle: lifecycle,
		players:   players,
		advisor:   advisor,
		heroStats: heroStats,
		recalc:    recalc,
		transfer:  transfer,
		store:     store,
		logger:    logger,
	}
}

// Routes registers every endpoint on a fresh mux.
func (s *CompanionServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/matches", s.handleRecordMatch)
	mux.HandleFunc("GET /api/matches", s.handleListMatches)
	mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	mux.HandleFunc("PUT /api/matches/{id}", s.handleEditMatch)
	mux.HandleFunc("DELETE /api/matches/{id}", s.handleDeleteMatch)

	mux.HandleFunc("GET /api/players", s.handleListPlayers)
	mux.HandleFunc("GET /api/players/{id}", s.handleGetPlayer)
	mux.HandleFunc("PUT /api/players/{id}/level", s.handleSetPlayerLevel)
	mux.HandleFunc("DELETE /api/players/{id}", s.handleDeletePlayer)

	mux.HandleFunc("POST /api/matchmaking/probability", s.handleWinProbability)
	mux.HandleFunc("POST /api/matchmaking/balance", s.handleBalance)

	mux.HandleFunc("GET /api/heroes/stats", s.handleHeroStats)

	mux.HandleFunc("GET /api/ratings/history", s.handleRatingHistory)
	mux.HandleFunc("GET /api/ratings/chart", s.handleRatingChart)
	mux.HandleFunc("POST /api/recalculate", s.handleRecalculate)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	return mux
}

func (s *CompanionServer) handleRecordMatch(w http.ResponseWriter, r *http.Request) {
	var in service.MatchInput
	if !s.decode(w, r, &in) {
		return
	}
	result, err := s.lifecycle.Record(r.Context(), &in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *CompanionServer) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.store.ListMatches(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, matches)
}

func (s *CompanionServer) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	match, err := s.store.GetMatch(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	parts, err := s.store.ListParticipationsByMatch(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"match":          match,
		"participations": parts,
	})
}

func (s *CompanionServer) handleEditMatch(w http.ResponseWriter, r *http.Request) {
	var update service.MatchUpdate
	if !s.decode(w, r, &update) {
		return
	}
	result, err := s.lifecycle.Edit(r.Context(), r.PathValue("id"), &update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *CompanionServer) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	result, err := s.lifecycle.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *CompanionServer) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.players.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, players)
}

func (s *CompanionServer) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.players.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, player)
}

func (s *CompanionServer) handleSetPlayerLevel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Level int `json:"level"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	player, err := s.players.SetLevel(r.Context(), r.PathValue("id"), body.Level)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, player)
}

func (s *CompanionServer) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := s.lifecycle.DeletePlayer(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *CompanionServer) handleWinProbability(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TeamA []string `json:"teamA"`
		TeamB []string `json:"teamB"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	prob, err := s.advisor.WinProbabilityWithCI(r.Context(), body.TeamA, body.TeamB)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, prob)
}

func (s *CompanionServer) handleBalance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerIDs []string `json:"playerIds"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	var split *service.TeamSplit
	var err error
	switch by := r.URL.Query().Get("by"); by {
	case "", "skill":
		split, err = s.advisor.BalanceBySkill(r.Context(), body.PlayerIDs)
	case "experience":
		split, err = s.advisor.BalanceByExperience(r.Context(), body.PlayerIDs)
	default:
		s.writeError(w, r, &domain.ValidationError{Field: "by", Message: "must be skill or experience"})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, split)
}

func (s *CompanionServer) handleHeroStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.heroStats.ComputeAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *CompanionServer) handleRatingHistory(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.recalc.HistoricalRatings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshots)
}

func (s *CompanionServer) handleRatingChart(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.recalc.HistoricalRatings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := charts.RenderSkillHistory(snapshots, charts.DefaultChartConfig(), w); err != nil {
		s.logger.Error().Err(err).Msg("failed to render rating chart")
	}
}

func (s *CompanionServer) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	if err := s.lifecycle.Recalculate(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *CompanionServer) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.transfer.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *CompanionServer) handleImport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode     domain.ImportMode `json:"mode"`
		Snapshot *domain.Snapshot  `json:"snapshot"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.Snapshot == nil {
		s.writeError(w, r, &domain.ValidationError{Field: "snapshot", Message: "snapshot is required"})
		return
	}
	result, err := s.transfer.Import(r.Context(), body.Snapshot, body.Mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *CompanionServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, r, &domain.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func (s *CompanionServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *CompanionServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidation(err):
		status = http.StatusUnprocessableEntity
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	default:
		var inconsistent *domain.InconsistentStateError
		if errors.As(err, &inconsistent) {
			status = http.StatusConflict
		}
	}

	if status >= 500 {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
