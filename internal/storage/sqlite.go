package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"atlantis-companion/internal/domain"

	"github.com/rs/zerolog"
)

// SQLiteStore is the durable Store backend over database/sql.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLiteStore(db *sql.DB, logger zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, logger: logger}
}

const playerColumns = `id, name, total_games, wins, losses, mu, sigma, ordinal, elo,
	level, last_played, date_created, source, created_at, updated_at`

func (s *SQLiteStore) GetPlayer(ctx context.Context, id string) (*domain.Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	p, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("player", id)
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get player", Err: err}
	}
	return p, nil
}

func (s *SQLiteStore) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players ORDER BY created_at, id`)
	if err != nil {
		return nil, &domain.StorageError{Op: "list players", Err: err}
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "scan player", Err: err}
		}
		players = append(players, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list players", Err: err}
	}
	return players, nil
}

func (s *SQLiteStore) PutPlayer(ctx context.Context, p *domain.Player) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (`+playerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			total_games = excluded.total_games,
			wins = excluded.wins,
			losses = excluded.losses,
			mu = excluded.mu,
			sigma = excluded.sigma,
			ordinal = excluded.ordinal,
			elo = excluded.elo,
			level = excluded.level,
			last_played = excluded.last_played,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.TotalGames, p.Wins, p.Losses,
		nullFloat(p.Mu), nullFloat(p.Sigma), nullFloat(p.Ordinal), p.Elo,
		p.Level, nullTime(p.LastPlayed), p.DateCreated, p.Source, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return &domain.StorageError{Op: "put player", Err: err}
	}
	return nil
}

func (s *SQLiteStore) DeletePlayer(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "players", "player", id)
}

const matchColumns = `id, date, winning_team, game_length, double_lanes,
	titan_players, atlantean_players, source, created_at, updated_at`

func (s *SQLiteStore) GetMatch(ctx context.Context, id string) (*domain.Match, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("match", id)
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get match", Err: err}
	}
	return m, nil
}

func (s *SQLiteStore) ListMatches(ctx context.Context) ([]domain.Match, error) {
	// Insertion order (created_at, id) is the documented tiebreaker for
	// equal dates during replay.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches ORDER BY created_at, id`)
	if err != nil {
		return nil, &domain.StorageError{Op: "list matches", Err: err}
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "scan match", Err: err}
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list matches", Err: err}
	}
	return matches, nil
}

func (s *SQLiteStore) PutMatch(ctx context.Context, m *domain.Match) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			winning_team = excluded.winning_team,
			game_length = excluded.game_length,
			double_lanes = excluded.double_lanes,
			titan_players = excluded.titan_players,
			atlantean_players = excluded.atlantean_players,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		m.ID, m.Date, string(m.WinningTeam), string(m.GameLength), m.DoubleLanes,
		m.TitanPlayers, m.AtlanteanPlayers, m.Source, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return &domain.StorageError{Op: "put match", Err: err}
	}
	return nil
}

func (s *SQLiteStore) DeleteMatch(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "matches", "match", id)
}

const participationColumns = `id, match_id, player_id, team, hero_id, hero_name,
	hero_roles, kills, deaths, assists, gold_earned, minion_kills, level,
	created_at, updated_at`

func (s *SQLiteStore) ListParticipationsByMatch(ctx context.Context, matchID string) ([]domain.MatchParticipation, error) {
	return s.listParticipations(ctx, `WHERE match_id = ?`, matchID)
}

func (s *SQLiteStore) ListParticipationsByPlayer(ctx context.Context, playerID string) ([]domain.MatchParticipation, error) {
	return s.listParticipations(ctx, `WHERE player_id = ?`, playerID)
}

func (s *SQLiteStore) ListAllParticipations(ctx context.Context) ([]domain.MatchParticipation, error) {
	return s.listParticipations(ctx, ``)
}

func (s *SQLiteStore) listParticipations(ctx context.Context, where string, args ...any) ([]domain.MatchParticipation, error) {
	query := `SELECT ` + participationColumns + ` FROM match_participations ` + where +
		` ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list participations", Err: err}
	}
	defer rows.Close()

	var parts []domain.MatchParticipation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "scan participation", Err: err}
		}
		parts = append(parts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list participations", Err: err}
	}
	return parts, nil
}

func (s *SQLiteStore) PutParticipation(ctx context.Context, p *domain.MatchParticipation) error {
	roles, err := json.Marshal(p.HeroRoles)
	if err != nil {
		return &domain.StorageError{Op: "encode hero roles", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO match_participations (`+participationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			match_id = excluded.match_id,
			player_id = excluded.player_id,
			team = excluded.team,
			hero_id = excluded.hero_id,
			hero_name = excluded.hero_name,
			hero_roles = excluded.hero_roles,
			kills = excluded.kills,
			deaths = excluded.deaths,
			assists = excluded.assists,
			gold_earned = excluded.gold_earned,
			minion_kills = excluded.minion_kills,
			level = excluded.level,
			updated_at = excluded.updated_at`,
		p.ID, p.MatchID, p.PlayerID, string(p.Team), p.HeroID, p.HeroName,
		string(roles), nullInt(p.Kills), nullInt(p.Deaths), nullInt(p.Assists),
		nullInt(p.GoldEarned), nullInt(p.MinionKills), nullInt(p.Level),
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return &domain.StorageError{Op: "put participation", Err: err}
	}
	return nil
}

func (s *SQLiteStore) DeleteParticipation(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "match_participations", "participation", id)
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	for _, table := range []string{"match_participations", "matches", "players"} {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return &domain.StorageError{Op: "clear " + table, Err: err}
		}
	}
	s.logger.Info().Msg("all records cleared")
	return nil
}

func (s *SQLiteStore) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return &domain.StorageError{Op: "delete " + kind, Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "delete " + kind, Err: err}
	}
	if affected == 0 {
		return domain.NewNotFound(kind, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (*domain.Player, error) {
	var p domain.Player
	var mu, sigma, ordinal sql.NullFloat64
	var lastPlayed sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.TotalGames, &p.Wins, &p.Losses,
		&mu, &sigma, &ordinal, &p.Elo, &p.Level, &lastPlayed,
		&p.DateCreated, &p.Source, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Mu = floatPtr(mu)
	p.Sigma = floatPtr(sigma)
	p.Ordinal = floatPtr(ordinal)
	if lastPlayed.Valid {
		t := lastPlayed.Time
		p.LastPlayed = &t
	}
	return &p, nil
}

func scanMatch(row scanner) (*domain.Match, error) {
	var m domain.Match
	var team, length string
	err := row.Scan(&m.ID, &m.Date, &team, &length, &m.DoubleLanes,
		&m.TitanPlayers, &m.AtlanteanPlayers, &m.Source, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.WinningTeam = domain.Team(team)
	m.GameLength = domain.GameLength(length)
	return &m, nil
}

func scanParticipation(row scanner) (*domain.MatchParticipation, error) {
	var p domain.MatchParticipation
	var team, roles string
	var kills, deaths, assists, gold, minions, level sql.NullInt64
	err := row.Scan(&p.ID, &p.MatchID, &p.PlayerID, &team, &p.HeroID, &p.HeroName,
		&roles, &kills, &deaths, &assists, &gold, &minions, &level,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Team = domain.Team(team)
	if err := json.Unmarshal([]byte(roles), &p.HeroRoles); err != nil {
		return nil, fmt.Errorf("decode hero roles: %w", err)
	}
	p.Kills = intPtr(kills)
	p.Deaths = intPtr(deaths)
	p.Assists = intPtr(assists)
	p.GoldEarned = intPtr(gold)
	p.MinionKills = intPtr(minions)
	p.Level = intPtr(level)
	return &p, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
