package domain

import (
	"time"
)

// Team identifies one of the two sides of a match.
type Team string

const (
	TeamTitans     Team = "Titans"
	TeamAtlanteans Team = "Atlanteans"
)

// Opponent returns the other side.
func (t Team) Opponent() Team {
	if t == TeamTitans {
		return TeamAtlanteans
	}
	return TeamTitans
}

// Valid reports whether t is one of the two known teams.
func (t Team) Valid() bool {
	return t == TeamTitans || t == TeamAtlanteans
}

// GameLength is the match duration variant chosen at setup.
type GameLength string

const (
	GameLengthQuick GameLength = "Quick"
	GameLengthLong  GameLength = "Long"
)

// Provenance markers for rows created by live play vs bulk import.
const (
	SourceLive     = "live"
	SourceImported = "imported"
)

// Belief is a player's modeled skill as a Gaussian.
type Belief struct {
	Mu    float64
	Sigma float64
}

type Player struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	TotalGames  int        `json:"totalGames"`
	Wins        int        `json:"wins"`
	Losses      int        `json:"losses"`
	Mu          *float64   `json:"mu"`
	Sigma       *float64   `json:"sigma"`
	Ordinal     *float64   `json:"ordinal"`
	Elo         int        `json:"elo"`             // legacy display fallback, derived from Ordinal
	Level       int        `json:"level,omitempty"` // 0 = unset, otherwise 1..10
	LastPlayed  *time.Time `json:"lastPlayed"`
	DateCreated time.Time  `json:"dateCreated"`
	Source      string     `json:"source,omitempty"` // "live" or "imported"
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Rated reports whether the player has a stored skill belief.
func (p *Player) Rated() bool {
	return p.Mu != nil && p.Sigma != nil
}

type Match struct {
	ID               string     `json:"id"`
	Date             time.Time  `json:"date"`
	WinningTeam      Team       `json:"winningTeam"`
	GameLength       GameLength `json:"gameLength"`
	DoubleLanes      bool       `json:"doubleLanes"`
	TitanPlayers     int        `json:"titanPlayers"` // informational; roster truth lives in participations
	AtlanteanPlayers int        `json:"atlanteanPlayers"`
	Source           string     `json:"source,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type MatchParticipation struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"matchId"`
	PlayerID    string    `json:"playerId"`
	Team        Team      `json:"team"`
	HeroID      string    `json:"heroId"`
	HeroName    string    `json:"heroName"`
	HeroRoles   []string  `json:"heroRoles"`
	Kills       *int      `json:"kills,omitempty"`
	Deaths      *int      `json:"deaths,omitempty"`
	Assists     *int      `json:"assists,omitempty"`
	GoldEarned  *int      `json:"goldEarned,omitempty"`
	MinionKills *int      `json:"minionKills,omitempty"`
	Level       *int      `json:"level,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Won reports whether this participation was on the winning side of m.
func (p *MatchParticipation) Won(m *Match) bool {
	return p.Team == m.WinningTeam
}

// RatingSnapshot is one point of the skill-over-time series: every known
// player's display rating after a given match was applied.
type RatingSnapshot struct {
	MatchNumber int            `json:"matchNumber"`
	Date        time.Time      `json:"date"`
	Ratings     map[string]int `json:"ratings"`
}

// Snapshot is the bulk transfer format exchanged at the engine boundary.
type Snapshot struct {
	Players             []Player             `json:"players"`
	Matches             []Match              `json:"matches"`
	MatchParticipations []MatchParticipation `json:"matchParticipations"`
	ExportDate          time.Time            `json:"exportDate"`
	SchemaVersion       int                  `json:"schemaVersion"`
}

// ImportMode selects how a snapshot is applied.
type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportMerge   ImportMode = "merge"
)

// SchemaVersion is the current bulk snapshot schema version.
const SchemaVersion = 2
