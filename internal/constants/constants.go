package constants

import "time"

// Rating model constants. The scale follows the conventional 25-point skill
// band: a fresh player starts at mu = 25 with a third of that as uncertainty.
const (
	DefaultMu    = 25.0
	DefaultSigma = DefaultMu / 3.0
	// Beta is the per-player performance noise added to team variance.
	Beta = DefaultSigma / 2.0
	// Tau grows every belief's uncertainty before each match to model skill
	// drift between observations.
	Tau = DefaultSigma / 100.0
	// OrdinalK makes the ordinal a conservative estimate: mu - 3*sigma.
	OrdinalK = 3.0
	// SigmaMin is the floor below which uncertainty never shrinks.
	SigmaMin = 0.0001
)

// Display rating rescale: displayRating = DisplayOffset + DisplayScale*ordinal.
// A fresh player (ordinal 0) shows as 1500; the practical ordinal range maps
// onto roughly 1000-2000. These are fixed so historical comparisons stay
// meaningful across recalculations.
const (
	DisplayOffset = 1500.0
	DisplayScale  = 40.0
)

// Validation thresholds.
const (
	MaxLevel          = 10
	MinLevel          = 1
	KillWarnQuick     = 30
	KillWarnLong      = 50
	DeathWarn         = 20
	MaxTeamSizeDiff   = 1
	StaleMatchAge     = 365 * 24 * time.Hour
	MinRankedTeamSize = 2
	MinBalancePlayers = 4
	ConfidenceZ       = 1.96
	PairStatsTopN     = 3
)

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Recalculation retry policy after a successful match write.
const (
	RecalcRetryAttempts = 3
	RecalcRetryBackoff  = 200 * time.Millisecond
)
