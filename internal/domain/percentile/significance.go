package percentile

import "github.com/marketstat/pctrun/internal/domain/stats"

// Level is the discrete signal-strength category derived from a t-score.
type Level string

const (
	LevelWeak        Level = "weak"
	LevelMarginal    Level = "marginal"
	LevelSignificant Level = "significant"
	LevelStrong      Level = "strong"
	LevelVeryStrong  Level = "very_strong"
)

// |t| thresholds separating the levels, ascending.
const (
	thresholdMarginal    = 1.5
	thresholdSignificant = 2.0
	thresholdStrong      = 3.0
	thresholdVeryStrong  = 4.0
)

// Rank orders levels for monotonicity comparisons; higher is stronger.
func (l Level) Rank() int {
	switch l {
	case LevelMarginal:
		return 1
	case LevelSignificant:
		return 2
	case LevelStrong:
		return 3
	case LevelVeryStrong:
		return 4
	default:
		return 0
	}
}

// Classify maps a t-score to its level and significance flag. An
// undefined t-score classifies as weak and not significant. Pure
// function, no state.
func Classify(t stats.Value) (Level, bool) {
	if !t.Valid {
		return LevelWeak, false
	}
	abs := t.Float
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= thresholdVeryStrong:
		return LevelVeryStrong, true
	case abs >= thresholdStrong:
		return LevelStrong, true
	case abs >= thresholdSignificant:
		return LevelSignificant, true
	case abs >= thresholdMarginal:
		return LevelMarginal, false
	default:
		return LevelWeak, false
	}
}

// Signal is the classification of one bin/horizon cell.
type Signal struct {
	Level         Level `json:"level"`
	IsSignificant bool  `json:"is_significant"`
}

// ClassifyCell derives the signal for a cell.
func ClassifyCell(cell CellStats) Signal {
	level, sig := Classify(cell.TScore)
	return Signal{Level: level, IsSignificant: sig}
}
