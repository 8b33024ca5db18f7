package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GameStat is the durable per-user aggregate, independent of any live
// session. All three counters are monotonically non-decreasing and change
// exactly once per resolved guess, never on hint or quit.
type GameStat struct {
	bun.BaseModel `bun:"table:game_stat"`
	UserID        int64     `bun:"user_id,pk" json:"user_id"`
	PlayCount     int       `bun:"play_count" json:"play_count"`
	CorrectCount  int       `bun:"correct_count" json:"correct_count"`
	TotalPoints   int       `bun:"total_points" json:"total_points"`
	LastUpdated   time.Time `bun:"last_updated,default:current_timestamp" json:"-"`
}

// Accuracy returns the correct-guess percentage, 0 for players with no plays.
func (stat *GameStat) Accuracy() float64 {
	if stat.PlayCount == 0 {
		return 0
	}
	return float64(stat.CorrectCount) / float64(stat.PlayCount) * 100
}
