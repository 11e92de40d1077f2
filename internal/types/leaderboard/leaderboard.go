package leaderboard

import (
	"streakMateAPI/internal/types/streak"

	"github.com/google/uuid"
)

// RankChange is the per-render overtake indicator: -1 for a recently relapsed
// entry, +1 for an entry that passed it while it was still active, 0 otherwise.
type RankChange int

const (
	RankDown RankChange = -1
	RankSame RankChange = 0
	RankUp   RankChange = 1
)

// Entry is derived on every read and never persisted.
type Entry struct {
	UserID             uuid.UUID      `json:"user_id"`
	Username           string         `json:"username"`
	PhotoURL           *string        `json:"photo_url,omitempty"`
	IsGuest            bool           `json:"is_guest"`
	Record             *streak.Record `json:"streak"`
	DaysCount          int            `json:"days_count"`
	Rank               int            `json:"rank"`
	RankChange         RankChange     `json:"rank_change"`
	IsRecentlyRelapsed bool           `json:"is_recently_relapsed"`
}

type Leaderboard struct {
	Entries      []*Entry `json:"entries"`
	UserPosition *Entry   `json:"user_position"`
	TotalUsers   int      `json:"total_users"`
}
