package streak

import (
	"time"

	"github.com/google/uuid"
)

// Timing rules for the streak lifecycle. The warning threshold is deliberately
// shorter than the hard cutoff so a push can still reach the user in time.
const (
	AutoRelapseAfter         = 24 * time.Hour
	ConfirmationWarningAfter = 18 * time.Hour
	RecentRelapseWindow      = 72 * time.Hour
)

// Record is the per-user streak state. StartDate is set exactly when IsActive
// is true; RelapseTime and PreviousStartDate survive a restart so rank-change
// indicators decay on their own schedule.
type Record struct {
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	StartDate         *time.Time `json:"start_date" db:"start_date"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	LastUpdateTime    time.Time  `json:"last_update_time" db:"last_update_time"`
	RelapseTime       *time.Time `json:"relapse_time,omitempty" db:"relapse_time"`
	PreviousStartDate *time.Time `json:"previous_start_date,omitempty" db:"previous_start_date"`
	Exempt            bool       `json:"exempt,omitempty" db:"exempt"`
	WarnedAt          *time.Time `json:"-" db:"warned_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// NewRecord returns the default inactive record created on first login.
func NewRecord(userID uuid.UUID, now time.Time) *Record {
	return &Record{
		UserID:         userID,
		IsActive:       false,
		LastUpdateTime: now,
		UpdatedAt:      now,
	}
}

// Start begins a new streak. Returns false if one is already running.
func (r *Record) Start(now time.Time) bool {
	if r.IsActive {
		return false
	}
	start := now
	r.StartDate = &start
	r.IsActive = true
	r.LastUpdateTime = now
	r.WarnedAt = nil
	r.UpdatedAt = now
	return true
}

// Relapse ends the current streak and returns the day count it reached,
// captured before the reset. Returns (0, false) if no streak is running.
func (r *Record) Relapse(now time.Time) (int, bool) {
	if !r.IsActive {
		return 0, false
	}
	days := r.DaysCount(now)
	r.PreviousStartDate = r.StartDate
	r.StartDate = nil
	r.IsActive = false
	relapse := now
	r.RelapseTime = &relapse
	r.LastUpdateTime = now
	r.WarnedAt = nil
	r.UpdatedAt = now
	return days, true
}

// Confirm resets the auto-relapse clock. Returns false if no streak is
// running; a confirm on an inactive record is nothing to do, not an error.
func (r *Record) Confirm(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	r.LastUpdateTime = now
	r.WarnedAt = nil
	r.UpdatedAt = now
	return true
}

// Stale reports whether the record has crossed the hard auto-relapse cutoff.
func (r *Record) Stale(now time.Time) bool {
	return r.IsActive && !r.Exempt && now.Sub(r.LastUpdateTime) >= AutoRelapseAfter
}

// AutoRelapse applies the system-initiated relapse if and only if the record
// is stale. Identical in shape to a manual Relapse, and idempotent: running
// it on an already-inactive record changes nothing.
func (r *Record) AutoRelapse(now time.Time) (int, bool) {
	if !r.Stale(now) {
		return 0, false
	}
	return r.Relapse(now)
}

// DaysCount is the derived whole-day length of the current streak, 0 when
// inactive.
func (r *Record) DaysCount(now time.Time) int {
	if !r.IsActive || r.StartDate == nil {
		return 0
	}
	days := int(now.Sub(*r.StartDate) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

// RecentlyRelapsed reports whether the most recent relapse is inside the
// decay window used for the leaderboard badge and rank-change indicators.
func (r *Record) RecentlyRelapsed(now time.Time) bool {
	return r.RelapseTime != nil && now.Sub(*r.RelapseTime) <= RecentRelapseWindow
}
