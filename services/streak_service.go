package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"streakMateAPI/internal/realtime"
	"streakMateAPI/internal/types/identity"
	"streakMateAPI/internal/types/streak"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var relapseDays = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "streak_relapse_days",
	Help:    "Streak length in days at the moment of relapse",
	Buckets: []float64{1, 3, 7, 14, 30, 60, 90, 180, 365},
})

// InitStreakMetrics registers streak metrics. Call once from main.go.
func InitStreakMetrics() {
	prometheus.MustRegister(relapseDays)
}

// RelapseResult reports a completed relapse: how long the streak was when it
// ended, and whether the system (rather than the user) triggered it.
type RelapseResult struct {
	DaysBeforeRelapse int            `json:"days_before_relapse"`
	Auto              bool           `json:"auto"`
	Record            *streak.Record `json:"streak"`
}

type StreakService struct {
	db  *pgxpool.Pool
	hub *realtime.Hub
}

func NewStreakService(db *pgxpool.Pool, hub *realtime.Hub) *StreakService {
	return &StreakService{db: db, hub: hub}
}

const streakColumns = `user_id, start_date, is_active, last_update_time, relapse_time, previous_start_date, exempt, warned_at, updated_at`

func scanStreak(row pgx.Row) (*streak.Record, error) {
	rec := &streak.Record{}
	err := row.Scan(
		&rec.UserID,
		&rec.StartDate,
		&rec.IsActive,
		&rec.LastUpdateTime,
		&rec.RelapseTime,
		&rec.PreviousStartDate,
		&rec.Exempt,
		&rec.WarnedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRecord returns the user's streak record. If it observes the record in
// the active-but-stale state it applies the auto-relapse transition first, a
// client-local fallback for when the global sweep is slow or unavailable.
// Both paths converge on the same idempotent transition.
func (s *StreakService) GetRecord(ctx context.Context, user *identity.User) (*streak.Record, error) {
	now := time.Now()
	rec, exists, err := s.fetchOrEmpty(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}
	if !exists {
		return rec, nil
	}
	if rec.Stale(now) {
		days, ok := rec.AutoRelapse(now)
		if ok {
			if err := s.persistRelapse(ctx, user, rec, days, true); err != nil {
				// The record did not update; serve the stale state rather
				// than fail the read. The sweeper will retry.
				log.Printf("StreakService: fallback auto-relapse for %s failed: %v", user.ID, err)
				return s.fetch(ctx, user.ID)
			}
		}
	}

	return rec, nil
}

// Start begins a new streak. Starting while one is already running, or with
// no stored record at all, is nothing to do; the current state is returned
// either way.
func (s *StreakService) Start(ctx context.Context, user *identity.User) (*streak.Record, error) {
	now := time.Now()
	rec, exists, err := s.fetchOrEmpty(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}

	if !exists || !rec.Start(now) {
		return rec, nil
	}

	query := `
	UPDATE streaks
	SET start_date = $2, is_active = true, last_update_time = $3, warned_at = NULL, updated_at = $3
	WHERE user_id = $1
	`
	if _, err := s.db.Exec(ctx, query, rec.UserID, rec.StartDate, rec.LastUpdateTime); err != nil {
		return nil, fmt.Errorf("failed to persist streak start: %w", err)
	}

	s.notifyChange(ctx, user)
	return rec, nil
}

// Relapse ends the current streak, capturing the day count it reached before
// the reset. Relapsing while inactive is nothing to do.
func (s *StreakService) Relapse(ctx context.Context, user *identity.User) (*RelapseResult, error) {
	now := time.Now()
	rec, _, err := s.fetchOrEmpty(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}

	// The empty state is inactive, so a missing record no-ops here too.
	days, ok := rec.Relapse(now)
	if !ok {
		return &RelapseResult{Record: rec}, nil
	}

	if err := s.persistRelapse(ctx, user, rec, days, false); err != nil {
		return nil, err
	}
	return &RelapseResult{DaysBeforeRelapse: days, Record: rec}, nil
}

// Confirm resets the auto-relapse clock. Confirming with no running streak,
// or with no stored record at all, is nothing to do, not a failure.
func (s *StreakService) Confirm(ctx context.Context, user *identity.User) (*streak.Record, error) {
	now := time.Now()
	rec, exists, err := s.fetchOrEmpty(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}

	if !exists || !rec.Confirm(now) {
		return rec, nil
	}

	query := `
	UPDATE streaks
	SET last_update_time = $2, warned_at = NULL, updated_at = $2
	WHERE user_id = $1 AND is_active = true
	`
	if _, err := s.db.Exec(ctx, query, rec.UserID, rec.LastUpdateTime); err != nil {
		return nil, fmt.Errorf("failed to persist confirmation: %w", err)
	}

	s.notifyChange(ctx, user)
	return rec, nil
}

// DaysCount is the derived day count for the current streak.
func (s *StreakService) DaysCount(ctx context.Context, user *identity.User) (int, error) {
	rec, err := s.GetRecord(ctx, user)
	if err != nil {
		return 0, err
	}
	return rec.DaysCount(time.Now()), nil
}

func (s *StreakService) fetch(ctx context.Context, userID uuid.UUID) (*streak.Record, error) {
	query := `SELECT ` + streakColumns + ` FROM streaks WHERE user_id = $1`
	rec, err := scanStreak(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch streak record: %w", err)
	}
	return rec, nil
}

// orEmpty folds a missing streak row into the default inactive state. Every
// identity normally gets its row at creation, but a missing one is nothing
// to do, not a failure: reads serve the empty state and transitions no-op
// against it. The second return reports whether a stored row exists.
func orEmpty(rec *streak.Record, err error, userID uuid.UUID, now time.Time) (*streak.Record, bool, error) {
	if errors.Is(err, ErrUserNotFound) {
		return streak.NewRecord(userID, now), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *StreakService) fetchOrEmpty(ctx context.Context, userID uuid.UUID, now time.Time) (*streak.Record, bool, error) {
	rec, err := s.fetch(ctx, userID)
	return orEmpty(rec, err, userID, now)
}

// persistRelapse writes a relapse (manual or auto) already applied to rec.
// The is_active guard makes concurrent attempts from the sweeper and a live
// client converge: the loser matches zero rows and the stored state is the
// same either way.
func (s *StreakService) persistRelapse(ctx context.Context, user *identity.User, rec *streak.Record, days int, auto bool) error {
	query := `
	UPDATE streaks
	SET start_date = NULL, is_active = false, last_update_time = $2,
		relapse_time = $3, previous_start_date = $4, warned_at = NULL, updated_at = $2
	WHERE user_id = $1 AND is_active = true
	`
	result, err := s.db.Exec(ctx, query, rec.UserID, rec.LastUpdateTime, rec.RelapseTime, rec.PreviousStartDate)
	if err != nil {
		return fmt.Errorf("failed to persist relapse: %w", err)
	}

	if result.RowsAffected() > 0 {
		relapseDays.Observe(float64(days))
		kind := "relapse"
		if auto {
			kind = "auto-relapse"
		}
		log.Printf("StreakService: %s for %s after %d days", kind, rec.UserID, days)
		s.notifyChange(ctx, user)
	}
	return nil
}

// notifyChange publishes the record change locally and through Postgres so
// other instances' leaderboard streams pick it up. Notification failures are
// logged and swallowed; the write itself already succeeded.
func (s *StreakService) notifyChange(ctx context.Context, user *identity.User) {
	ev := realtime.Event{Partition: user.Partition(), UserID: user.ID.String()}
	s.hub.Publish(ev)

	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if _, err := s.db.Exec(ctx, `SELECT pg_notify($1, $2)`, realtime.Channel, string(payload)); err != nil {
		log.Printf("StreakService: pg_notify failed: %v", err)
	}
}
