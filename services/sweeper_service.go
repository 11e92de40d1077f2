package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"streakMateAPI/internal/types/identity"
	"streakMateAPI/internal/types/streak"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_runs_total",
		Help: "Total number of auto-relapse sweeps",
	})
	sweepAutoRelapses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_auto_relapses_total",
		Help: "Records force-relapsed by the sweeper",
	})
	sweepWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_warnings_total",
		Help: "Confirmation warnings pushed by the sweeper",
	})
	sweepRecordErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_record_errors_total",
		Help: "Per-record failures during sweeps (sweep continues past them)",
	})
)

// InitSweeperMetrics registers sweeper metrics. Call once from main.go.
func InitSweeperMetrics() {
	prometheus.MustRegister(sweepRuns)
	prometheus.MustRegister(sweepAutoRelapses)
	prometheus.MustRegister(sweepWarnings)
	prometheus.MustRegister(sweepRecordErrors)
}

// PushProvider is what the sweeper needs from FCM. Nil-able: a deployment
// without push credentials still sweeps, it just cannot warn.
type PushProvider interface {
	SendStreakWarning(ctx context.Context, tokens []string, hoursLeft int) error
}

// sweepAction classifies one record against the two thresholds.
type sweepAction int

const (
	sweepNone sweepAction = iota
	sweepWarn
	sweepRelapse
)

// classify decides what the sweep does with a record: relapse past the hard
// cutoff, warn past the warning threshold (once per inactivity window),
// otherwise nothing. Exempt and inactive records always classify as none.
func classify(rec *streak.Record, now time.Time) sweepAction {
	if !rec.IsActive || rec.Exempt {
		return sweepNone
	}
	inactive := now.Sub(rec.LastUpdateTime)
	if inactive >= streak.AutoRelapseAfter {
		return sweepRelapse
	}
	if inactive >= streak.ConfirmationWarningAfter && rec.WarnedAt == nil {
		return sweepWarn
	}
	return sweepNone
}

// SweepStats aggregates one pass for logging and metrics.
type SweepStats struct {
	Scanned  int
	Relapsed int
	Warned   int
	Errors   int
}

// SweeperService is the reconciliation pass that guarantees stale records
// get relapsed even when the owning client never runs. It is a privileged
// cross-cutting writer with one permitted mutation: the auto-relapse
// transition (plus its warning bookkeeping).
type SweeperService struct {
	db       *pgxpool.Pool
	streaks  *StreakService
	push     PushProvider
	interval time.Duration
}

func NewSweeperService(db *pgxpool.Pool, streaks *StreakService, push PushProvider, interval time.Duration) *SweeperService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SweeperService{db: db, streaks: streaks, push: push, interval: interval}
}

// Run sweeps immediately, then on every tick until ctx is cancelled. Safe to
// run concurrently with other instances' sweepers; the underlying transition
// is idempotent.
func (s *SweeperService) Run(ctx context.Context) {
	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepAndLog(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *SweeperService) sweepAndLog(ctx context.Context) {
	stats, err := s.Sweep(ctx)
	if err != nil {
		log.Printf("Sweeper: sweep failed: %v", err)
		return
	}
	if stats.Relapsed > 0 || stats.Warned > 0 || stats.Errors > 0 {
		log.Printf("Sweeper: scanned %d, relapsed %d, warned %d, errors %d",
			stats.Scanned, stats.Relapsed, stats.Warned, stats.Errors)
	}
}

// Sweep runs one reconciliation pass over all active, non-exempt records in
// both partitions. A failure on one record is counted and skipped; the scan
// always finishes.
func (s *SweeperService) Sweep(ctx context.Context) (*SweepStats, error) {
	sweepRuns.Inc()
	now := time.Now()

	query := `
	SELECT u.id, u.username, u.is_guest, ` + prefixedStreakColumns("s") + `
	FROM streaks s
	INNER JOIN users u ON u.id = s.user_id
	WHERE s.is_active = true AND s.exempt = false
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan streak records: %w", err)
	}

	type candidate struct {
		user *identity.User
		rec  *streak.Record
	}
	var candidates []candidate
	for rows.Next() {
		user := &identity.User{}
		rec := &streak.Record{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.IsGuest,
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
			rows.Close()
			return nil, fmt.Errorf("failed to scan sweep row: %w", err)
		}
		candidates = append(candidates, candidate{user: user, rec: rec})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sweep rows: %w", err)
	}

	stats := &SweepStats{Scanned: len(candidates)}
	for _, c := range candidates {
		switch classify(c.rec, now) {
		case sweepRelapse:
			if err := s.relapseRecord(ctx, c.user, c.rec, now); err != nil {
				log.Printf("Sweeper: auto-relapse for %s failed: %v", c.user.ID, err)
				sweepRecordErrors.Inc()
				stats.Errors++
				continue
			}
			sweepAutoRelapses.Inc()
			stats.Relapsed++

		case sweepWarn:
			if err := s.warnUser(ctx, c.user, now); err != nil {
				log.Printf("Sweeper: warning for %s failed: %v", c.user.ID, err)
				sweepRecordErrors.Inc()
				stats.Errors++
				continue
			}
			stats.Warned++
			sweepWarnings.Inc()
		}
	}

	return stats, nil
}

func (s *SweeperService) relapseRecord(ctx context.Context, user *identity.User, rec *streak.Record, now time.Time) error {
	days, ok := rec.AutoRelapse(now)
	if !ok {
		return nil
	}
	return s.streaks.persistRelapse(ctx, user, rec, days, true)
}

// warnUser pushes one confirmation nudge and records warned_at so the next
// sweep does not repeat it. Users with no registered devices just get the
// bookkeeping.
func (s *SweeperService) warnUser(ctx context.Context, user *identity.User, now time.Time) error {
	if s.push != nil {
		tokens, err := s.deviceTokens(ctx, user.ID)
		if err != nil {
			return err
		}
		hoursLeft := int((streak.AutoRelapseAfter - streak.ConfirmationWarningAfter).Hours())
		if err := s.push.SendStreakWarning(ctx, tokens, hoursLeft); err != nil {
			// Push delivery is best effort; still record the warning so the
			// sweeper does not hammer FCM every pass.
			log.Printf("Sweeper: push to %s failed: %v", user.ID, err)
		}
	}

	query := `UPDATE streaks SET warned_at = $2 WHERE user_id = $1 AND is_active = true AND warned_at IS NULL`
	if _, err := s.db.Exec(ctx, query, user.ID, now); err != nil {
		return fmt.Errorf("failed to record warning: %w", err)
	}
	return nil
}

func (s *SweeperService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT token FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func prefixedStreakColumns(alias string) string {
	return alias + `.user_id, ` + alias + `.start_date, ` + alias + `.is_active, ` +
		alias + `.last_update_time, ` + alias + `.relapse_time, ` + alias + `.previous_start_date, ` +
		alias + `.exempt, ` + alias + `.warned_at, ` + alias + `.updated_at`
}
