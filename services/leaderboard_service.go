package services

import (
	"context"
	"fmt"
	"time"

	"streakMateAPI/internal/leaderboard"
	"streakMateAPI/internal/types/identity"
	lbtypes "streakMateAPI/internal/types/leaderboard"
	"streakMateAPI/internal/types/streak"

	"github.com/jackc/pgx/v5/pgxpool"
)

type LeaderboardService struct {
	db *pgxpool.Pool
}

func NewLeaderboardService(db *pgxpool.Pool) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// GetLeaderboard reads the current snapshot of both partitions and builds
// the ranked view. The two partitions update independently; this is a
// best-effort snapshot, not a transaction, and a record mid-write simply
// shows its previous state until the next refresh.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, forUser *identity.User) (*lbtypes.Leaderboard, error) {
	rows, err := s.fetchRows(ctx)
	if err != nil {
		return nil, err
	}

	lb := leaderboard.Build(rows, time.Now())

	if forUser != nil {
		for _, entry := range lb.Entries {
			if entry.UserID == forUser.ID {
				lb.UserPosition = entry
				break
			}
		}
	}
	return lb, nil
}

func (s *LeaderboardService) fetchRows(ctx context.Context) ([]leaderboard.Row, error) {
	query := `
	SELECT
		u.username,
		u.photo_url,
		u.is_guest,
		s.user_id,
		s.start_date,
		s.is_active,
		s.last_update_time,
		s.relapse_time,
		s.previous_start_date,
		s.exempt,
		s.warned_at,
		s.updated_at
	FROM streaks s
	INNER JOIN users u ON u.id = s.user_id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard rows: %w", err)
	}
	defer rows.Close()

	var out []leaderboard.Row
	for rows.Next() {
		var (
			row     leaderboard.Row
			isGuest bool
			rec     streak.Record
		)
		err := rows.Scan(
			&row.Username,
			&row.PhotoURL,
			&isGuest,
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
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}

		row.Partition = identity.PartitionAuthenticated
		if isGuest {
			row.Partition = identity.PartitionGuest
		}
		row.Record = &rec
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}
	return out, nil
}
