// Package leaderboard turns raw streak records into the ranked, filtered,
// annotated view the API serves. Everything here is pure: records in,
// leaderboard out, with the clock passed explicitly.
package leaderboard

import (
	"sort"
	"time"

	"streakMateAPI/internal/types/identity"
	lbtypes "streakMateAPI/internal/types/leaderboard"
	"streakMateAPI/internal/types/streak"
)

// StaleInactiveAfter removes abandoned relapsed accounts from visibility
// without deleting their history.
const StaleInactiveAfter = 24 * time.Hour

// Row is one raw record as read from a partition, before filtering. The
// owner's id lives on the record itself.
type Row struct {
	Username  string
	PhotoURL  *string
	Partition identity.Partition
	Record    *streak.Record
}

// Build merges rows from both partitions into one ranked view. The two
// partitions update independently, so Build never assumes they are mutually
// consistent; it ranks whatever snapshot it was handed.
func Build(rows []Row, now time.Time) *lbtypes.Leaderboard {
	entries := make([]*lbtypes.Entry, 0, len(rows))
	for _, row := range rows {
		if row.Record == nil {
			continue
		}
		if dropStale(row.Record, now) {
			continue
		}
		entries = append(entries, &lbtypes.Entry{
			UserID:             row.Record.UserID,
			Username:           row.Username,
			PhotoURL:           row.PhotoURL,
			IsGuest:            row.Partition.IsGuest(),
			Record:             row.Record,
			DaysCount:          row.Record.DaysCount(now),
			IsRecentlyRelapsed: row.Record.RecentlyRelapsed(now),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i], entries[j])
	})
	for i, e := range entries {
		e.Rank = i + 1
	}

	annotateRankChanges(entries, now)
	return &lbtypes.Leaderboard{
		Entries:    entries,
		TotalUsers: len(entries),
	}
}

// dropStale filters inactive entries. An account that has never run a streak
// has nothing to show and stays hidden until its first start; a relapsed
// account stays visible for the inactive-visibility window, then drops out.
func dropStale(rec *streak.Record, now time.Time) bool {
	if rec.IsActive {
		return false
	}
	if rec.RelapseTime == nil {
		return true
	}
	return now.Sub(rec.LastUpdateTime) > StaleInactiveAfter
}

// less is the total sort order: active first, then longer streaks, then
// earlier start dates (a missing start date ranks last among ties), then
// user id so equal entries order deterministically.
func less(a, b *lbtypes.Entry) bool {
	if a.Record.IsActive != b.Record.IsActive {
		return a.Record.IsActive
	}
	if a.DaysCount != b.DaysCount {
		return a.DaysCount > b.DaysCount
	}
	as, bs := a.Record.StartDate, b.Record.StartDate
	switch {
	case as != nil && bs != nil && !as.Equal(*bs):
		return as.Before(*bs)
	case as != nil && bs == nil:
		return true
	case as == nil && bs != nil:
		return false
	}
	return a.UserID.String() < b.UserID.String()
}

// annotateRankChanges applies the pairwise overtake rule: a recently relapsed
// entry is marked down, and every other active entry whose streak started
// strictly between that entry's previous start date and its relapse time is
// marked up, having passed the relapsed entry while it was still running.
// An entry's own relapse takes precedence: one that relapsed recently and
// restarted is marked down even when it also overtook someone, so the result
// does not depend on iteration order.
func annotateRankChanges(entries []*lbtypes.Entry, now time.Time) {
	for _, relapsed := range entries {
		rec := relapsed.Record
		if !rec.RecentlyRelapsed(now) {
			continue
		}
		relapsed.RankChange = lbtypes.RankDown
		if rec.PreviousStartDate == nil || rec.RelapseTime == nil {
			continue
		}
		for _, other := range entries {
			if other == relapsed || !other.Record.IsActive || other.Record.StartDate == nil {
				continue
			}
			if other.Record.RecentlyRelapsed(now) {
				continue
			}
			sd := *other.Record.StartDate
			if sd.After(*rec.PreviousStartDate) && sd.Before(*rec.RelapseTime) {
				other.RankChange = lbtypes.RankUp
			}
		}
	}
}
