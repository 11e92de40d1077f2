package streak

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func checkInvariant(t *testing.T, r *Record) {
	t.Helper()
	if r.IsActive && r.StartDate == nil {
		t.Fatal("active record has no start date")
	}
	if !r.IsActive && r.StartDate != nil {
		t.Fatal("inactive record still has a start date")
	}
}

func TestNewRecordIsInactive(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	checkInvariant(t, r)
	if r.DaysCount(base) != 0 {
		t.Errorf("expected 0 days on fresh record, got %d", r.DaysCount(base))
	}
}

func TestStart(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	if !r.Start(base) {
		t.Fatal("start on inactive record should succeed")
	}
	checkInvariant(t, r)
	if !r.StartDate.Equal(base) {
		t.Errorf("start date = %v, want %v", r.StartDate, base)
	}
	if r.Start(base.Add(time.Hour)) {
		t.Error("start on active record should be a no-op")
	}
	if !r.StartDate.Equal(base) {
		t.Error("no-op start must not move the start date")
	}
}

func TestDaysCount(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	r.Start(base)

	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{23 * time.Hour, 0},
		{24 * time.Hour, 1},
		{10*24*time.Hour + 5*time.Hour, 10},
	}
	for _, tt := range tests {
		if got := r.DaysCount(base.Add(tt.elapsed)); got != tt.want {
			t.Errorf("DaysCount after %v = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
}

func TestRelapseCapturesDaysBeforeReset(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	r.Start(base)
	now := base.Add(5*24*time.Hour + time.Hour)

	days, ok := r.Relapse(now)
	if !ok {
		t.Fatal("relapse on active record should succeed")
	}
	checkInvariant(t, r)
	if days != 5 {
		t.Errorf("captured days = %d, want 5", days)
	}
	if r.RelapseTime == nil || !r.RelapseTime.Equal(now) {
		t.Errorf("relapse time = %v, want %v", r.RelapseTime, now)
	}
	if r.PreviousStartDate == nil || !r.PreviousStartDate.Equal(base) {
		t.Errorf("previous start date = %v, want %v", r.PreviousStartDate, base)
	}
	if r.DaysCount(now) != 0 {
		t.Error("days count must be 0 after relapse")
	}

	if _, ok := r.Relapse(now.Add(time.Hour)); ok {
		t.Error("relapse on inactive record should be a no-op")
	}
}

func TestRestartPreservesRelapseAnnotations(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	r.Start(base)
	relapseAt := base.Add(48 * time.Hour)
	r.Relapse(relapseAt)

	restartAt := relapseAt.Add(time.Hour)
	if !r.Start(restartAt) {
		t.Fatal("restart after relapse should succeed")
	}
	checkInvariant(t, r)
	if r.RelapseTime == nil || !r.RelapseTime.Equal(relapseAt) {
		t.Error("restart must not clear relapse time")
	}
	if r.PreviousStartDate == nil || !r.PreviousStartDate.Equal(base) {
		t.Error("restart must not clear previous start date")
	}
	if !r.StartDate.Equal(restartAt) {
		t.Errorf("start date = %v, want %v", r.StartDate, restartAt)
	}
}

func TestConfirm(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	if r.Confirm(base) {
		t.Error("confirm with no running streak should be a no-op")
	}

	r.Start(base)
	later := base.Add(10 * time.Hour)
	if !r.Confirm(later) {
		t.Fatal("confirm on active record should succeed")
	}
	checkInvariant(t, r)
	if !r.LastUpdateTime.Equal(later) {
		t.Errorf("last update time = %v, want %v", r.LastUpdateTime, later)
	}
	if !r.StartDate.Equal(base) {
		t.Error("confirm must not touch the start date")
	}
}

func TestAutoRelapseBoundary(t *testing.T) {
	justUnder := base.Add(AutoRelapseAfter - time.Minute)
	justOver := base.Add(AutoRelapseAfter + time.Minute)

	r := NewRecord(uuid.New(), base)
	r.Start(base)
	if _, ok := r.AutoRelapse(justUnder); ok {
		t.Error("auto-relapse fired before the 24h cutoff")
	}
	if !r.IsActive {
		t.Fatal("record should still be active")
	}

	days, ok := r.AutoRelapse(justOver)
	if !ok {
		t.Fatal("auto-relapse should fire past the 24h cutoff")
	}
	checkInvariant(t, r)
	if days != 1 {
		t.Errorf("captured days = %d, want 1", days)
	}
}

func TestAutoRelapseIdempotent(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	r.Start(base)
	now := base.Add(AutoRelapseAfter + time.Hour)
	r.AutoRelapse(now)

	snapshot := *r
	if _, ok := r.AutoRelapse(now.Add(time.Hour)); ok {
		t.Fatal("auto-relapse on inactive record must be a no-op")
	}
	if *r != snapshot {
		t.Error("no-op auto-relapse mutated the record")
	}
}

func TestExemptNeverAutoRelapses(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	r.Start(base)
	r.Exempt = true
	if _, ok := r.AutoRelapse(base.Add(100 * 24 * time.Hour)); ok {
		t.Error("exempt record must never auto-relapse")
	}
}

func TestConfirmResetsAutoRelapseClock(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	r.Start(base)
	r.Confirm(base.Add(23 * time.Hour))

	// 24h+ since start but only 1h+ since confirm.
	if r.Stale(base.Add(24*time.Hour + 30*time.Minute)) {
		t.Error("confirm did not reset the auto-relapse clock")
	}
}

func TestRecentlyRelapsed(t *testing.T) {
	r := NewRecord(uuid.New(), base)
	if r.RecentlyRelapsed(base) {
		t.Error("record with no relapse is not recently relapsed")
	}
	r.Start(base)
	r.Relapse(base.Add(time.Hour))

	relapseAt := base.Add(time.Hour)
	if !r.RecentlyRelapsed(relapseAt.Add(RecentRelapseWindow - time.Minute)) {
		t.Error("relapse inside the window should be recent")
	}
	if r.RecentlyRelapsed(relapseAt.Add(RecentRelapseWindow + time.Minute)) {
		t.Error("relapse outside the window should not be recent")
	}
}
