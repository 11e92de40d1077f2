package services

import (
	"testing"
	"time"

	"streakMateAPI/internal/types/streak"

	"github.com/google/uuid"
)

var sweepBase = time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

func activeSince(lastUpdate time.Time) *streak.Record {
	start := lastUpdate.Add(-30 * 24 * time.Hour)
	return &streak.Record{
		UserID:         uuid.New(),
		StartDate:      &start,
		IsActive:       true,
		LastUpdateTime: lastUpdate,
		UpdatedAt:      lastUpdate,
	}
}

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		name     string
		inactive time.Duration
		want     sweepAction
	}{
		{"freshly confirmed", time.Hour, sweepNone},
		{"just under warning", streak.ConfirmationWarningAfter - time.Minute, sweepNone},
		{"at warning threshold", streak.ConfirmationWarningAfter, sweepWarn},
		{"between warning and cutoff", 20 * time.Hour, sweepWarn},
		{"just under cutoff", streak.AutoRelapseAfter - time.Minute, sweepWarn},
		{"at hard cutoff", streak.AutoRelapseAfter, sweepRelapse},
		{"long abandoned", 10 * 24 * time.Hour, sweepRelapse},
	}
	for _, tt := range tests {
		rec := activeSince(sweepBase.Add(-tt.inactive))
		if got := classify(rec, sweepBase); got != tt.want {
			t.Errorf("%s: classify = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestClassifyInactiveIsAlwaysNone(t *testing.T) {
	rec := &streak.Record{
		UserID:         uuid.New(),
		IsActive:       false,
		LastUpdateTime: sweepBase.Add(-100 * time.Hour),
	}
	if classify(rec, sweepBase) != sweepNone {
		t.Error("inactive record must never be swept")
	}
}

func TestClassifyExemptIsAlwaysNone(t *testing.T) {
	rec := activeSince(sweepBase.Add(-100 * time.Hour))
	rec.Exempt = true
	if classify(rec, sweepBase) != sweepNone {
		t.Error("exempt record must never be swept")
	}
}

func TestClassifyWarnsOnlyOncePerWindow(t *testing.T) {
	rec := activeSince(sweepBase.Add(-20 * time.Hour))
	warned := sweepBase.Add(-time.Hour)
	rec.WarnedAt = &warned
	if classify(rec, sweepBase) != sweepNone {
		t.Error("a warned record must not be warned again in the same window")
	}

	// Past the hard cutoff the warning bookkeeping no longer matters.
	rec.LastUpdateTime = sweepBase.Add(-streak.AutoRelapseAfter)
	if classify(rec, sweepBase) != sweepRelapse {
		t.Error("warned record past the cutoff must still relapse")
	}
}

func TestConfirmJustBeforeCutoffPreventsRelapse(t *testing.T) {
	rec := activeSince(sweepBase.Add(-streak.AutoRelapseAfter + time.Minute))
	if classify(rec, sweepBase) == sweepRelapse {
		t.Fatal("record confirmed 23:59 ago must not relapse")
	}

	rec2 := activeSince(sweepBase.Add(-streak.AutoRelapseAfter - time.Minute))
	if classify(rec2, sweepBase) != sweepRelapse {
		t.Fatal("record confirmed 24:01 ago must relapse")
	}

	// The relapse event reports the day count computed just before the reset.
	days, ok := rec2.AutoRelapse(sweepBase)
	if !ok || days != 31 {
		t.Errorf("auto-relapse days = %d (ok=%v), want 31", days, ok)
	}
}
