package services

import (
	"errors"
	"testing"
	"time"

	"streakMateAPI/internal/types/streak"

	"github.com/google/uuid"
)

var streakBase = time.Date(2026, 6, 14, 9, 0, 0, 0, time.UTC)

func TestOrEmptyServesDefaultStateForMissingRecord(t *testing.T) {
	id := uuid.New()

	rec, exists, err := orEmpty(nil, ErrUserNotFound, id, streakBase)
	if err != nil {
		t.Fatalf("missing record must not surface an error, got %v", err)
	}
	if exists {
		t.Error("missing record reported as stored")
	}
	if rec.UserID != id || rec.IsActive || rec.StartDate != nil {
		t.Errorf("expected the default inactive state, got %+v", rec)
	}
	if rec.DaysCount(streakBase) != 0 {
		t.Error("empty state must count zero days")
	}

	// Transitions against the empty state are nothing to do.
	if rec.Confirm(streakBase) {
		t.Error("confirm against the empty state should no-op")
	}
	if _, ok := rec.Relapse(streakBase); ok {
		t.Error("relapse against the empty state should no-op")
	}
}

func TestOrEmptyPassesThroughStoredRecord(t *testing.T) {
	stored := streak.NewRecord(uuid.New(), streakBase)
	stored.Start(streakBase)

	rec, exists, err := orEmpty(stored, nil, stored.UserID, streakBase)
	if err != nil || !exists {
		t.Fatalf("stored record should pass through, got exists=%v err=%v", exists, err)
	}
	if rec != stored {
		t.Error("stored record was replaced")
	}
}

func TestOrEmptyPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("connection refused")
	if _, _, err := orEmpty(nil, boom, uuid.New(), streakBase); !errors.Is(err, boom) {
		t.Errorf("unexpected error mapping: %v", err)
	}
}
