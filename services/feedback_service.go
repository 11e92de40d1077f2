package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streakMateAPI/internal/types/identity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmptyFeedback = errors.New("feedback message must not be empty")

type FeedbackService struct {
	db *pgxpool.Pool
}

func NewFeedbackService(db *pgxpool.Pool) *FeedbackService {
	return &FeedbackService{db: db}
}

// Submit appends one feedback message. Validation happens before the write;
// an empty message is a user-facing rejection, not a store error.
func (s *FeedbackService) Submit(ctx context.Context, user *identity.User, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyFeedback
	}

	query := `
	INSERT INTO feedback (id, user_id, message, created_at)
	VALUES ($1, $2, $3, NOW())
	`
	if _, err := s.db.Exec(ctx, query, uuid.New(), user.ID, message); err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}
	return nil
}
