package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streakMateAPI/internal/types/chat"
	"streakMateAPI/internal/types/identity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmptyChatMessage = errors.New("chat message must not be empty")

type ChatService struct {
	db *pgxpool.Pool
}

func NewChatService(db *pgxpool.Pool) *ChatService {
	return &ChatService{db: db}
}

// Send appends one message to the global channel.
func (s *ChatService) Send(ctx context.Context, user *identity.User, body string) (*chat.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyChatMessage
	}

	msg := &chat.Message{
		ID:       uuid.New(),
		UserID:   user.ID,
		Username: user.Username,
		Body:     body,
	}

	query := `
	INSERT INTO chat_messages (id, user_id, username, body, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING created_at
	`
	if err := s.db.QueryRow(ctx, query, msg.ID, msg.UserID, msg.Username, msg.Body).Scan(&msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to store chat message: %w", err)
	}
	return msg, nil
}

// Recent returns the most recent messages in chronological order; the
// channel is append-only but reads are capped.
func (s *ChatService) Recent(ctx context.Context) ([]*chat.Message, error) {
	query := `
	SELECT id, user_id, username, body, created_at
	FROM (
		SELECT id, user_id, username, body, created_at
		FROM chat_messages
		ORDER BY created_at DESC
		LIMIT $1
	) latest
	ORDER BY created_at ASC
	`

	rows, err := s.db.Query(ctx, query, chat.MaxVisibleMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat messages: %w", err)
	}
	defer rows.Close()

	var out []*chat.Message
	for rows.Next() {
		m := &chat.Message{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
