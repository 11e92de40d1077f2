package chat

import (
	"time"

	"github.com/google/uuid"
)

// MaxVisibleMessages caps how much of the append-only channel a read returns.
const MaxVisibleMessages = 100

type Message struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SendMessageRequest struct {
	Body string `json:"body"`
}
