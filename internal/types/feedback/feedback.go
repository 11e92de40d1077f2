package feedback

import (
	"time"

	"github.com/google/uuid"
)

type Feedback struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SubmitFeedbackRequest struct {
	Message string `json:"message"`
}

type SubmitFeedbackResponse struct {
	Success bool `json:"success"`
}
