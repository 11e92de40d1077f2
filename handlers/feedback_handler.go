package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"streakMateAPI/internal/types/feedback"
	"streakMateAPI/services"
)

type FeedbackHandler struct {
	identityService *services.IdentityService
	feedbackService *services.FeedbackService
}

func NewFeedbackHandler(identityService *services.IdentityService, feedbackService *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{
		identityService: identityService,
		feedbackService: feedbackService,
	}
}

func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.identityService.ResolveCurrent(ctx)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req feedback.SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.feedbackService.Submit(ctx, user, req.Message); err != nil {
		if errors.Is(err, services.ErrEmptyFeedback) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		// A store failure means the operation did not happen; the client may
		// simply try again.
		respondWithJSON(w, http.StatusOK, feedback.SubmitFeedbackResponse{Success: false})
		return
	}

	respondWithJSON(w, http.StatusOK, feedback.SubmitFeedbackResponse{Success: true})
}
