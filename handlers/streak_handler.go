package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"streakMateAPI/internal/types/identity"
	"streakMateAPI/services"
)

type StreakHandler struct {
	identityService *services.IdentityService
	streakService   *services.StreakService
}

func NewStreakHandler(identityService *services.IdentityService, streakService *services.StreakService) *StreakHandler {
	return &StreakHandler{
		identityService: identityService,
		streakService:   streakService,
	}
}

// currentUser resolves the authenticated or guest identity behind the
// request. A missing identity is answered directly.
func (h *StreakHandler) currentUser(ctx context.Context, w http.ResponseWriter) (*identity.User, bool) {
	user, err := h.identityService.ResolveCurrent(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNoCurrentIdentity) || errors.Is(err, services.ErrUserNotFound) {
			respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to resolve identity")
		}
		return nil, false
	}
	return user, true
}

func (h *StreakHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	rec, err := h.streakService.GetRecord(ctx, user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load streak")
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func (h *StreakHandler) StartChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	rec, err := h.streakService.Start(ctx, user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to start challenge")
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func (h *StreakHandler) Relapse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	result, err := h.streakService.Relapse(ctx, user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to record relapse")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *StreakHandler) ConfirmActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	rec, err := h.streakService.Confirm(ctx, user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to confirm activity")
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func (h *StreakHandler) GetDaysCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	days, err := h.streakService.DaysCount(ctx, user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute days count")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"days_count": days})
}

func (h *StreakHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	var body struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.identityService.RegisterDevice(ctx, user.ID, body.Token, body.Platform); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
