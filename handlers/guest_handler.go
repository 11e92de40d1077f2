package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"streakMateAPI/internal/credentials"
	"streakMateAPI/internal/types/identity"
	"streakMateAPI/services"
)

type GuestHandler struct {
	identityService *services.IdentityService
}

func NewGuestHandler(identityService *services.IdentityService) *GuestHandler {
	return &GuestHandler{
		identityService: identityService,
	}
}

// Register creates a credential-bound guest identity so it can be reclaimed
// from other devices.
func (h *GuestHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req identity.GuestRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.identityService.RegisterGuest(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			respondWithError(w, http.StatusConflict, "Username already taken")
		case errors.Is(err, credentials.ErrEmptyUsername),
			errors.Is(err, credentials.ErrEmptyPassword),
			errors.Is(err, credentials.ErrPasswordTooLong):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to register guest")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}

// Login reclaims a credential-bound guest identity.
func (h *GuestHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req identity.GuestLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.identityService.LoginGuest(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound), errors.Is(err, credentials.ErrWrongPassword):
			respondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		case errors.Is(err, credentials.ErrEmptyUsername), errors.Is(err, credentials.ErrEmptyPassword):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// Anonymous creates a guest with a generated name; the returned token is the
// client's only way back to this identity.
func (h *GuestHandler) Anonymous(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	session, err := h.identityService.AnonymousGuest(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create guest")
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}
