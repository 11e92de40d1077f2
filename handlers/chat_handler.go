package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"streakMateAPI/internal/types/chat"
	"streakMateAPI/services"
)

type ChatHandler struct {
	identityService *services.IdentityService
	chatService     *services.ChatService
}

func NewChatHandler(identityService *services.IdentityService, chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		identityService: identityService,
		chatService:     chatService,
	}
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	messages, err := h.chatService.Recent(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load chat messages")
		return
	}

	respondWithJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.identityService.ResolveCurrent(ctx)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req chat.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.chatService.Send(ctx, user, req.Body)
	if err != nil {
		if errors.Is(err, services.ErrEmptyChatMessage) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	respondWithJSON(w, http.StatusCreated, msg)
}
