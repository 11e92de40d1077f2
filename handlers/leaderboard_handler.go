package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"streakMateAPI/internal/realtime"
	"streakMateAPI/internal/types/identity"
	"streakMateAPI/services"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type LeaderboardHandler struct {
	identityService    *services.IdentityService
	leaderboardService *services.LeaderboardService
	hub                *realtime.Hub
}

func NewLeaderboardHandler(identityService *services.IdentityService, leaderboardService *services.LeaderboardService, hub *realtime.Hub) *LeaderboardHandler {
	return &LeaderboardHandler{
		identityService:    identityService,
		leaderboardService: leaderboardService,
		hub:                hub,
	}
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// The board itself is visible without the requester's own position.
	user, _ := h.identityService.ResolveCurrent(ctx)

	lb, err := h.leaderboardService.GetLeaderboard(ctx, user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, lb)
}

// StreamLeaderboard pushes a fresh snapshot over a WebSocket whenever any
// streak record changes. The hub subscription is released when the client
// disconnects; without that, a torn-down view would keep a live handler.
func (h *LeaderboardHandler) StreamLeaderboard(w http.ResponseWriter, r *http.Request) {
	user, _ := h.identityService.ResolveCurrent(r.Context())

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Could not upgrade connection: %v", err)
		return
	}
	defer ws.Close()

	sub := h.hub.Subscribe()
	defer sub.Unsubscribe()

	// Reader goroutine: its only job is noticing the disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.sendSnapshot(r.Context(), ws, user); err != nil {
		return
	}

	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			// Drain whatever queued up; one snapshot covers them all.
		drain:
			for {
				select {
				case _, ok := <-sub.C:
					if !ok {
						return
					}
				default:
					break drain
				}
			}
			if err := h.sendSnapshot(r.Context(), ws, user); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *LeaderboardHandler) sendSnapshot(ctx context.Context, ws *websocket.Conn, user *identity.User) error {
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	lb, err := h.leaderboardService.GetLeaderboard(fetchCtx, user)
	if err != nil {
		log.Printf("Leaderboard stream: failed to build snapshot: %v", err)
		return err
	}

	ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return ws.WriteJSON(lb)
}
