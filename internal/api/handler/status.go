package handler

import (
	"net/http"

	"github.com/jwren/castellan/internal/api/response"
	"github.com/jwren/castellan/internal/registry"
)

// StatusHandler exposes health and orchestrator counters
type StatusHandler struct {
	connections *registry.ConnectionRegistry
	sessions    *registry.SessionRegistry
}

// NewStatusHandler creates a StatusHandler
func NewStatusHandler(connections *registry.ConnectionRegistry, sessions *registry.SessionRegistry) *StatusHandler {
	return &StatusHandler{connections: connections, sessions: sessions}
}

// Health handles GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}

// Status handles GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	conns, users := h.connections.Counts()

	pending, started := 0, 0
	for _, session := range h.sessions.All() {
		if session.Started() {
			started++
		} else {
			pending++
		}
	}

	response.JSON(w, http.StatusOK, response.Status{
		Connections:  conns,
		OnlineUsers:  users,
		Sessions:     pending + started,
		PendingGames: pending,
		StartedGames: started,
	})
}
