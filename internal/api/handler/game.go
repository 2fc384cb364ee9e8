package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jwren/castellan/internal/api/apierr"
	"github.com/jwren/castellan/internal/api/middleware"
	"github.com/jwren/castellan/internal/api/response"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/registry"
	"github.com/jwren/castellan/internal/services/matchmaking"
)

// GameHandler exposes the live session registry for operators
type GameHandler struct {
	sessions   *registry.SessionRegistry
	controller *matchmaking.Controller
}

// NewGameHandler creates a GameHandler
func NewGameHandler(sessions *registry.SessionRegistry, controller *matchmaking.Controller) *GameHandler {
	return &GameHandler{sessions: sessions, controller: controller}
}

// Dump handles GET /games: the unfiltered debug view of every session
func (h *GameHandler) Dump(w http.ResponseWriter, r *http.Request) {
	all := h.sessions.All()
	dump := make([]response.GameDump, 0, len(all))
	for _, session := range all {
		dump = append(dump, response.GameDumpFromSession(session))
	}
	response.JSON(w, http.StatusOK, response.GameDumpList{Games: dump})
}

// Remove handles DELETE /games/{id}: force-close a session
func (h *GameHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	id := model.SessionID(mux.Vars(r)["id"])

	if err := h.controller.Remove(r.Context(), user, id); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}
