package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jwren/castellan/internal/api/apierr"
	"github.com/jwren/castellan/internal/api/response"
	"github.com/jwren/castellan/internal/gamenode"
)

// NodeHandler exposes worker-node health and eligibility toggles
type NodeHandler struct {
	router gamenode.Router
}

// NewNodeHandler creates a NodeHandler
func NewNodeHandler(router gamenode.Router) *NodeHandler {
	return &NodeHandler{router: router}
}

// List handles GET /nodes
func (h *NodeHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.NodeList{Nodes: h.router.Status()})
}

// Disable handles POST /nodes/{name}/disable
func (h *NodeHandler) Disable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.router.DisableNode(name); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Enable handles POST /nodes/{name}/enable
func (h *NodeHandler) Enable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.router.EnableNode(name); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}
