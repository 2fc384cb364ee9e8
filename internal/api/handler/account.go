// Package handler implements the admin API's HTTP handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/jwren/castellan/internal/api/apierr"
	"github.com/jwren/castellan/internal/api/request"
	"github.com/jwren/castellan/internal/api/response"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/services/auth"
)

// AccountHandler exposes registration and login. Tokens issued here are
// what clients present on the lobby websocket.
type AccountHandler struct {
	auth *auth.Service
}

// NewAccountHandler creates an AccountHandler
func NewAccountHandler(authService *auth.Service) *AccountHandler {
	return &AccountHandler{auth: authService}
}

// Register handles POST /account/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.Register
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username and password are required"))
		return
	}

	user, err := h.auth.Register(r.Context(), model.Username(req.Username), req.Password, req.Email)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponse{
		User:  user.Summary(),
		Token: token,
	})
}

// Login handles POST /account/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.Login
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	token, user, err := h.auth.Login(r.Context(), model.Username(req.Username), req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponse{
		User:  user.Summary(),
		Token: token,
	})
}
