// Package api is the admin and account HTTP surface: health, status,
// node management, session debug dump, and the account endpoints that
// issue the tokens clients present on the lobby websocket.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jwren/castellan/internal/api/handler"
	apimiddleware "github.com/jwren/castellan/internal/api/middleware"
	"github.com/jwren/castellan/internal/gamenode"
	basemiddleware "github.com/jwren/castellan/internal/middleware"
	"github.com/jwren/castellan/internal/registry"
	"github.com/jwren/castellan/internal/services/auth"
	"github.com/jwren/castellan/internal/services/matchmaking"
)

// RouterConfig holds the dependencies of the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Connections *registry.ConnectionRegistry
	Sessions    *registry.SessionRegistry
	Controller  *matchmaking.Controller
	NodeRouter  gamenode.Router
	Lobby       http.Handler
}

// NewRouter creates the HTTP router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	accountHandler := handler.NewAccountHandler(cfg.AuthService)
	statusHandler := handler.NewStatusHandler(cfg.Connections, cfg.Sessions)
	nodeHandler := handler.NewNodeHandler(cfg.NodeRouter)
	gameHandler := handler.NewGameHandler(cfg.Sessions, cfg.Controller)

	authMiddleware := apimiddleware.Auth(cfg.AuthService)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(apimiddleware.Recovery(cfg.Logger))
	api.Use(basemiddleware.Logging(cfg.Logger))

	// Public routes
	api.HandleFunc("/health", statusHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/account/register", accountHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/account/login", accountHandler.Login).Methods(http.MethodPost)

	// Operator routes
	admin := api.NewRoute().Subrouter()
	admin.Use(authMiddleware)
	admin.Handle("/status", http.HandlerFunc(statusHandler.Status)).Methods(http.MethodGet)

	nodes := admin.PathPrefix("/nodes").Subrouter()
	nodes.Use(apimiddleware.RequireManageNodes)
	nodes.Handle("", http.HandlerFunc(nodeHandler.List)).Methods(http.MethodGet)
	nodes.Handle("/{name}/disable", http.HandlerFunc(nodeHandler.Disable)).Methods(http.MethodPost)
	nodes.Handle("/{name}/enable", http.HandlerFunc(nodeHandler.Enable)).Methods(http.MethodPost)

	games := admin.PathPrefix("/games").Subrouter()
	games.Use(apimiddleware.RequireManageGames)
	games.Handle("", http.HandlerFunc(gameHandler.Dump)).Methods(http.MethodGet)
	games.Handle("/{id}", http.HandlerFunc(gameHandler.Remove)).Methods(http.MethodDelete)

	// Lobby websocket endpoint
	if cfg.Lobby != nil {
		r.Handle("/lobby", cfg.Lobby)
	}

	return r
}
