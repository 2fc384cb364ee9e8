package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jwren/castellan/internal/broadcast"
	"github.com/jwren/castellan/internal/dependencies/clock"
	"github.com/jwren/castellan/internal/dependencies/random"
	"github.com/jwren/castellan/internal/gamenode"
	"github.com/jwren/castellan/internal/registry"
	"github.com/jwren/castellan/internal/services/auth"
	"github.com/jwren/castellan/internal/services/deck"
	"github.com/jwren/castellan/internal/services/handoff"
	"github.com/jwren/castellan/internal/services/matchmaking"
	"github.com/jwren/castellan/internal/services/message"
	"github.com/jwren/castellan/internal/services/reconcile"
	"github.com/jwren/castellan/internal/storage"
	"github.com/jwren/castellan/internal/storage/memory"
	redisstorage "github.com/jwren/castellan/internal/storage/redis"
	"github.com/jwren/castellan/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// In-memory lobby state
	Connections *registry.ConnectionRegistry
	Sessions    *registry.SessionRegistry

	// Services
	AuthService    *auth.Service
	DeckService    *deck.Service
	MessageService *message.Service
	Issuer         *handoff.Issuer
	Controller     *matchmaking.Controller
	Reconciler     *reconcile.Reconciler

	// Node pool and lobby transport
	Pool        *gamenode.Pool
	Broadcaster *ws.Broadcaster
	LobbyServer *ws.Server
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config

	// TokenSecret signs lobby auth tokens (required)
	TokenSecret []byte
	// HandoffSecret signs game-server handoff tokens (required)
	HandoffSecret []byte

	// AuthConfig holds auth token settings (optional)
	AuthConfig auth.Config
	// HandoffConfig holds handoff token settings (optional)
	HandoffConfig handoff.Config
	// MatchmakingConfig holds pending-game lifecycle settings (optional)
	MatchmakingConfig matchmaking.Config
	// LobbyConfig holds lobby websocket settings (optional)
	LobbyConfig ws.Config

	// UserListInterval throttles full user-list broadcasts (optional)
	UserListInterval time.Duration

	// Nodes is the static set of game-server nodes to route games to
	Nodes []gamenode.NodeConfig
	// NodeTransport overrides how control messages reach nodes (optional)
	// If nil, an HTTP transport with default timeouts is used
	NodeTransport gamenode.NodeTransport
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	if len(cfg.TokenSecret) == 0 {
		return nil, errors.New("TokenSecret is required")
	}
	if len(cfg.HandoffSecret) == 0 {
		return nil, errors.New("HandoffSecret is required")
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	transport := cfg.NodeTransport
	if transport == nil {
		transport = gamenode.NewHTTPTransport(0)
	}

	return newWithDependencies(store, clock.New(), random.New(), transport, cfg.Logger, cfg), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	transport gamenode.NodeTransport,
	logger *slog.Logger,
	cfg Config,
) *App {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	connections := registry.NewConnectionRegistry()
	sessions := registry.NewSessionRegistry()
	pool := gamenode.NewPool(cfg.Nodes, transport, logger)

	throttle := broadcast.NewThrottle(clk, cfg.UserListInterval)
	broadcaster := ws.NewBroadcaster(connections, sessions, throttle, logger)

	authService := auth.New(store, clk, cfg.TokenSecret, cfg.AuthConfig)
	deckService := deck.New(store, deck.NewCatalogValidator(), logger)
	messageService := message.New(store, clk, rnd)
	issuer := handoff.New(cfg.HandoffSecret, cfg.HandoffConfig, clk)

	controller := matchmaking.NewController(
		sessions, connections, pool, issuer, deckService,
		broadcaster, clk, rnd, logger, cfg.MatchmakingConfig,
	)
	reconciler := reconcile.New(sessions, pool, deckService, broadcaster, logger)

	lobbyServer := ws.NewServer(
		connections, controller, authService, messageService,
		broadcaster, logger, cfg.LobbyConfig,
	)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Connections:    connections,
		Sessions:       sessions,
		AuthService:    authService,
		DeckService:    deckService,
		MessageService: messageService,
		Issuer:         issuer,
		Controller:     controller,
		Reconciler:     reconciler,
		Pool:           pool,
		Broadcaster:    broadcaster,
		LobbyServer:    lobbyServer,
	}
}
