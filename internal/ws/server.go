package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/registry"
	"github.com/jwren/castellan/internal/services/auth"
	"github.com/jwren/castellan/internal/services/matchmaking"
	"github.com/jwren/castellan/internal/services/message"
)

// Config holds transport settings
type Config struct {
	// MinClientVersion, when set, triggers a banner push to clients that
	// authenticate with an older version string
	MinClientVersion string
}

// Server accepts lobby websocket connections and wires inbound messages
// to the matchmaking controller. One Server per process; connection
// state lives in the registries.
type Server struct {
	upgrader    websocket.Upgrader
	connections *registry.ConnectionRegistry
	controller  *matchmaking.Controller
	auth        *auth.Service
	messages    *message.Service
	broadcaster *Broadcaster
	logger      *slog.Logger
	cfg         Config
}

// NewServer creates a websocket Server
func NewServer(
	connections *registry.ConnectionRegistry,
	controller *matchmaking.Controller,
	authService *auth.Service,
	messages *message.Service,
	broadcaster *Broadcaster,
	logger *slog.Logger,
	cfg Config,
) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		connections: connections,
		controller:  controller,
		auth:        authService,
		messages:    messages,
		broadcaster: broadcaster,
		logger:      logger,
		cfg:         cfg,
	}
}

// ServeHTTP upgrades the request and runs the connection until the
// socket closes
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	id := model.ConnectionID(uuid.NewString())
	client := newClient(id, socket, s.logger)
	conn := registry.NewConnection(id, client)
	s.connections.Add(conn)

	s.logger.Info("connection opened", slog.String("connection", string(id)))

	go client.writePump()

	ctx := r.Context()
	s.sendWelcome(ctx, conn)

	client.readPump(func(env envelope) {
		s.dispatch(ctx, conn, env)
	})

	s.handleClose(ctx, conn)
}

// sendWelcome pushes the initial lobby snapshot to a fresh, still
// anonymous connection. Single-socket sends bypass the user-list
// throttle.
func (s *Server) sendWelcome(ctx context.Context, conn *registry.Connection) {
	s.broadcaster.SendGameList(conn)
	s.broadcaster.SendUserList(conn)
	s.sendChatHistory(ctx, conn)
}

func (s *Server) sendChatHistory(ctx context.Context, conn *registry.Connection) {
	history, err := s.messages.Recent(ctx)
	if err != nil {
		s.logger.Error("failed to load lobby chat history",
			slog.String("error", err.Error()))
		return
	}
	conn.Send(msgLobbyHistory, message.FilterForViewer(history, conn.User()))
}

func (s *Server) handleClose(ctx context.Context, conn *registry.Connection) {
	conn.Sender.Close()
	user := s.connections.Remove(conn.ID)
	s.logger.Info("connection closed", slog.String("connection", string(conn.ID)))

	if user == nil {
		return
	}
	s.controller.HandleDisconnect(ctx, user)
	s.broadcaster.BroadcastUserList()
}

func (s *Server) dispatch(ctx context.Context, conn *registry.Connection, env envelope) {
	if env.Type == msgAuthenticate {
		s.handleAuthenticate(ctx, conn, env.Data)
		return
	}

	user := conn.User()
	if user == nil {
		conn.Send(msgError, errorResponse{Message: "authentication required"})
		return
	}

	var err error
	switch env.Type {
	case msgNewGame:
		err = s.handleNewGame(ctx, conn, user, env.Data)
	case msgJoinGame:
		err = s.handleJoinGame(ctx, conn, user, env.Data)
	case msgWatchGame:
		err = s.handleWatchGame(ctx, conn, user, env.Data)
	case msgLeaveGame:
		err = s.controller.Leave(ctx, user)
	case msgStartGame:
		err = s.handleStartGame(ctx, user, env.Data)
	case msgGameChat:
		err = s.handleGameChat(ctx, user, env.Data)
	case msgSelectDeck:
		err = s.handleSelectDeck(ctx, user, env.Data)
	case msgLobbyChat:
		err = s.handleLobbyChat(ctx, user, env.Data)
	case msgConnectFailed:
		err = s.controller.ConnectFailed(ctx, user)
	case msgRemoveGame:
		err = s.handleRemoveGame(ctx, user, env.Data)
	default:
		s.logger.Debug("unknown message type",
			slog.String("connection", string(conn.ID)),
			slog.String("type", env.Type))
		return
	}

	if err != nil {
		conn.Send(msgError, errorResponse{Message: userFacingError(err)})
	}
}

func (s *Server) handleAuthenticate(ctx context.Context, conn *registry.Connection, data json.RawMessage) {
	var req authenticateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.Send(msgError, errorResponse{Message: "malformed authenticate request"})
		return
	}

	user, err := s.auth.ValidateToken(ctx, req.Token)
	if err != nil {
		conn.Send(msgError, errorResponse{Message: "invalid token"})
		return
	}

	previous, err := s.connections.Authenticate(conn.ID, user)
	if err != nil {
		conn.Send(msgError, errorResponse{Message: "connection is gone"})
		return
	}
	if previous != nil {
		// Same account logged in elsewhere; the old socket loses
		s.logger.Info("duplicate login, closing previous connection",
			slog.String("user", string(user.Username)),
			slog.String("previous", string(previous.ID)))
		previous.Sender.Close()
	}

	s.logger.Info("connection authenticated",
		slog.String("connection", string(conn.ID)),
		slog.String("user", string(user.Username)))

	conn.Send(msgAuthenticated, user.Summary())
	if s.cfg.MinClientVersion != "" && req.Version != "" && req.Version < s.cfg.MinClientVersion {
		conn.Send(msgBanner, bannerResponse{
			Message: "A new client version is available. Please refresh.",
		})
	}

	// The authenticated view differs from the anonymous one: block-list
	// filtering now applies, and chat history is re-filtered
	s.broadcaster.SendGameList(conn)
	s.broadcaster.SendUserList(conn)
	s.sendChatHistory(ctx, conn)
	s.broadcaster.BroadcastUserList()

	// Reconnecting into a running game: hand the client straight back
	s.controller.ResendHandoff(conn.ID, user)
}

func (s *Server) handleNewGame(ctx context.Context, conn *registry.Connection, user *model.UserDetails, data json.RawMessage) error {
	var req newGameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errMalformed
	}
	_, err := s.controller.Create(ctx, conn.ID, user, model.SessionConfig{
		Name:            req.Name,
		Password:        req.Password,
		AllowSpectators: req.AllowSpectators,
		MaxPlayers:      req.MaxPlayers,
	})
	return err
}

func (s *Server) handleJoinGame(ctx context.Context, conn *registry.Connection, user *model.UserDetails, data json.RawMessage) error {
	var req gameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errMalformed
	}
	return s.controller.Join(ctx, conn.ID, user, req.GameID, req.Password)
}

func (s *Server) handleWatchGame(ctx context.Context, conn *registry.Connection, user *model.UserDetails, data json.RawMessage) error {
	var req gameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errMalformed
	}
	return s.controller.Watch(ctx, conn.ID, user, req.GameID, req.Password)
}

func (s *Server) handleStartGame(ctx context.Context, user *model.UserDetails, data json.RawMessage) error {
	var req gameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errMalformed
	}
	return s.controller.Start(ctx, user, req.GameID)
}

func (s *Server) handleGameChat(ctx context.Context, user *model.UserDetails, data json.RawMessage) error {
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errMalformed
	}
	return s.controller.Chat(ctx, user, req.Message)
}

func (s *Server) handleSelectDeck(ctx context.Context, user *model.UserDetails, data json.RawMessage) error {
	var req selectDeckRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errMalformed
	}
	return s.controller.SelectDeck(ctx, user, req.GameID, req.DeckID)
}

func (s *Server) handleLobbyChat(ctx context.Context, user *model.UserDetails, data json.RawMessage) error {
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errMalformed
	}
	msg, err := s.messages.Add(ctx, user.Summary(), req.Message)
	if err != nil {
		return err
	}
	s.broadcaster.BroadcastLobbyMessage(msg)
	return nil
}

func (s *Server) handleRemoveGame(ctx context.Context, user *model.UserDetails, data json.RawMessage) error {
	var req gameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errMalformed
	}
	return s.controller.Remove(ctx, user, req.GameID)
}

var errMalformed = errors.New("malformed request")

// userFacingError keeps wire errors terse; anything unexpected gets a
// generic message and the detail stays in the logs
func userFacingError(err error) string {
	switch {
	case errors.Is(err, errMalformed),
		errors.Is(err, model.ErrAlreadyInGame),
		errors.Is(err, model.ErrNotInGame),
		errors.Is(err, model.ErrSessionNotFound),
		errors.Is(err, model.ErrInvalidPassword),
		errors.Is(err, model.ErrGameFull),
		errors.Is(err, model.ErrGameStarted),
		errors.Is(err, model.ErrSpectatingDisabled),
		errors.Is(err, model.ErrNotOwner),
		errors.Is(err, model.ErrNotAllPlayersReady),
		errors.Is(err, model.ErrAssignmentFailed),
		errors.Is(err, model.ErrNotPermitted),
		errors.Is(err, model.ErrDeckNotFound):
		return err.Error()
	default:
		return "internal error"
	}
}
