package matchmaking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jwren/castellan/internal/dependencies/clock"
	"github.com/jwren/castellan/internal/dependencies/random"
	"github.com/jwren/castellan/internal/gamenode"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/registry"
	"github.com/jwren/castellan/internal/services/deck"
	"github.com/jwren/castellan/internal/services/handoff"
)

const (
	// SessionIDLength is the length of generated session ids
	SessionIDLength = 8

	// DefaultStaleTimeout evicts pending games nobody ever started
	DefaultStaleTimeout = 15 * time.Minute

	// DefaultSweepInterval is how often the staleness sweep runs
	DefaultSweepInterval = time.Minute
)

// Broadcaster pushes state changes out to connected clients. The
// websocket layer provides the real implementation; tests substitute a
// recorder.
type Broadcaster interface {
	// BroadcastGameList recomputes and pushes the filtered game list to
	// every connection
	BroadcastGameList()

	// SendGameState pushes a session snapshot to that session's
	// participants only
	SendGameState(session *model.Session)

	// SendHandoff delivers a handoff push to one connection
	SendHandoff(connID model.ConnectionID, details handoff.Details)
}

// Config holds controller settings
type Config struct {
	StaleTimeout  time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns default matchmaking configuration
func DefaultConfig() Config {
	return Config{
		StaleTimeout:  DefaultStaleTimeout,
		SweepInterval: DefaultSweepInterval,
	}
}

// Controller implements session lifecycle operations against the session
// registry, enforcing single-session-per-user and ownership rules. All
// external calls (deck lookup, node assignment) happen outside session
// critical sections.
type Controller struct {
	sessions    *registry.SessionRegistry
	connections *registry.ConnectionRegistry
	router      gamenode.Router
	issuer      *handoff.Issuer
	decks       *deck.Service
	broadcaster Broadcaster
	clock       clock.Clock
	random      random.Random
	logger      *slog.Logger
	cfg         Config
}

// NewController creates a matchmaking Controller
func NewController(
	sessions *registry.SessionRegistry,
	connections *registry.ConnectionRegistry,
	router gamenode.Router,
	issuer *handoff.Issuer,
	decks *deck.Service,
	broadcaster Broadcaster,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = DefaultStaleTimeout
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Controller{
		sessions:    sessions,
		connections: connections,
		router:      router,
		issuer:      issuer,
		decks:       decks,
		broadcaster: broadcaster,
		clock:       clock,
		random:      random,
		logger:      logger,
		cfg:         cfg,
	}
}

// Create makes a new pending session owned by the given user, who is
// seated as its first player. Fails if the user already holds a slot
// anywhere in the registry.
func (c *Controller) Create(ctx context.Context, connID model.ConnectionID, user *model.UserDetails, cfg model.SessionConfig) (*model.Session, error) {
	if existing := c.sessions.FindForUser(user.Username); existing != nil {
		return nil, model.ErrAlreadyInGame
	}

	id := c.newSessionID()
	session, err := model.NewSession(id, user, connID, cfg, c.clock.Now())
	if err != nil {
		return nil, err
	}

	c.sessions.Insert(session)
	c.logger.Info("session created",
		slog.String("session", string(id)),
		slog.String("owner", string(user.Username)))

	c.broadcaster.SendGameState(session)
	c.broadcaster.BroadcastGameList()
	return session, nil
}

func (c *Controller) newSessionID() model.SessionID {
	for {
		id := model.SessionID(c.random.String(SessionIDLength, random.IDAlphabet))
		if _, err := c.sessions.Get(id); errors.Is(err, model.ErrSessionNotFound) {
			return id
		}
	}
}

// Join seats a user as a player in the given session
func (c *Controller) Join(ctx context.Context, connID model.ConnectionID, user *model.UserDetails, id model.SessionID, password string) error {
	if existing := c.sessions.FindForUser(user.Username); existing != nil && existing.ID() != id {
		return model.ErrAlreadyInGame
	}

	session, err := c.sessions.Get(id)
	if err != nil {
		return err
	}

	if err := session.Join(connID, user.Summary(), password); err != nil {
		return err
	}

	c.broadcaster.SendGameState(session)
	c.broadcaster.BroadcastGameList()
	return nil
}

// Watch adds a user as a spectator. For a started session the spectator
// is announced to the worker node and handed off immediately.
func (c *Controller) Watch(ctx context.Context, connID model.ConnectionID, user *model.UserDetails, id model.SessionID, password string) error {
	if existing := c.sessions.FindForUser(user.Username); existing != nil {
		return model.ErrAlreadyInGame
	}

	session, err := c.sessions.Get(id)
	if err != nil {
		return err
	}

	if err := session.Watch(connID, user.Summary(), password); err != nil {
		return err
	}

	if session.Started() {
		if err := c.router.AddSpectator(session, user.Summary()); err != nil {
			c.logger.Error("failed to announce spectator to node",
				slog.String("session", string(id)),
				slog.String("error", err.Error()))
		}
		c.sendHandoff(connID, user.Summary(), session)
	} else {
		c.broadcaster.SendGameState(session)
	}
	return nil
}

// Leave removes the user from whatever session they are in
func (c *Controller) Leave(ctx context.Context, user *model.UserDetails) error {
	session := c.sessions.FindForUser(user.Username)
	if session == nil {
		return model.ErrNotInGame
	}

	session.Leave(user.Username)
	c.finishDeparture(session)
	return nil
}

// HandleDisconnect records a dropped connection. On a pending session
// this feeds the same departure logic as an explicit leave; on a started
// one the seat is only flagged disconnected so the player can reconnect
// and be handed off again.
func (c *Controller) HandleDisconnect(ctx context.Context, user *model.UserDetails) {
	session := c.sessions.FindForUser(user.Username)
	if session == nil {
		return
	}

	session.Disconnect(user.Username)
	c.logger.Info("user disconnected from session",
		slog.String("session", string(session.ID())),
		slog.String("user", string(user.Username)))
	c.finishDeparture(session)
}

// finishDeparture removes an emptied pending session or pushes the new
// state, then broadcasts the list once either way. Started sessions are
// never removed here: their node reports the closure.
func (c *Controller) finishDeparture(session *model.Session) {
	if !session.Started() && session.IsEmpty() {
		c.sessions.Remove(session.ID())
	} else {
		c.broadcaster.SendGameState(session)
	}
	c.broadcaster.BroadcastGameList()
}

// Chat appends a line to the session chat of whatever session the user
// is in and pushes the updated state to participants
func (c *Controller) Chat(ctx context.Context, user *model.UserDetails, text string) error {
	session := c.sessions.FindForUser(user.Username)
	if session == nil {
		return model.ErrNotInGame
	}

	session.AddChat(user.Summary(), text, c.clock.Now())
	c.broadcaster.SendGameState(session)
	return nil
}

// SelectDeck resolves and validates a deck through the deck service, then
// attaches it to the user's seat. The lookup happens before any session
// mutation so a failed lookup leaves the seat untouched.
func (c *Controller) SelectDeck(ctx context.Context, user *model.UserDetails, id model.SessionID, deckID model.DeckID) error {
	session, err := c.sessions.Get(id)
	if err != nil {
		return err
	}

	selected, err := c.decks.SelectForGame(ctx, user.Username, deckID)
	if err != nil {
		return err
	}

	if err := session.SelectDeck(user.Username, selected); err != nil {
		return err
	}

	c.broadcaster.SendGameState(session)
	return nil
}

// Start transitions a session to started: validates readiness, obtains a
// node assignment from the pool manager, commits the transition and hands
// every participant off to the node. Assignment runs outside all session
// locks; a failed assignment returns the session to pending for retry.
func (c *Controller) Start(ctx context.Context, user *model.UserDetails, id model.SessionID) error {
	session, err := c.sessions.Get(id)
	if err != nil {
		return err
	}

	if err := session.BeginStart(user.Username); err != nil {
		// A repeat start on a running game is a no-op, not an error
		if errors.Is(err, model.ErrGameStarted) && session.Started() {
			return nil
		}
		return err
	}

	node, err := c.router.Assign(ctx, session)
	if err != nil {
		session.AbortStart()
		c.logger.Warn("node assignment failed",
			slog.String("session", string(id)),
			slog.String("error", err.Error()))
		return model.ErrAssignmentFailed
	}

	if !session.CompleteStart(node) {
		// Lost a race with another successful start; nothing to do
		return nil
	}

	c.logger.Info("session started",
		slog.String("session", string(id)),
		slog.String("node", node.Identity))

	c.broadcaster.BroadcastGameList()

	for _, p := range session.Participants() {
		c.sendHandoff(p.ConnectionID, p.User, session)
	}
	return nil
}

func (c *Controller) sendHandoff(connID model.ConnectionID, user model.UserSummary, session *model.Session) {
	node := session.Node()
	if node == nil {
		return
	}
	details, err := c.issuer.Handoff(user, node, session.ID())
	if err != nil {
		c.logger.Error("failed to issue handoff token",
			slog.String("session", string(session.ID())),
			slog.String("user", string(user.Username)),
			slog.String("error", err.Error()))
		return
	}
	c.broadcaster.SendHandoff(connID, details)
}

// ResendHandoff re-issues a handoff for a user reconnecting into their
// started session, clearing the disconnected flag on their seat. Safe to
// call repeatedly; issuance is side-effect-free.
func (c *Controller) ResendHandoff(connID model.ConnectionID, user *model.UserDetails) bool {
	session := c.sessions.FindForUser(user.Username)
	if session == nil || !session.Started() {
		return false
	}
	session.Reconnect(user.Username, connID)
	c.sendHandoff(connID, user.Summary(), session)
	return true
}

// Remove force-closes a session. Requires the manage-games permission.
// Pending sessions are deleted locally; started ones are closed through
// their node and removed when the node reports the closure.
func (c *Controller) Remove(ctx context.Context, user *model.UserDetails, id model.SessionID) error {
	if !user.Permissions.CanManageGames {
		return model.ErrNotPermitted
	}

	session, err := c.sessions.Get(id)
	if err != nil {
		return err
	}

	c.logger.Info("session force-closed",
		slog.String("session", string(id)),
		slog.String("by", string(user.Username)))

	if !session.Started() {
		c.sessions.Remove(id)
		c.broadcaster.BroadcastGameList()
		return nil
	}
	return c.router.CloseGame(session)
}

// ConnectFailed records that a user could not complete their handoff to
// a worker node
func (c *Controller) ConnectFailed(ctx context.Context, user *model.UserDetails) error {
	session := c.sessions.FindForUser(user.Username)
	if session == nil {
		return model.ErrNotInGame
	}

	c.logger.Info("handoff connect failed",
		slog.String("session", string(session.ID())),
		slog.String("user", string(user.Username)))
	return c.router.NotifyFailedConnect(session, user.Username)
}

// SweepStale removes pending sessions older than the staleness timeout.
// Broadcasts at most once per sweep, and only when something was removed.
func (c *Controller) SweepStale() int {
	removed := 0
	for _, session := range c.sessions.All() {
		if session.Started() {
			continue
		}
		if c.clock.Since(session.CreatedAt()) > c.cfg.StaleTimeout {
			c.sessions.Remove(session.ID())
			c.logger.Info("closed stale pending session",
				slog.String("session", string(session.ID())))
			removed++
		}
	}
	if removed > 0 {
		c.broadcaster.BroadcastGameList()
	}
	return removed
}

// RunSweeper runs the staleness sweep on a fixed tick until the context
// is cancelled
func (c *Controller) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.SweepStale()
		case <-ctx.Done():
			return
		}
	}
}
