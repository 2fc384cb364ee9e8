package ws

import (
	"log/slog"

	"github.com/jwren/castellan/internal/broadcast"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/registry"
	"github.com/jwren/castellan/internal/services/handoff"
	"github.com/jwren/castellan/internal/services/matchmaking"
)

// Broadcaster fans lobby state out to connected sockets. Game and user
// lists are recomputed per viewer so block-list filtering is never
// shared between connections. Implements the push interfaces consumed
// by the matchmaking controller and the node reconciler.
type Broadcaster struct {
	connections *registry.ConnectionRegistry
	sessions    *registry.SessionRegistry
	throttle    *broadcast.Throttle
	logger      *slog.Logger
}

var _ matchmaking.Broadcaster = (*Broadcaster)(nil)

// NewBroadcaster creates a Broadcaster
func NewBroadcaster(
	connections *registry.ConnectionRegistry,
	sessions *registry.SessionRegistry,
	throttle *broadcast.Throttle,
	logger *slog.Logger,
) *Broadcaster {
	return &Broadcaster{
		connections: connections,
		sessions:    sessions,
		throttle:    throttle,
		logger:      logger,
	}
}

// BroadcastGameList pushes each connection its filtered view of the
// session registry. Unthrottled: list changes are rare relative to user
// churn and clients depend on seeing them promptly.
func (b *Broadcaster) BroadcastGameList() {
	sessions := b.sessions.All()
	for _, conn := range b.connections.All() {
		conn.Send(msgGames, matchmaking.GameListForViewer(sessions, conn.User()))
	}
}

// SendGameList pushes the current filtered game list to one connection
func (b *Broadcaster) SendGameList(conn *registry.Connection) {
	conn.Send(msgGames, matchmaking.GameListForViewer(b.sessions.All(), conn.User()))
}

// BroadcastUserList pushes each connection its filtered view of who is
// online, gated to once per throttle interval
func (b *Broadcaster) BroadcastUserList() {
	if !b.throttle.Allow() {
		return
	}
	users := b.connections.UserList()
	for _, conn := range b.connections.All() {
		conn.Send(msgUsers, matchmaking.UserListForViewer(users, conn.User()))
	}
}

// SendUserList pushes the online-user list to one connection, bypassing
// the throttle. Used on connect and on successful authentication.
func (b *Broadcaster) SendUserList(conn *registry.Connection) {
	conn.Send(msgUsers, matchmaking.UserListForViewer(b.connections.UserList(), conn.User()))
}

// SendGameState pushes a session snapshot to each of its participants.
// Snapshots are per-viewer: chat visibility depends on membership.
func (b *Broadcaster) SendGameState(session *model.Session) {
	for _, p := range session.Participants() {
		conn := b.connections.Get(p.ConnectionID)
		if conn == nil {
			continue
		}
		conn.Send(msgGameState, session.Summary(p.User.Username))
	}
}

// SendHandoff delivers a node handoff to one connection
func (b *Broadcaster) SendHandoff(connID model.ConnectionID, details handoff.Details) {
	conn := b.connections.Get(connID)
	if conn == nil {
		b.logger.Warn("handoff target connection is gone",
			slog.String("connection", string(connID)))
		return
	}
	conn.Send(msgHandoff, details)
}

// BroadcastLobbyMessage pushes one lobby chat line to every connection
// whose viewer has not blocked the sender
func (b *Broadcaster) BroadcastLobbyMessage(msg *model.LobbyMessage) {
	for _, conn := range b.connections.All() {
		if viewer := conn.User(); viewer != nil && viewer.HasBlocked(msg.User.Username) {
			continue
		}
		conn.Send(msgLobbyMessage, msg)
	}
}
