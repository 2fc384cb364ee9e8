package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/jwren/castellan/internal/model"
)

// Sender is the transport side of a live connection: framed typed sends
// plus teardown. The websocket layer provides the real implementation.
type Sender interface {
	Send(msgType string, payload any)
	Close()
}

// Connection is one live transport connection. It may exist without a
// user while the handshake is pending.
type Connection struct {
	ID     model.ConnectionID
	Sender Sender

	mu   sync.RWMutex
	user *model.UserDetails
}

// NewConnection creates an unauthenticated connection record
func NewConnection(id model.ConnectionID, sender Sender) *Connection {
	return &Connection{ID: id, Sender: sender}
}

// User returns the authenticated user, or nil while unauthenticated
func (c *Connection) User() *model.UserDetails {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// SetUser attaches an authenticated user to the connection
func (c *Connection) SetUser(user *model.UserDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
}

// Send forwards a typed message to the connection's transport
func (c *Connection) Send(msgType string, payload any) {
	c.Sender.Send(msgType, payload)
}

// ConnectionRegistry maps live connections to authenticated identities
// and tracks which users are currently reachable
type ConnectionRegistry struct {
	mu          sync.RWMutex
	connections map[model.ConnectionID]*Connection
	users       map[model.Username]*model.UserDetails
	userConns   map[model.Username]model.ConnectionID
}

// NewConnectionRegistry creates an empty connection registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		connections: make(map[model.ConnectionID]*Connection),
		users:       make(map[model.Username]*model.UserDetails),
		userConns:   make(map[model.Username]model.ConnectionID),
	}
}

// Add registers a new connection. If the connection already carries a
// user (handshake auth), presence is recorded as well.
func (r *ConnectionRegistry) Add(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ID] = conn
	if user := conn.User(); user != nil {
		r.users[user.Username] = user
		r.userConns[user.Username] = conn.ID
	}
}

// Get returns the connection with the given id, or nil
func (r *ConnectionRegistry) Get(id model.ConnectionID) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connections[id]
}

// Remove drops a connection and, if it was authenticated, the user's
// presence entry. Returns the user that went offline, or nil when the
// connection was anonymous or a duplicate login took the username over.
func (r *ConnectionRegistry) Remove(id model.ConnectionID) *model.UserDetails {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[id]
	if !ok {
		return nil
	}
	delete(r.connections, id)

	user := conn.User()
	if user == nil {
		return nil
	}
	// A superseded connection no longer owns presence; closing it must
	// not count as the user going offline
	if r.userConns[user.Username] != id {
		return nil
	}
	delete(r.users, user.Username)
	delete(r.userConns, user.Username)
	return user
}

// Authenticate attaches a user to a connection and records presence.
// If the user was already online on a different connection, that previous
// connection is returned so the caller can disconnect it.
func (r *ConnectionRegistry) Authenticate(id model.ConnectionID, user *model.UserDetails) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}

	var previous *Connection
	if prevID, online := r.userConns[user.Username]; online && prevID != id {
		previous = r.connections[prevID]
	}

	conn.SetUser(user)
	r.users[user.Username] = user
	r.userConns[user.Username] = id
	return previous, nil
}

// ConnectionForUser returns the connection a user is online through, or nil
func (r *ConnectionRegistry) ConnectionForUser(username model.Username) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.userConns[username]
	if !ok {
		return nil
	}
	return r.connections[id]
}

// OnlineUser returns the present user with the given name
func (r *ConnectionRegistry) OnlineUser(username model.Username) (*model.UserDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

// All returns a snapshot of every live connection
func (r *ConnectionRegistry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Connection, 0, len(r.connections))
	for _, c := range r.connections {
		all = append(all, c)
	}
	return all
}

// UserList returns the wire-safe summaries of every online user, sorted
// by username for stable presentation
func (r *ConnectionRegistry) UserList() []model.UserSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]model.UserSummary, 0, len(r.users))
	for _, u := range r.users {
		list = append(list, u.Summary())
	}
	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(string(list[i].Username)) < strings.ToLower(string(list[j].Username))
	})
	return list
}

// Counts returns the number of live connections and online users
func (r *ConnectionRegistry) Counts() (connections, users int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections), len(r.users)
}
