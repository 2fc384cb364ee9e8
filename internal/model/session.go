package model

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SessionID identifies a game session for its whole lifetime
type SessionID string

// DefaultMaxPlayers is the seat count for a standard two-player game
const DefaultMaxPlayers = 2

// SessionConfig holds creation-time settings for a session
type SessionConfig struct {
	Name            string `json:"name"`
	Password        string `json:"password,omitempty"`
	AllowSpectators bool   `json:"allowSpectators"`
	MaxPlayers      int    `json:"maxPlayers,omitempty"`
}

// Player is one seat in a session. A player who leaves keeps the seat with
// Left set, so seat identity survives until the session itself empties.
type Player struct {
	ConnectionID ConnectionID `json:"id"`
	User         UserSummary  `json:"user"`
	Owner        bool         `json:"owner"`
	Faction      string       `json:"faction,omitempty"`
	Agenda       string       `json:"agenda,omitempty"`
	Deck         *Deck        `json:"-"`
	Left         bool         `json:"left"`
	Disconnected bool         `json:"disconnected"`
}

// Spectator is a watching user; spectators are removed outright on leave
type Spectator struct {
	ConnectionID ConnectionID `json:"id"`
	User         UserSummary  `json:"user"`
}

// ChatMessage is one line of a session's transient chat log
type ChatMessage struct {
	User    UserSummary `json:"user"`
	Message string      `json:"message"`
	Time    time.Time   `json:"time"`
}

// Session is one game instance, pending until a worker node accepts it and
// active thereafter. All mutation goes through methods that serialize
// against other operations on the same session.
type Session struct {
	mu sync.Mutex

	id              SessionID
	name            string
	owner           Username
	ownerBlockList  []string
	passwordHash    string
	allowSpectators bool
	maxPlayers      int
	createdAt       time.Time

	starting bool
	started  bool
	node     *GameNode

	players    map[Username]*Player
	spectators map[Username]*Spectator
	chat       []ChatMessage
}

// NewSession creates a pending session with the owner seated as first
// player. A non-empty password is hashed before storage.
func NewSession(id SessionID, owner *UserDetails, connID ConnectionID, cfg SessionConfig, now time.Time) (*Session, error) {
	maxPlayers := cfg.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}

	var passwordHash string
	if cfg.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		passwordHash = string(hash)
	}

	s := &Session{
		id:              id,
		name:            cfg.Name,
		owner:           owner.Username,
		ownerBlockList:  owner.BlockList,
		passwordHash:    passwordHash,
		allowSpectators: cfg.AllowSpectators,
		maxPlayers:      maxPlayers,
		createdAt:       now,
		players:         make(map[Username]*Player),
		spectators:      make(map[Username]*Spectator),
	}

	s.players[owner.Username] = &Player{
		ConnectionID: connID,
		User:         owner.Summary(),
		Owner:        true,
	}

	return s, nil
}

// RestoreSession rebuilds a started session from a node's self-report.
// The caller is responsible for having verified the owner is among the
// reported players.
func RestoreSession(report NodeSessionReport, node *GameNode) *Session {
	s := &Session{
		id:              report.ID,
		name:            report.Name,
		owner:           report.Owner,
		passwordHash:    report.PasswordHash,
		allowSpectators: report.AllowSpectators,
		maxPlayers:      DefaultMaxPlayers,
		createdAt:       report.StartedAt,
		started:         true,
		node:            node,
		players:         make(map[Username]*Player),
		spectators:      make(map[Username]*Spectator),
	}

	if len(report.Players) > s.maxPlayers {
		s.maxPlayers = len(report.Players)
	}

	for _, p := range report.Players {
		s.players[p.Name] = &Player{
			ConnectionID: p.ConnectionID,
			User:         UserSummary{Username: p.Name, EmailHash: p.EmailHash},
			Owner:        p.Name == report.Owner,
			Faction:      p.Faction,
			Agenda:       p.Agenda,
		}
	}

	for _, sp := range report.Spectators {
		s.spectators[sp.Name] = &Spectator{
			ConnectionID: sp.ConnectionID,
			User:         UserSummary{Username: sp.Name, EmailHash: sp.EmailHash},
		}
	}

	return s
}

// ID returns the session's stable identifier
func (s *Session) ID() SessionID {
	return s.id
}

// Name returns the session's display name
func (s *Session) Name() string {
	return s.name
}

// Owner returns the owning username
func (s *Session) Owner() Username {
	return s.owner
}

// CreatedAt returns the creation timestamp, used for staleness eviction
// and list ordering
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Started reports whether a worker node has accepted the session
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Node returns the assigned worker node, or nil while pending
func (s *Session) Node() *GameNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.node
}

// IsOwner reports whether the given user owns this session
func (s *Session) IsOwner(username Username) bool {
	return s.owner == username
}

func (s *Session) checkPassword(password string) error {
	if s.passwordHash == "" {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)) != nil {
		return ErrInvalidPassword
	}
	return nil
}

func (s *Session) activePlayerCount() int {
	count := 0
	for _, p := range s.players {
		if !p.Left {
			count++
		}
	}
	return count
}

// Join seats a user as a player. A user returning to a seat they left
// reclaims it; a fresh join past capacity fails with ErrGameFull.
func (s *Session) Join(connID ConnectionID, user UserSummary, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrGameStarted
	}
	if err := s.checkPassword(password); err != nil {
		return err
	}

	if existing, ok := s.players[user.Username]; ok {
		if !existing.Left {
			return ErrAlreadyInGame
		}
		// The seat may have been taken while this player was away
		if s.activePlayerCount() >= s.maxPlayers {
			return ErrGameFull
		}
		existing.Left = false
		existing.Disconnected = false
		existing.ConnectionID = connID
		return nil
	}
	if _, ok := s.spectators[user.Username]; ok {
		return ErrAlreadyInGame
	}

	if s.activePlayerCount() >= s.maxPlayers {
		return ErrGameFull
	}

	s.players[user.Username] = &Player{
		ConnectionID: connID,
		User:         user,
	}
	return nil
}

// Watch adds a user to the spectator roster
func (s *Session) Watch(connID ConnectionID, user UserSummary, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allowSpectators {
		return ErrSpectatingDisabled
	}
	if err := s.checkPassword(password); err != nil {
		return err
	}

	if p, ok := s.players[user.Username]; ok && !p.Left {
		return ErrAlreadyInGame
	}
	if _, ok := s.spectators[user.Username]; ok {
		return ErrAlreadyInGame
	}

	s.spectators[user.Username] = &Spectator{
		ConnectionID: connID,
		User:         user,
	}
	return nil
}

// Leave marks a player's seat as left, or removes a spectator outright.
// Returns false if the user holds no slot here.
func (s *Session) Leave(username Username) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveLocked(username, false)
}

// Disconnect applies the leave transition for an implicit departure,
// additionally flagging the seat as disconnected
func (s *Session) Disconnect(username Username) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveLocked(username, true)
}

func (s *Session) leaveLocked(username Username, disconnected bool) bool {
	if p, ok := s.players[username]; ok && !p.Left {
		// A lobby drop on a running game is not a departure: the seat
		// stays live so the player can reconnect and be handed off again
		if disconnected && s.started {
			p.Disconnected = true
			return true
		}
		p.Left = true
		p.Disconnected = disconnected
		return true
	}
	if _, ok := s.spectators[username]; ok {
		delete(s.spectators, username)
		return true
	}
	return false
}

// Reconnect clears the disconnected flag on a player's live seat and
// records the connection they came back through. Returns false if the
// user holds no live seat.
func (s *Session) Reconnect(username Username, connID ConnectionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[username]
	if !ok || p.Left {
		return false
	}
	p.Disconnected = false
	p.ConnectionID = connID
	return true
}

// SelectDeck attaches an externally validated deck to a player's seat
func (s *Session) SelectDeck(username Username, deck *Deck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[username]
	if !ok || p.Left {
		return ErrNotInGame
	}

	p.Deck = deck
	p.Faction = deck.Faction
	p.Agenda = deck.Agenda
	return nil
}

// AddChat appends a line to the session's transient chat log
func (s *Session) AddChat(user UserSummary, message string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, ChatMessage{User: user, Message: message, Time: now})
}

// BeginStart validates a start request and moves the session into the
// starting state. Only the owner may start, every seated player must have
// selected a deck, and at most one start attempt can be in flight: a
// concurrent or repeated request fails with ErrGameStarted so node
// assignment happens at most once.
func (s *Session) BeginStart(username Username) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.starting {
		return ErrGameStarted
	}
	if s.owner != username {
		return ErrNotOwner
	}
	for _, p := range s.players {
		if p.Left {
			continue
		}
		if p.Deck == nil {
			return ErrNotAllPlayersReady
		}
	}
	s.starting = true
	return nil
}

// AbortStart returns a session to its pending state after a failed node
// assignment, leaving it open for a retry
func (s *Session) AbortStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
}

// CompleteStart transitions the session to started with the assigned
// node. The transition happens at most once; the node is never
// reassigned.
func (s *Session) CompleteStart(node *GameNode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return false
	}
	s.starting = false
	s.started = true
	s.node = node
	return true
}

// IsEmpty reports whether every player has left and no spectators remain
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.players {
		if !p.Left {
			return false
		}
	}
	return len(s.spectators) == 0
}

// HasActiveUser reports whether the user holds a non-left player slot or a
// spectator slot in this session
func (s *Session) HasActiveUser(username Username) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[username]; ok && !p.Left {
		return true
	}
	_, ok := s.spectators[username]
	return ok
}

// Participant pairs a seated user with the connection they joined through
type Participant struct {
	ConnectionID ConnectionID
	User         UserSummary
}

// Participants returns every seated (non-left) player and spectator with
// their connection ids, for targeted sends
func (s *Session) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]Participant, 0, len(s.players)+len(s.spectators))
	for _, p := range s.players {
		if !p.Left {
			parts = append(parts, Participant{ConnectionID: p.ConnectionID, User: p.User})
		}
	}
	for _, sp := range s.spectators {
		parts = append(parts, Participant{ConnectionID: sp.ConnectionID, User: sp.User})
	}
	return parts
}

// OwnerHasBlocked reports whether the session owner's block list contains
// the given user
func (s *Session) OwnerHasBlocked(username Username) bool {
	needle := strings.ToLower(string(username))
	for _, blocked := range s.ownerBlockList {
		if strings.ToLower(blocked) == needle {
			return true
		}
	}
	return false
}

// ActivePlayerNames returns the usernames of all non-left players
func (s *Session) ActivePlayerNames() []Username {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]Username, 0, len(s.players))
	for name, p := range s.players {
		if !p.Left {
			names = append(names, name)
		}
	}
	return names
}

// PlayerSummary is the wire form of a seat in session summaries
type PlayerSummary struct {
	User         UserSummary `json:"user"`
	Owner        bool        `json:"owner"`
	Faction      string      `json:"faction,omitempty"`
	Agenda       string      `json:"agenda,omitempty"`
	Left         bool        `json:"left"`
	Disconnected bool        `json:"disconnected"`
	DeckSelected bool        `json:"deckSelected"`
	DeckStatus   *DeckStatus `json:"deckStatus,omitempty"`
}

// SessionSummary is the wire form of a session for list broadcasts and
// game-state pushes
type SessionSummary struct {
	ID              SessionID       `json:"id"`
	Name            string          `json:"name"`
	Owner           Username        `json:"owner"`
	Started         bool            `json:"started"`
	Node            string          `json:"node,omitempty"`
	NeedsPassword   bool            `json:"needsPassword"`
	AllowSpectators bool            `json:"allowSpectators"`
	CreatedAt       time.Time       `json:"createdAt"`
	Players         []PlayerSummary `json:"players"`
	Spectators      []UserSummary   `json:"spectators"`
	Messages        []ChatMessage   `json:"messages,omitempty"`
}

// Summary builds the wire form of this session. Chat messages are included
// only when the viewer holds a slot, matching game-state pushes going to
// participants alone.
func (s *Session) Summary(viewer Username) SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := SessionSummary{
		ID:              s.id,
		Name:            s.name,
		Owner:           s.owner,
		Started:         s.started,
		NeedsPassword:   s.passwordHash != "",
		AllowSpectators: s.allowSpectators,
		CreatedAt:       s.createdAt,
		Players:         make([]PlayerSummary, 0, len(s.players)),
		Spectators:      make([]UserSummary, 0, len(s.spectators)),
	}
	if s.node != nil {
		summary.Node = s.node.Identity
	}

	participant := false
	for name, p := range s.players {
		ps := PlayerSummary{
			User:         p.User,
			Owner:        p.Owner,
			Faction:      p.Faction,
			Agenda:       p.Agenda,
			Left:         p.Left,
			Disconnected: p.Disconnected,
			DeckSelected: p.Deck != nil,
		}
		if p.Deck != nil {
			status := p.Deck.Status
			ps.DeckStatus = &status
		}
		summary.Players = append(summary.Players, ps)
		if name == viewer && !p.Left {
			participant = true
		}
	}
	for name, sp := range s.spectators {
		summary.Spectators = append(summary.Spectators, sp.User)
		if name == viewer {
			participant = true
		}
	}

	if participant {
		summary.Messages = append([]ChatMessage(nil), s.chat...)
	}

	return summary
}
