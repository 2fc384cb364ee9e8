package memory

import (
	"context"
	"sync"

	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users    map[model.Username]*model.UserDetails
	decks    map[model.DeckID]*model.Deck
	messages []*model.LobbyMessage
	catalog  *model.CardCatalog
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users: make(map[model.Username]*model.UserDetails),
		decks: make(map[model.DeckID]*model.Deck),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.UserDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *Storage) GetUser(ctx context.Context, username model.Username) (*model.UserDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

// Deck operations

func (s *Storage) SaveDeck(ctx context.Context, deck *model.Deck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decks[deck.ID] = deck
	return nil
}

func (s *Storage) GetDeck(ctx context.Context, id model.DeckID) (*model.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deck, ok := s.decks[id]
	if !ok {
		return nil, model.ErrDeckNotFound
	}
	return deck, nil
}

func (s *Storage) GetDecksForUser(ctx context.Context, username model.Username) ([]*model.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var decks []*model.Deck
	for _, deck := range s.decks {
		if deck.Owner == username {
			decks = append(decks, deck)
		}
	}
	return decks, nil
}

// Lobby message operations

func (s *Storage) AddMessage(ctx context.Context, msg *model.LobbyMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *Storage) GetRecentMessages(ctx context.Context, limit int) ([]*model.LobbyMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.messages) - limit
	if start < 0 {
		start = 0
	}
	recent := make([]*model.LobbyMessage, len(s.messages)-start)
	copy(recent, s.messages[start:])
	return recent, nil
}

// Card catalog operations

func (s *Storage) SaveCatalog(ctx context.Context, catalog *model.CardCatalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog
	return nil
}

func (s *Storage) GetCatalog(ctx context.Context) (*model.CardCatalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.catalog == nil {
		return nil, model.ErrCatalogNotFound
	}
	return s.catalog, nil
}
