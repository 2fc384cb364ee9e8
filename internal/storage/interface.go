package storage

import (
	"context"

	"github.com/jwren/castellan/internal/model"
)

// Storage defines the interface for persisted platform data consumed by
// the orchestrator: user profiles, decks, the lobby chat log, and the card
// catalog. Live session state never goes through here; the session
// registry is the in-memory authority.
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.UserDetails) error
	GetUser(ctx context.Context, username model.Username) (*model.UserDetails, error)

	// Deck operations
	SaveDeck(ctx context.Context, deck *model.Deck) error
	GetDeck(ctx context.Context, id model.DeckID) (*model.Deck, error)
	GetDecksForUser(ctx context.Context, username model.Username) ([]*model.Deck, error)

	// Lobby message operations
	AddMessage(ctx context.Context, msg *model.LobbyMessage) error
	GetRecentMessages(ctx context.Context, limit int) ([]*model.LobbyMessage, error)

	// Card catalog operations
	SaveCatalog(ctx context.Context, catalog *model.CardCatalog) error
	GetCatalog(ctx context.Context) (*model.CardCatalog, error)
}
