package deck

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/storage"
)

// Validator checks a deck's legality against catalog data. The rules
// engine owns validation; the orchestrator only stores the verdict.
type Validator interface {
	Validate(deck *model.Deck, catalog *model.CardCatalog) model.DeckStatus
}

// Service resolves deck selections: it loads the deck, joins it against
// the card catalog and records the validation verdict on the deck.
type Service struct {
	storage   storage.Storage
	validator Validator
	logger    *slog.Logger
}

// New creates a deck Service
func New(storage storage.Storage, validator Validator, logger *slog.Logger) *Service {
	return &Service{
		storage:   storage,
		validator: validator,
		logger:    logger,
	}
}

// SelectForGame loads a user's deck and attaches its validation status.
// Decks belonging to other users are reported as not found.
func (s *Service) SelectForGame(ctx context.Context, username model.Username, id model.DeckID) (*model.Deck, error) {
	deck, err := s.storage.GetDeck(ctx, id)
	if err != nil {
		return nil, err
	}
	if deck.Owner != username {
		return nil, model.ErrDeckNotFound
	}

	catalog, err := s.storage.GetCatalog(ctx)
	if errors.Is(err, model.ErrCatalogNotFound) {
		// Without a catalog the deck cannot be validated; record that
		// rather than blocking the selection outright.
		s.logger.Warn("deck selected with no catalog loaded", slog.String("deck", string(id)))
		deck.Status = model.DeckStatus{Valid: false, Errors: []string{"card catalog unavailable"}}
		return deck, nil
	}
	if err != nil {
		return nil, err
	}

	deck.Status = s.validator.Validate(deck, catalog)
	return deck, nil
}

// ListForUser returns a user's decks
func (s *Service) ListForUser(ctx context.Context, username model.Username) ([]*model.Deck, error) {
	return s.storage.GetDecksForUser(ctx, username)
}

// Catalog returns the card catalog snapshot pushed to starting worker
// nodes
func (s *Service) Catalog(ctx context.Context) (*model.CardCatalog, error) {
	return s.storage.GetCatalog(ctx)
}
