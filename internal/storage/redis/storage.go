package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.UserDetails) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, userKey(user.Username), data, 0).Err()
}

func (s *Storage) GetUser(ctx context.Context, username model.Username) (*model.UserDetails, error) {
	data, err := s.client.Get(ctx, userKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.UserDetails
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Deck operations

func (s *Storage) SaveDeck(ctx context.Context, deck *model.Deck) error {
	data, err := json.Marshal(deck)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, deckKey(deck.ID), data, s.cfg.DeckTTL)
	pipe.SAdd(ctx, decksForUserIndexKey(deck.Owner), string(deck.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetDeck(ctx context.Context, id model.DeckID) (*model.Deck, error) {
	data, err := s.client.Get(ctx, deckKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrDeckNotFound
		}
		return nil, err
	}

	var deck model.Deck
	if err := json.Unmarshal(data, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

func (s *Storage) GetDecksForUser(ctx context.Context, username model.Username) ([]*model.Deck, error) {
	ids, err := s.client.SMembers(ctx, decksForUserIndexKey(username)).Result()
	if err != nil {
		return nil, err
	}

	var decks []*model.Deck
	for _, id := range ids {
		deck, err := s.GetDeck(ctx, model.DeckID(id))
		if errors.Is(err, model.ErrDeckNotFound) {
			// Index entry outlived an expired deck; skip it
			continue
		}
		if err != nil {
			return nil, err
		}
		decks = append(decks, deck)
	}
	return decks, nil
}

// Lobby message operations

func (s *Storage) AddMessage(ctx context.Context, msg *model.LobbyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, messagesKey(), data)
	if s.cfg.MessageLogLength > 0 {
		pipe.LTrim(ctx, messagesKey(), int64(-s.cfg.MessageLogLength), -1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRecentMessages(ctx context.Context, limit int) ([]*model.LobbyMessage, error) {
	entries, err := s.client.LRange(ctx, messagesKey(), int64(-limit), -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]*model.LobbyMessage, 0, len(entries))
	for _, entry := range entries {
		var msg model.LobbyMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// Card catalog operations

func (s *Storage) SaveCatalog(ctx context.Context, catalog *model.CardCatalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, catalogKey(), data, 0).Err()
}

func (s *Storage) GetCatalog(ctx context.Context) (*model.CardCatalog, error) {
	data, err := s.client.Get(ctx, catalogKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrCatalogNotFound
		}
		return nil, err
	}

	var catalog model.CardCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}
