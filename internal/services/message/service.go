package message

import (
	"context"

	"github.com/jwren/castellan/internal/dependencies/clock"
	"github.com/jwren/castellan/internal/dependencies/random"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/storage"
)

// ReplayCount is how many recent lobby messages a connecting client gets
const ReplayCount = 50

// messageIDLength is the length of generated message ids
const messageIDLength = 12

// Service persists and replays the lobby chat log
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
}

// New creates a message Service
func New(storage storage.Storage, clock clock.Clock, random random.Random) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
	}
}

// Add persists one lobby chat line and returns it with id and timestamp
// assigned
func (s *Service) Add(ctx context.Context, user model.UserSummary, text string) (*model.LobbyMessage, error) {
	msg := &model.LobbyMessage{
		ID:      s.random.String(messageIDLength, random.IDAlphabet),
		User:    user,
		Message: text,
		Time:    s.clock.Now(),
	}
	if err := s.storage.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Recent returns the replay window of the lobby chat log
func (s *Service) Recent(ctx context.Context) ([]*model.LobbyMessage, error) {
	return s.storage.GetRecentMessages(ctx, ReplayCount)
}

// FilterForViewer drops messages from senders the viewer has blocked.
// Pure function: computed fresh per send since block lists change.
func FilterForViewer(messages []*model.LobbyMessage, viewer *model.UserDetails) []*model.LobbyMessage {
	if viewer == nil {
		return messages
	}
	filtered := make([]*model.LobbyMessage, 0, len(messages))
	for _, msg := range messages {
		if viewer.HasBlocked(msg.User.Username) {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}
