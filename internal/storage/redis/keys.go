package redis

import (
	"fmt"

	"github.com/jwren/castellan/internal/model"
)

// Key prefix for all orchestrator data
const keyPrefix = "castellan"

// userKey returns the Redis key for a user profile
func userKey(username model.Username) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, username)
}

// deckKey returns the Redis key for a deck
func deckKey(id model.DeckID) string {
	return fmt.Sprintf("%s:deck:%s", keyPrefix, id)
}

// decksForUserIndexKey returns the Redis key for the SET of a user's decks
func decksForUserIndexKey(username model.Username) string {
	return fmt.Sprintf("%s:idx:decks_for_user:%s", keyPrefix, username)
}

// messagesKey returns the Redis key for the lobby chat log LIST
func messagesKey() string {
	return fmt.Sprintf("%s:messages", keyPrefix)
}

// catalogKey returns the Redis key for the card catalog snapshot
func catalogKey() string {
	return fmt.Sprintf("%s:catalog", keyPrefix)
}
