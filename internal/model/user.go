package model

import "strings"

// Username identifies a registered user account
type Username string

// ConnectionID identifies a live transport connection
type ConnectionID string

// Permissions holds elevated-permission flags on a user account
type Permissions struct {
	CanManageGames bool `json:"canManageGames"`
	CanManageNodes bool `json:"canManageNodes"`
}

// UserDetails is the full profile of an authenticated user, including
// fields that must never be sent to other clients
type UserDetails struct {
	Username     Username    `json:"username"`
	EmailHash    string      `json:"emailHash"`
	PasswordHash string      `json:"-"`
	Permissions  Permissions `json:"permissions"`
	BlockList    []string    `json:"blockList"`
}

// HasBlocked reports whether this user has blocked the given username.
// Matching is case-insensitive on both sides.
func (u *UserDetails) HasBlocked(username Username) bool {
	needle := strings.ToLower(string(username))
	for _, blocked := range u.BlockList {
		if strings.ToLower(blocked) == needle {
			return true
		}
	}
	return false
}

// Summary returns the wire-safe short form used in user lists and chat
func (u *UserDetails) Summary() UserSummary {
	return UserSummary{
		Username:  u.Username,
		EmailHash: u.EmailHash,
	}
}

// UserSummary is the wire-safe short form of a user, safe to broadcast
type UserSummary struct {
	Username  Username `json:"username"`
	EmailHash string   `json:"emailHash"`
}
