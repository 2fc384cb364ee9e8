package model

import "time"

// LobbyMessage is one persisted line of lobby chat
type LobbyMessage struct {
	ID      string      `json:"id"`
	User    UserSummary `json:"user"`
	Message string      `json:"message"`
	Time    time.Time   `json:"time"`
}
