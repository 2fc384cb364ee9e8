// Package response holds the admin API's wire types and JSON writers.
package response

import (
	"github.com/jwren/castellan/internal/model"
)

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}

// Status is the orchestrator status snapshot
type Status struct {
	Connections  int `json:"connections"`
	OnlineUsers  int `json:"onlineUsers"`
	Sessions     int `json:"sessions"`
	PendingGames int `json:"pendingGames"`
	StartedGames int `json:"startedGames"`
}

// NodeList wraps the pool manager's node health records
type NodeList struct {
	Nodes []model.NodeStatus `json:"nodes"`
}

// AuthResponse is returned by the account endpoints
type AuthResponse struct {
	User  model.UserSummary `json:"user"`
	Token string            `json:"token"`
}

// GameDump is the debug view of one live session. Unlike the lobby's
// filtered summaries it includes node assignment and left seats.
type GameDump struct {
	Session model.SessionSummary `json:"session"`
	Node    *model.GameNode      `json:"node,omitempty"`
}

// GameDumpList wraps the full session registry dump
type GameDumpList struct {
	Games []GameDump `json:"games"`
}

// GameDumpFromSession builds the debug view of a session
func GameDumpFromSession(session *model.Session) GameDump {
	return GameDump{
		Session: session.Summary(session.Owner()),
		Node:    session.Node(),
	}
}
