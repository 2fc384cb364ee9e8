package model

import "time"

// GameNode describes a worker node that executes started games.
// The pool manager owns node lifecycle; the orchestrator only records the
// assignment so clients can be handed off.
type GameNode struct {
	Identity string `json:"identity"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

// NodeStatus is a health record for one worker node, as reported by the
// pool manager
type NodeStatus struct {
	Name     string `json:"name"`
	NumGames int    `json:"numGames"`
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	MaxGames int    `json:"maxGames,omitempty"`
	Disabled bool   `json:"disabled"`
}

// NodePlayerReport is a node's minimal view of one seat in a session it is
// running, used to rebuild player records during reconciliation
type NodePlayerReport struct {
	Name         Username     `json:"name"`
	ConnectionID ConnectionID `json:"id,omitempty"`
	EmailHash    string       `json:"emailHash,omitempty"`
	Faction      string       `json:"faction,omitempty"`
	Agenda       string       `json:"agenda,omitempty"`
}

// NodeSessionReport is a node's self-reported view of one session it still
// considers live, sent when the node reconnects after an outage
type NodeSessionReport struct {
	ID              SessionID          `json:"id"`
	Name            string             `json:"name"`
	Owner           Username           `json:"owner"`
	Started         bool               `json:"started"`
	StartedAt       time.Time          `json:"startedAt"`
	AllowSpectators bool               `json:"allowSpectators"`
	PasswordHash    string             `json:"password,omitempty"`
	Players         []NodePlayerReport `json:"players"`
	Spectators      []NodePlayerReport `json:"spectators"`
}
