package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case AuthResult:
		o.printAuthResult(v)
	case StatusResult:
		o.printStatusResult(v)
	case NodeListResult:
		o.printNodeList(v)
	case GameListResult:
		o.printGameList(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	Username  string `json:"username"`
	EmailHash string `json:"emailHash"`
}

// AuthResult combines user and token
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// StatusResult is the orchestrator status snapshot
type StatusResult struct {
	Connections  int `json:"connections"`
	OnlineUsers  int `json:"onlineUsers"`
	Sessions     int `json:"sessions"`
	PendingGames int `json:"pendingGames"`
	StartedGames int `json:"startedGames"`
}

// NodeStatus response type
type NodeStatus struct {
	Name     string `json:"name"`
	NumGames int    `json:"numGames"`
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	MaxGames int    `json:"maxGames,omitempty"`
	Disabled bool   `json:"disabled"`
}

// NodeListResult response type
type NodeListResult struct {
	Nodes []NodeStatus `json:"nodes"`
}

// GamePlayer is one seat in a game dump
type GamePlayer struct {
	User         User `json:"user"`
	Owner        bool `json:"owner"`
	Left         bool `json:"left"`
	Disconnected bool `json:"disconnected"`
	DeckSelected bool `json:"deckSelected"`
}

// GameSummary is one session in a game dump
type GameSummary struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Owner      string       `json:"owner"`
	Started    bool         `json:"started"`
	Node       string       `json:"node,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	Players    []GamePlayer `json:"players"`
	Spectators []User       `json:"spectators"`
}

// GameDump is the debug view of one session
type GameDump struct {
	Session GameSummary `json:"session"`
}

// GameListResult response type
type GameListResult struct {
	Games []GameDump `json:"games"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printAuthResult(a AuthResult) {
	fmt.Printf("User: %s\n", a.User.Username)
	fmt.Printf("Token: %s\n", a.Token)
}

func (o *Output) printStatusResult(s StatusResult) {
	fmt.Printf("Connections: %d\n", s.Connections)
	fmt.Printf("Online Users: %d\n", s.OnlineUsers)
	fmt.Printf("Games: %d (%d pending, %d started)\n", s.Sessions, s.PendingGames, s.StartedGames)
}

func (o *Output) printNodeList(l NodeListResult) {
	fmt.Printf("Nodes (%d):\n", len(l.Nodes))
	for _, n := range l.Nodes {
		state := n.Status
		if n.Disabled {
			state = "disabled"
		}
		capacity := ""
		if n.MaxGames > 0 {
			capacity = fmt.Sprintf("/%d", n.MaxGames)
		}
		fmt.Printf("  - %s: %d%s games, %s", n.Name, n.NumGames, capacity, state)
		if n.Version != "" {
			fmt.Printf(" (v%s)", n.Version)
		}
		fmt.Println()
	}
}

func (o *Output) printGameList(l GameListResult) {
	fmt.Printf("Games (%d):\n", len(l.Games))
	for _, g := range l.Games {
		state := "pending"
		if g.Session.Started {
			state = "started"
			if g.Session.Node != "" {
				state = "started on " + g.Session.Node
			}
		}
		fmt.Printf("  %s  %q by %s - %s\n", g.Session.ID, g.Session.Name, g.Session.Owner, state)
		for _, p := range g.Session.Players {
			flags := ""
			if p.Owner {
				flags += " [owner]"
			}
			if p.Left {
				flags += " [left]"
			}
			if p.Disconnected {
				flags += " [disconnected]"
			}
			fmt.Printf("    - %s%s\n", p.User.Username, flags)
		}
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
