package model

// DeckID identifies a stored deck
type DeckID string

// DeckStatus records the outcome of deck validation. Validation itself is
// delegated to an external validator; only the result is stored here.
type DeckStatus struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Deck is a user's deck selection for a game. Card contents live with the
// deck service; the orchestrator only needs identity and selection codes.
type Deck struct {
	ID      DeckID     `json:"id"`
	Owner   Username   `json:"owner"`
	Name    string     `json:"name"`
	Faction string     `json:"faction"`
	Agenda  string     `json:"agenda,omitempty"`
	Status  DeckStatus `json:"status"`
}
