package ws

import (
	"encoding/json"

	"github.com/jwren/castellan/internal/model"
)

// envelope frames every message in both directions
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound message types
const (
	msgAuthenticate  = "authenticate"
	msgNewGame       = "newgame"
	msgJoinGame      = "joingame"
	msgWatchGame     = "watchgame"
	msgLeaveGame     = "leavegame"
	msgStartGame     = "startgame"
	msgGameChat      = "gamechat"
	msgSelectDeck    = "selectdeck"
	msgLobbyChat     = "lobbychat"
	msgConnectFailed = "connectfailed"
	msgRemoveGame    = "removegame"
)

// Outbound message types
const (
	msgAuthenticated = "authenticated"
	msgGames         = "games"
	msgGameState     = "gamestate"
	msgUsers         = "users"
	msgHandoff       = "handoff"
	msgLobbyMessage  = "lobbymessage"
	msgLobbyHistory  = "lobbyhistory"
	msgBanner        = "banner"
	msgError         = "error"
)

type authenticateRequest struct {
	Token   string `json:"token"`
	Version string `json:"version,omitempty"`
}

type newGameRequest struct {
	Name            string `json:"name"`
	Password        string `json:"password,omitempty"`
	AllowSpectators bool   `json:"allowSpectators"`
	MaxPlayers      int    `json:"maxPlayers,omitempty"`
}

type gameRequest struct {
	GameID   model.SessionID `json:"gameId"`
	Password string          `json:"password,omitempty"`
}

type selectDeckRequest struct {
	GameID model.SessionID `json:"gameId"`
	DeckID model.DeckID    `json:"deckId"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type bannerResponse struct {
	Message string `json:"message"`
}
