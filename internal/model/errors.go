package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrNotPermitted  = errors.New("user lacks permission for this action")
	ErrNotAuthorized = errors.New("connection is not authenticated")

	// Session errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidPassword    = errors.New("incorrect password")
	ErrAlreadyInGame      = errors.New("user already occupies a slot in a game")
	ErrNotInGame          = errors.New("user is not in this game")
	ErrGameFull           = errors.New("game is full")
	ErrGameStarted        = errors.New("game has already started")
	ErrSpectatingDisabled = errors.New("spectators are not allowed in this game")
	ErrNotOwner           = errors.New("user is not the game owner")
	ErrNotAllPlayersReady = errors.New("not all players have selected a deck")

	// Node errors
	ErrAssignmentFailed = errors.New("no worker node available for assignment")
	ErrNodeNotFound     = errors.New("worker node not found")

	// Deck errors
	ErrDeckNotFound = errors.New("deck not found")

	// Catalog errors
	ErrCatalogNotFound = errors.New("card catalog not loaded")
)
