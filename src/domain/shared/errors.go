package shared

import "errors"

// Failure classes shared by every battle use-case. Package specific sentinels
// wrap or are wrapped by these so callers can branch with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidDeck      = errors.New("invalid deck")
	ErrIncompleteBattle = errors.New("battle is missing a player")
	ErrMissingStats     = errors.New("player stats missing")
	ErrPersistence      = errors.New("persistence failure")
)
