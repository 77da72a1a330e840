package battle

import "errors"

var (
	ErrBattleNotFound    = errors.New("battle not found")
	ErrInvalidTransition = errors.New("invalid battle status transition")
	ErrSamePlayer        = errors.New("player cannot battle themselves")
	ErrNotParticipant    = errors.New("winner is not a participant")
	ErrAlreadyInBattle   = errors.New("player is already in an ongoing battle")
)
