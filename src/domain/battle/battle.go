package battle

import (
	"time"

	"github.com/cardarena/arena/src/domain/shared"
)

// Status of a battle. Transitions only move forward one step at a time.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// MaxRounds caps a simulation; reaching it without an exhausted deck is a draw.
const MaxRounds = 100

// Battle aggregate tracks a head-to-head match from the waiting slot to its outcome.
type Battle struct {
	ID          shared.BattleID
	Player1     shared.PlayerID
	Player2     shared.PlayerID
	Status      Status
	Winner      *shared.PlayerID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func NewBattle(id shared.BattleID, player1 shared.PlayerID, now time.Time) (*Battle, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if err := player1.Validate(); err != nil {
		return nil, err
	}
	return &Battle{
		ID:        id,
		Player1:   player1,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Join seats the second player and moves the battle to ongoing.
func (b *Battle) Join(player2 shared.PlayerID, now time.Time) error {
	if err := player2.Validate(); err != nil {
		return err
	}
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	if player2 == b.Player1 {
		return ErrSamePlayer
	}
	b.Player2 = player2
	b.Status = StatusOngoing
	b.UpdatedAt = now
	return nil
}

// Complete records the outcome. A nil winner is a draw.
func (b *Battle) Complete(winner *shared.PlayerID, now time.Time) error {
	if b.Status != StatusOngoing {
		return ErrInvalidTransition
	}
	if winner != nil && *winner != b.Player1 && *winner != b.Player2 {
		return ErrNotParticipant
	}
	if winner != nil {
		w := *winner
		b.Winner = &w
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now
	b.CompletedAt = &now
	return nil
}

// HasBothPlayers reports whether the battle can be simulated.
func (b *Battle) HasBothPlayers() bool {
	return b.Player1 != "" && b.Player2 != "" && b.Player1 != b.Player2
}

func (b *Battle) IsDraw() bool {
	return b.Status == StatusCompleted && b.Winner == nil
}

// Opponent returns the other participant.
func (b *Battle) Opponent(player shared.PlayerID) shared.PlayerID {
	if player == b.Player1 {
		return b.Player2
	}
	return b.Player1
}

// Clone returns a copy that shares no pointers with the receiver.
func (b *Battle) Clone() *Battle {
	c := *b
	if b.Winner != nil {
		w := *b.Winner
		c.Winner = &w
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
