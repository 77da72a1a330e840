package rating

import (
	"time"

	"github.com/cardarena/arena/src/domain/shared"
)

// DefaultRating applies to players whose rating was never set.
const DefaultRating = 100

// PlayerStats is the rating row of a single player.
type PlayerStats struct {
	PlayerID    shared.PlayerID
	Rating      *int
	Wins        int
	Losses      int
	GamesPlayed int
	UpdatedAt   time.Time
}

// NewPlayerStats returns a fresh row with an unset rating.
func NewPlayerStats(player shared.PlayerID, now time.Time) (*PlayerStats, error) {
	if err := player.Validate(); err != nil {
		return nil, err
	}
	return &PlayerStats{PlayerID: player, UpdatedAt: now}, nil
}

// CurrentRating resolves an unset rating to DefaultRating.
func (s *PlayerStats) CurrentRating() int {
	if s.Rating == nil {
		return DefaultRating
	}
	return *s.Rating
}

// Record applies one finished game and its rating delta.
func (s *PlayerStats) Record(result Result, delta int, now time.Time) {
	r := s.CurrentRating() + delta
	s.Rating = &r
	switch result {
	case Win:
		s.Wins++
	case Loss:
		s.Losses++
	}
	s.GamesPlayed++
	s.UpdatedAt = now
}

// Clone returns a copy that shares no pointers with the receiver.
func (s PlayerStats) Clone() PlayerStats {
	if s.Rating != nil {
		r := *s.Rating
		s.Rating = &r
	}
	return s
}
