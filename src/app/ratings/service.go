package ratings

import (
	"context"

	"github.com/cardarena/arena/src/domain/rating"
	"github.com/cardarena/arena/src/domain/shared"
)

type Repository interface {
	rating.Store
	rating.Ranker
}

// Service answers stats and scoreboard queries.
type Service struct {
	Repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{Repo: repo}
}

const (
	defaultScoreboardLimit = 10
	maxScoreboardLimit     = 100
)

func (s *Service) Stats(ctx context.Context, player shared.PlayerID) (*rating.PlayerStats, error) {
	if err := player.Validate(); err != nil {
		return nil, err
	}
	return s.Repo.GetStats(ctx, player)
}

// Scoreboard lists the best rated players.
func (s *Service) Scoreboard(ctx context.Context, limit int) ([]rating.PlayerStats, error) {
	if limit <= 0 {
		limit = defaultScoreboardLimit
	}
	if limit > maxScoreboardLimit {
		limit = maxScoreboardLimit
	}
	return s.Repo.TopStats(ctx, limit)
}
