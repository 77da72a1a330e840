package rating

import (
	"context"

	"github.com/cardarena/arena/src/domain/shared"
)

// Store is a read-modify-write store of per-player stats. GetStats returns
// ErrStatsNotFound when the player has no row.
type Store interface {
	GetStats(ctx context.Context, player shared.PlayerID) (*PlayerStats, error)
	SaveStats(ctx context.Context, stats PlayerStats) error
}

// PairUpdater is implemented by stores able to read and rewrite both
// participants' rows atomically. mutate receives the current rows and may
// modify them in place; nothing is written when it or either read fails.
type PairUpdater interface {
	UpdateStatsPair(ctx context.Context, a, b shared.PlayerID, mutate func(a, b *PlayerStats) error) error
}

// Ranker lists stats ordered by rating then wins, highest first.
type Ranker interface {
	TopStats(ctx context.Context, limit int) ([]PlayerStats, error)
}
