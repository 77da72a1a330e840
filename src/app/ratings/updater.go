package ratings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cardarena/arena/src/domain/rating"
	"github.com/cardarena/arena/src/domain/shared"
)

// Updater applies the Elo update after a completed battle.
type Updater struct {
	Store  rating.Store
	Logger *zap.Logger
	Clock  func() time.Time
}

func NewUpdater(store rating.Store, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{
		Store:  store,
		Logger: logger,
		Clock:  func() time.Time { return time.Now().UTC() },
	}
}

// UpdateRatings recomputes both players' stats. A nil winner is a draw. Both
// new ratings derive from the ratings read before either is written.
func (u *Updater) UpdateRatings(ctx context.Context, player1, player2 shared.PlayerID, winner *shared.PlayerID) error {
	if err := player1.Validate(); err != nil {
		return err
	}
	if err := player2.Validate(); err != nil {
		return err
	}
	if player1 == player2 {
		return fmt.Errorf("%w: players must differ", shared.ErrInvalidInput)
	}
	if winner != nil && *winner != player1 && *winner != player2 {
		return fmt.Errorf("%w: winner %s did not play", shared.ErrInvalidInput, *winner)
	}

	var r1, r2 int
	apply := func(s1, s2 *rating.PlayerStats) error {
		old1, old2 := s1.CurrentRating(), s2.CurrentRating()
		res1, res2 := outcome(player1, winner), outcome(player2, winner)
		now := u.Clock()
		s1.Record(res1, rating.Delta(old1, old2, res1), now)
		s2.Record(res2, rating.Delta(old2, old1, res2), now)
		r1, r2 = s1.CurrentRating(), s2.CurrentRating()
		return nil
	}

	var err error
	if pair, ok := u.Store.(rating.PairUpdater); ok {
		err = u.updatePair(ctx, pair, player1, player2, apply)
	} else {
		err = u.updateSequential(ctx, player1, player2, apply)
	}
	if err != nil {
		return err
	}
	u.Logger.Info("ratings updated",
		zap.String("player1", string(player1)),
		zap.Int("rating1", r1),
		zap.String("player2", string(player2)),
		zap.Int("rating2", r2),
	)
	return nil
}

// updatePair lets the store lock both rows for the whole read-modify-write.
func (u *Updater) updatePair(ctx context.Context, pair rating.PairUpdater, player1, player2 shared.PlayerID, apply func(s1, s2 *rating.PlayerStats) error) error {
	err := pair.UpdateStatsPair(ctx, player1, player2, apply)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rating.ErrStatsNotFound):
		return fmt.Errorf("%w: %w", shared.ErrMissingStats, err)
	case errors.Is(err, shared.ErrPersistence):
		return err
	}
	return fmt.Errorf("%w: update stats: %w", shared.ErrPersistence, err)
}

// updateSequential writes one row after the other. The first row is restored
// if the second write fails.
func (u *Updater) updateSequential(ctx context.Context, player1, player2 shared.PlayerID, apply func(s1, s2 *rating.PlayerStats) error) error {
	s1, err := u.load(ctx, player1)
	if err != nil {
		return err
	}
	s2, err := u.load(ctx, player2)
	if err != nil {
		return err
	}
	before1 := s1.Clone()
	if err := apply(s1, s2); err != nil {
		return err
	}

	if err := u.Store.SaveStats(ctx, *s1); err != nil {
		return fmt.Errorf("%w: save stats: %w", shared.ErrPersistence, err)
	}
	if err := u.Store.SaveStats(ctx, *s2); err != nil {
		if rerr := u.Store.SaveStats(ctx, before1); rerr != nil {
			u.Logger.Error("stats compensation failed",
				zap.String("player_id", string(player1)),
				zap.Error(rerr),
			)
			return fmt.Errorf("%w: %w: %w", shared.ErrPersistence, rating.ErrPartialWrite, errors.Join(err, rerr))
		}
		return fmt.Errorf("%w: save stats: %w", shared.ErrPersistence, err)
	}
	return nil
}

func (u *Updater) load(ctx context.Context, player shared.PlayerID) (*rating.PlayerStats, error) {
	st, err := u.Store.GetStats(ctx, player)
	if errors.Is(err, rating.ErrStatsNotFound) {
		return nil, fmt.Errorf("%w: %w", shared.ErrMissingStats, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get stats: %w", shared.ErrPersistence, err)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingStats, player)
	}
	return st, nil
}

func outcome(player shared.PlayerID, winner *shared.PlayerID) rating.Result {
	switch {
	case winner == nil:
		return rating.Draw
	case *winner == player:
		return rating.Win
	}
	return rating.Loss
}
