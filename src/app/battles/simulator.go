package battles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/shared"
)

// RatingUpdater recomputes both participants' ratings after a battle.
type RatingUpdater interface {
	UpdateRatings(ctx context.Context, player1, player2 shared.PlayerID, winner *shared.PlayerID) error
}

// Conductor runs a battle whose two seats are filled.
type Conductor interface {
	Conduct(ctx context.Context, id shared.BattleID) (battle.Result, error)
}

// Simulator plays the rounds of an ongoing battle.
type Simulator struct {
	Battles battle.Repository
	Decks   card.DeckProvider
	Log     battle.LogSink
	Ratings RatingUpdater
	Rand    Randomizer
	Logger  *zap.Logger
	Clock   func() time.Time
}

func NewSimulator(battles battle.Repository, decks card.DeckProvider, log battle.LogSink, ratings RatingUpdater, rnd Randomizer, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		Battles: battles,
		Decks:   decks,
		Log:     log,
		Ratings: ratings,
		Rand:    rnd,
		Logger:  logger,
		Clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Conduct simulates the battle to completion, persists its outcome and updates
// ratings. Once rounds begin the caller's cancellation is ignored. On a rating
// failure the completed result is returned together with the error.
func (s *Simulator) Conduct(ctx context.Context, id shared.BattleID) (battle.Result, error) {
	b, err := s.Battles.Get(ctx, id)
	if err != nil {
		return battle.Result{}, persistence("load battle", err)
	}
	if !b.HasBothPlayers() {
		return battle.Result{}, fmt.Errorf("%w: battle %s", shared.ErrIncompleteBattle, id)
	}
	if b.Status != battle.StatusOngoing {
		return battle.Result{}, fmt.Errorf("%w: battle %s is %s", battle.ErrInvalidTransition, id, b.Status)
	}

	ctx = context.WithoutCancel(ctx)
	logger := s.Logger.With(zap.String("battle_id", string(id)))
	result := battle.Result{BattleID: id, Status: battle.StatusOngoing}

	var winner *shared.PlayerID
	for round := 1; ; round++ {
		d1, err := s.Decks.GetDeck(ctx, b.Player1)
		if err != nil {
			return result, persistence("fetch deck", err)
		}
		d2, err := s.Decks.GetDeck(ctx, b.Player2)
		if err != nil {
			return result, persistence("fetch deck", err)
		}

		if w, done := exhausted(b, d1, d2); done {
			winner = w
			break
		}
		if round > battle.MaxRounds {
			break
		}

		rr, err := s.playRound(ctx, b, round, d1, d2)
		if err != nil {
			return result, err
		}
		logger.Debug("round played",
			zap.Int("round", rr.Number),
			zap.String("winner_card", string(rr.WinnerCard)),
			zap.String("description", rr.Description),
		)
		result.Rounds = append(result.Rounds, rr)
	}

	if err := s.Battles.UpdateBattleOutcome(ctx, id, winner); err != nil {
		return result, persistence("record outcome", err)
	}
	if err := b.Complete(winner, s.Clock()); err != nil {
		return result, err
	}
	result.Conclude(b)
	logger.Info("battle completed",
		zap.Int("rounds", len(result.Rounds)),
		zap.Bool("draw", winner == nil),
		zap.String("summary", result.Summary),
	)

	if err := s.Ratings.UpdateRatings(ctx, b.Player1, b.Player2, winner); err != nil {
		logger.Error("rating update failed", zap.Error(err))
		return result, err
	}
	return result, nil
}

func (s *Simulator) playRound(ctx context.Context, b *battle.Battle, number int, d1, d2 []card.Card) (battle.RoundResult, error) {
	c1 := d1[s.Rand.IntN(len(d1))]
	c2 := d2[s.Rand.IntN(len(d2))]

	out := battle.Resolve(c1, c2)
	rr := battle.NewRoundResult(number, b.Player1, c1, b.Player2, c2, out)

	switch out.Winner {
	case c1.ID:
		if err := s.Decks.TransferCard(ctx, c2.ID, b.Player1); err != nil {
			return rr, persistence("transfer card", err)
		}
	case c2.ID:
		if err := s.Decks.TransferCard(ctx, c1.ID, b.Player2); err != nil {
			return rr, persistence("transfer card", err)
		}
	}

	if err := s.Log.AppendRound(ctx, b.ID, rr); err != nil {
		return rr, persistence("append round", err)
	}
	return rr, nil
}

// exhausted ends the match when a deck is empty. Both decks empty cannot
// happen while cards are conserved; it is treated as a draw.
func exhausted(b *battle.Battle, d1, d2 []card.Card) (*shared.PlayerID, bool) {
	switch {
	case len(d1) == 0 && len(d2) == 0:
		return nil, true
	case len(d1) == 0:
		w := b.Player2
		return &w, true
	case len(d2) == 0:
		w := b.Player1
		return &w, true
	}
	return nil, false
}

func persistence(op string, err error) error {
	if errors.Is(err, shared.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrPersistence, op, err)
}
