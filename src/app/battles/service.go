package battles

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/shared"
)

type Repository interface {
	battle.Repository
}

// Notifier is told about every completed battle. Failures are logged only.
type Notifier interface {
	BattleCompleted(ctx context.Context, b *battle.Battle, result battle.Result) error
}

// Service is the matchmaking coordinator. The waiting-slot decision runs under
// mu; simulation happens outside of it. A player seated in an ongoing battle
// cannot request another one until it ends.
type Service struct {
	Repo      Repository
	Decks     card.DeckProvider
	Conductor Conductor
	Rounds    battle.LogReader
	Notifier  Notifier
	Logger    *zap.Logger

	mu     sync.Mutex
	seated map[shared.PlayerID]shared.BattleID
	active atomic.Int64
}

func NewService(repo Repository, decks card.DeckProvider, conductor Conductor, rounds battle.LogReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Repo:      repo,
		Decks:     decks,
		Conductor: conductor,
		Rounds:    rounds,
		Logger:    logger,
		seated:    make(map[shared.PlayerID]shared.BattleID),
	}
}

// RequestBattle either parks the player in the waiting slot and returns a
// pending result, or pairs them with the waiting opponent and returns the
// completed battle.
func (s *Service) RequestBattle(ctx context.Context, player shared.PlayerID) (battle.Result, error) {
	if err := player.Validate(); err != nil {
		return battle.Result{}, err
	}
	if err := s.checkDeck(ctx, player); err != nil {
		return battle.Result{}, err
	}

	joined, waiting, err := s.pair(ctx, player)
	if err != nil {
		return battle.Result{}, err
	}
	if waiting != nil {
		s.Logger.Info("player waiting for opponent",
			zap.String("player_id", string(player)),
			zap.String("battle_id", string(waiting.ID)),
		)
		return battle.PendingResult(waiting), nil
	}

	s.Logger.Info("battle paired",
		zap.String("battle_id", string(joined.ID)),
		zap.String("player1", string(joined.Player1)),
		zap.String("player2", string(joined.Player2)),
	)

	s.active.Inc()
	result, err := func() (battle.Result, error) {
		defer s.unseat(joined)
		defer s.active.Dec()
		return s.Conductor.Conduct(ctx, joined.ID)
	}()

	if result.Status == battle.StatusCompleted {
		s.notify(ctx, joined.ID, result)
	}
	return result, err
}

// ActiveBattles is the number of simulations currently running.
func (s *Service) ActiveBattles() int64 {
	return s.active.Load()
}

func (s *Service) checkDeck(ctx context.Context, player shared.PlayerID) error {
	deck, err := s.Decks.GetDeck(ctx, player)
	if errors.Is(err, card.ErrDeckUnavailable) {
		return fmt.Errorf("%w: %w", shared.ErrInvalidDeck, err)
	}
	if err != nil {
		return persistence("fetch deck", err)
	}
	if len(deck) == 0 {
		return fmt.Errorf("%w: deck of %s is empty", shared.ErrInvalidDeck, player)
	}
	return nil
}

// pair returns either the battle the player joined or the battle they wait in.
func (s *Service) pair(ctx context.Context, player shared.PlayerID) (joined, waiting *battle.Battle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.seated[player]; ok {
		return nil, nil, fmt.Errorf("%w: %s is playing battle %s", battle.ErrAlreadyInBattle, player, id)
	}

	current, err := s.Repo.GetWaitingBattle(ctx)
	if err != nil {
		return nil, nil, persistence("find waiting battle", err)
	}
	if current == nil {
		created, err := s.Repo.CreateWaitingBattle(ctx, player)
		if err != nil {
			return nil, nil, persistence("create waiting battle", err)
		}
		return nil, created, nil
	}
	if current.Player1 == player {
		return nil, current, nil
	}

	if err := s.Repo.JoinBattle(ctx, current.ID, player); err != nil {
		return nil, nil, persistence("join battle", err)
	}
	current.Player2 = player
	current.Status = battle.StatusOngoing
	if s.seated == nil {
		s.seated = make(map[shared.PlayerID]shared.BattleID)
	}
	s.seated[current.Player1] = current.ID
	s.seated[current.Player2] = current.ID
	return current, nil, nil
}

func (s *Service) unseat(b *battle.Battle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seated, b.Player1)
	delete(s.seated, b.Player2)
}

func (s *Service) notify(ctx context.Context, id shared.BattleID, result battle.Result) {
	if s.Notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	b, err := s.Repo.Get(ctx, id)
	if err == nil {
		err = s.Notifier.BattleCompleted(ctx, b, result)
	}
	if err != nil {
		s.Logger.Warn("battle notification failed",
			zap.String("battle_id", string(id)),
			zap.Error(err),
		)
	}
}

// BattleView is a battle with its logged rounds.
type BattleView struct {
	Battle *battle.Battle
	Rounds []battle.RoundResult
}

// GetBattle loads a battle and its round log.
func (s *Service) GetBattle(ctx context.Context, id shared.BattleID) (BattleView, error) {
	if err := id.Validate(); err != nil {
		return BattleView{}, err
	}
	b, err := s.Repo.Get(ctx, id)
	if err != nil {
		return BattleView{}, err
	}
	rounds, err := s.Rounds.Rounds(ctx, id)
	if err != nil {
		return BattleView{}, persistence("load rounds", err)
	}
	return BattleView{Battle: b, Rounds: rounds}, nil
}
