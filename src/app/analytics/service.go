package analytics

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/cardarena/arena/src/domain/analytics"
	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/shared"
)

// Service turns battle outcomes into analytics events.
type Service struct {
	Dispatcher     analytics.EventDispatcher
	AppName        string
	AppVersion     string
	Clock          func() time.Time
	ContextFactory func() analytics.Context
}

// NewService creates a new analytics service.
func NewService(dispatcher analytics.EventDispatcher, appName, appVersion string) *Service {
	return &Service{
		Dispatcher:     dispatcher,
		AppName:        appName,
		AppVersion:     appVersion,
		Clock:          func() time.Time { return time.Now().UTC() },
		ContextFactory: defaultContextFactory,
	}
}

// BattleCompleted dispatches one track event per participant: battle_won and
// battle_lost, or battle_draw for both.
func (s *Service) BattleCompleted(ctx context.Context, b *battle.Battle, result battle.Result) error {
	if b == nil || b.Status != battle.StatusCompleted || !b.HasBothPlayers() {
		return fmt.Errorf("%w: battle is not completed", analytics.ErrInvalidEvent)
	}

	now := s.Clock()
	evCtx := s.ContextFactory()

	names := map[shared.PlayerID]analytics.EventName{
		b.Player1: analytics.EventNameBattleDraw,
		b.Player2: analytics.EventNameBattleDraw,
	}
	if b.Winner != nil {
		names[*b.Winner] = analytics.EventNameBattleWon
		names[b.Opponent(*b.Winner)] = analytics.EventNameBattleLost
	}

	events := make([]*analytics.Event, 0, 2)
	for _, player := range []shared.PlayerID{b.Player1, b.Player2} {
		event, err := analytics.NewTrackEvent(player, names[player], evCtx, now)
		if err != nil {
			return err
		}
		event.WithProperty("battle_id", string(b.ID)).
			WithProperty("opponent", string(b.Opponent(player))).
			WithProperty("rounds", len(result.Rounds))
		if s.AppName != "" || s.AppVersion != "" {
			event.WithAppInfo(s.AppName, s.AppVersion)
		}
		events = append(events, event)
	}

	if err := s.Dispatcher.Dispatch(ctx, events); err != nil {
		return fmt.Errorf("%w: %w", analytics.ErrDispatchFailed, err)
	}
	return nil
}

func defaultContextFactory() analytics.Context {
	return analytics.Context{
		Direct: true,
		Library: analytics.LibraryInfo{
			Name:    "go",
			Version: runtime.Version(),
		},
	}
}
