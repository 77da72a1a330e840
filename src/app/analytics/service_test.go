package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardarena/arena/src/app/analytics"
	domainAnalytics "github.com/cardarena/arena/src/domain/analytics"
	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/shared"
)

type mockDispatcher struct {
	dispatchFunc func(ctx context.Context, events []*domainAnalytics.Event) error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, events []*domainAnalytics.Event) error {
	if m.dispatchFunc != nil {
		return m.dispatchFunc(ctx, events)
	}
	return nil
}

func completedBattle(t *testing.T, winner *shared.PlayerID) *battle.Battle {
	t.Helper()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	b, err := battle.NewBattle("battle-1", "alice", now)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Join("bob", now); err != nil {
		t.Fatal(err)
	}
	if err := b.Complete(winner, now); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestService_BattleCompleted(t *testing.T) {
	ctx := context.Background()
	bob := shared.PlayerID("bob")

	tests := []struct {
		name   string
		winner *shared.PlayerID
		want   map[shared.PlayerID]domainAnalytics.EventName
	}{
		{
			name:   "decisive battle",
			winner: &bob,
			want: map[shared.PlayerID]domainAnalytics.EventName{
				"alice": domainAnalytics.EventNameBattleLost,
				"bob":   domainAnalytics.EventNameBattleWon,
			},
		},
		{
			name: "draw",
			want: map[shared.PlayerID]domainAnalytics.EventName{
				"alice": domainAnalytics.EventNameBattleDraw,
				"bob":   domainAnalytics.EventNameBattleDraw,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured []*domainAnalytics.Event
			dispatcher := &mockDispatcher{
				dispatchFunc: func(ctx context.Context, events []*domainAnalytics.Event) error {
					captured = events
					return nil
				},
			}
			service := analytics.NewService(dispatcher, "arena", "1.0.0")

			b := completedBattle(t, tt.winner)
			result := battle.Result{BattleID: b.ID, Status: b.Status, Rounds: make([]battle.RoundResult, 4)}
			if err := service.BattleCompleted(ctx, b, result); err != nil {
				t.Fatalf("BattleCompleted() error = %v", err)
			}

			if len(captured) != 2 {
				t.Fatalf("Expected 2 events, got %d", len(captured))
			}
			for _, ev := range captured {
				if ev.Name != tt.want[ev.UserID] {
					t.Errorf("%s: expected %v, got %v", ev.UserID, tt.want[ev.UserID], ev.Name)
				}
				if ev.Properties["battle_id"] != "battle-1" {
					t.Errorf("%s: missing battle id, got %v", ev.UserID, ev.Properties["battle_id"])
				}
				if ev.Properties["rounds"] != 4 {
					t.Errorf("%s: expected 4 rounds, got %v", ev.UserID, ev.Properties["rounds"])
				}
				if err := ev.Validate(); err != nil {
					t.Errorf("%s: invalid event: %v", ev.UserID, err)
				}
			}
		})
	}
}

func TestService_BattleCompleted_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatch failure", func(t *testing.T) {
		dispatcher := &mockDispatcher{
			dispatchFunc: func(ctx context.Context, events []*domainAnalytics.Event) error {
				return errors.New("segment down")
			},
		}
		service := analytics.NewService(dispatcher, "", "")
		err := service.BattleCompleted(ctx, completedBattle(t, nil), battle.Result{})
		if !errors.Is(err, domainAnalytics.ErrDispatchFailed) {
			t.Errorf("Expected ErrDispatchFailed, got %v", err)
		}
	})

	t.Run("battle still pending", func(t *testing.T) {
		called := false
		dispatcher := &mockDispatcher{
			dispatchFunc: func(ctx context.Context, events []*domainAnalytics.Event) error {
				called = true
				return nil
			},
		}
		b, _ := battle.NewBattle("battle-2", "alice", time.Now())
		err := analytics.NewService(dispatcher, "", "").BattleCompleted(ctx, b, battle.PendingResult(b))
		if !errors.Is(err, domainAnalytics.ErrInvalidEvent) {
			t.Errorf("Expected ErrInvalidEvent, got %v", err)
		}
		if called {
			t.Error("nothing should be dispatched for an unfinished battle")
		}
	})
}
