package battles_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardarena/arena/src/app/battles"
	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/shared"
	"github.com/cardarena/arena/src/infra/memory"
)

// stubBattles serves a single stored battle and records outcome writes.
type stubBattles struct {
	battle.Repository

	mu       sync.Mutex
	stored   battle.Battle
	outcomes []*shared.PlayerID
}

func (s *stubBattles) Get(ctx context.Context, id shared.BattleID) (*battle.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.stored.ID {
		return nil, battle.ErrBattleNotFound
	}
	return s.stored.Clone(), nil
}

func (s *stubBattles) UpdateBattleOutcome(ctx context.Context, id shared.BattleID, winner *shared.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, winner)
	return s.stored.Complete(winner, time.Now())
}

// scriptedRand returns picks in order and 0 once they run out.
type scriptedRand struct {
	mu    sync.Mutex
	picks []int
}

func (r *scriptedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.picks) == 0 {
		return 0
	}
	p := r.picks[0]
	r.picks = r.picks[1:]
	return p % n
}

type ratingCall struct {
	p1, p2 shared.PlayerID
	winner *shared.PlayerID
}

type recordingRatings struct {
	calls []ratingCall
}

func (r *recordingRatings) UpdateRatings(ctx context.Context, p1, p2 shared.PlayerID, winner *shared.PlayerID) error {
	r.calls = append(r.calls, ratingCall{p1: p1, p2: p2, winner: winner})
	return nil
}

func TestSimulator_Conduct(t *testing.T) {
	troll := monster("a1", "Troll", 20, card.ElementNormal)
	knight := monster("a2", "Knight", 50, card.ElementNormal)
	bobTroll := monster("b1", "Troll", 20, card.ElementNormal)

	// 99 tied rounds, then alice plays the knight and takes bob's last card.
	lastRoundWin := make([]int, 0, 2*battle.MaxRounds)
	for i := 1; i < battle.MaxRounds; i++ {
		lastRoundWin = append(lastRoundWin, 0, 0)
	}
	lastRoundWin = append(lastRoundWin, 1, 0)

	tests := []struct {
		name       string
		stored     battle.Battle
		picks      []int
		wantErr    error
		wantStatus battle.Status
		wantWinner shared.PlayerID
		wantRounds int
	}{
		{
			name:       "missing second player",
			stored:     battle.Battle{ID: "b-1", Player1: "alice", Status: battle.StatusOngoing},
			wantErr:    shared.ErrIncompleteBattle,
			wantStatus: battle.StatusOngoing,
		},
		{
			name:       "same player in both seats",
			stored:     battle.Battle{ID: "b-1", Player1: "alice", Player2: "alice", Status: battle.StatusOngoing},
			wantErr:    shared.ErrIncompleteBattle,
			wantStatus: battle.StatusOngoing,
		},
		{
			name:       "already completed",
			stored:     battle.Battle{ID: "b-1", Player1: "alice", Player2: "bob", Status: battle.StatusCompleted},
			wantErr:    battle.ErrInvalidTransition,
			wantStatus: battle.StatusCompleted,
		},
		{
			name:       "still pending",
			stored:     battle.Battle{ID: "b-1", Player1: "alice", Player2: "bob", Status: battle.StatusPending},
			wantErr:    battle.ErrInvalidTransition,
			wantStatus: battle.StatusPending,
		},
		{
			name:       "deck emptied on the last round is a win",
			stored:     battle.Battle{ID: "b-1", Player1: "alice", Player2: "bob", Status: battle.StatusOngoing},
			picks:      lastRoundWin,
			wantStatus: battle.StatusCompleted,
			wantWinner: "alice",
			wantRounds: battle.MaxRounds,
		},
		{
			name:       "all ties until the cap is a draw",
			stored:     battle.Battle{ID: "b-1", Player1: "alice", Player2: "bob", Status: battle.StatusOngoing},
			wantStatus: battle.StatusCompleted,
			wantRounds: battle.MaxRounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			decks := memory.NewDeckStore()
			require.NoError(t, decks.SetDeck(ctx, "alice", troll, knight))
			require.NoError(t, decks.SetDeck(ctx, "bob", bobTroll))
			repo := &stubBattles{stored: tt.stored}
			log := memory.NewRoundLog()
			rts := &recordingRatings{}
			sim := battles.NewSimulator(repo, decks, log, rts, &scriptedRand{picks: tt.picks}, nil)

			res, err := sim.Conduct(ctx, "b-1")

			assert.Equal(t, tt.wantStatus, repo.stored.Status)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, repo.outcomes, "no outcome may be written")
				assert.Empty(t, rts.calls, "ratings untouched")
				logged, _ := log.Rounds(ctx, "b-1")
				assert.Empty(t, logged)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, battle.StatusCompleted, res.Status)
			require.Len(t, res.Rounds, tt.wantRounds)
			assert.Equal(t, tt.wantRounds, res.Rounds[len(res.Rounds)-1].Number)
			require.Len(t, repo.outcomes, 1)
			require.Len(t, rts.calls, 1)

			if tt.wantWinner == "" {
				assert.Nil(t, res.Winner)
				assert.Nil(t, repo.outcomes[0])
				assert.Nil(t, rts.calls[0].winner)
				return
			}
			require.NotNil(t, res.Winner)
			assert.Equal(t, tt.wantWinner, *res.Winner)
			require.NotNil(t, repo.outcomes[0])
			assert.Equal(t, tt.wantWinner, *repo.outcomes[0])
			require.NotNil(t, rts.calls[0].winner)
			assert.Equal(t, tt.wantWinner, *rts.calls[0].winner)

			bobDeck, err := decks.GetDeck(ctx, "bob")
			require.NoError(t, err)
			assert.Empty(t, bobDeck)
		})
	}
}

func TestSimulator_Conduct_UnknownBattle(t *testing.T) {
	repo := &stubBattles{stored: battle.Battle{ID: "b-1"}}
	sim := battles.NewSimulator(repo, memory.NewDeckStore(), memory.NewRoundLog(), &recordingRatings{}, &scriptedRand{}, nil)

	_, err := sim.Conduct(context.Background(), "b-2")
	assert.ErrorIs(t, err, battle.ErrBattleNotFound)
	assert.ErrorIs(t, err, shared.ErrPersistence)
}
