package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/rating"
	"github.com/cardarena/arena/src/domain/shared"
	"github.com/cardarena/arena/src/infra/memory"
)

func mustCard(t *testing.T, id, name string, dmg float64) card.Card {
	t.Helper()
	c, err := card.New(shared.CardID(id), name, dmg, card.ElementNormal, card.KindMonster)
	require.NoError(t, err)
	return c
}

func TestDeckStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDeckStore()

	_, err := store.GetDeck(ctx, "alice")
	assert.ErrorIs(t, err, card.ErrDeckUnavailable)

	require.NoError(t, store.SetDeck(ctx, "alice", mustCard(t, "c1", "Goblin", 10), mustCard(t, "c2", "Ork", 20)))
	require.NoError(t, store.SetDeck(ctx, "bob"))

	deck, err := store.GetDeck(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, deck, "configured but empty deck is not an error")

	require.NoError(t, store.TransferCard(ctx, "c1", "bob"))

	alice, _ := store.GetDeck(ctx, "alice")
	bob, _ := store.GetDeck(ctx, "bob")
	require.Len(t, alice, 1)
	require.Len(t, bob, 1)
	assert.Equal(t, shared.CardID("c2"), alice[0].ID)
	assert.Equal(t, shared.CardID("c1"), bob[0].ID)

	owner, ok := store.Owner("c1")
	assert.True(t, ok)
	assert.Equal(t, shared.PlayerID("bob"), owner)

	assert.ErrorIs(t, store.TransferCard(ctx, "nope", "bob"), card.ErrCardNotFound)
	assert.ErrorIs(t, store.TransferCard(ctx, "c2", " "), shared.ErrInvalidInput)

	// Returned decks are copies.
	alice[0].Name = "Changed"
	again, _ := store.GetDeck(ctx, "alice")
	assert.Equal(t, "Ork", again[0].Name)
}

func TestDeckStore_SetDeckMovesOwnedCards(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDeckStore()
	c := mustCard(t, "c1", "Goblin", 10)

	require.NoError(t, store.SetDeck(ctx, "alice", c))
	require.NoError(t, store.SetDeck(ctx, "bob", c))

	alice, _ := store.GetDeck(ctx, "alice")
	bob, _ := store.GetDeck(ctx, "bob")
	assert.Empty(t, alice)
	assert.Len(t, bob, 1)
}

func TestDeckStore_ConcurrentTransfersConserveCards(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDeckStore()
	var cards []card.Card
	for i := 0; i < 50; i++ {
		cards = append(cards, mustCard(t, fmt.Sprintf("c%d", i), "Goblin", float64(i)))
	}
	require.NoError(t, store.SetDeck(ctx, "alice", cards...))
	require.NoError(t, store.SetDeck(ctx, "bob"))

	var wg sync.WaitGroup
	for i, c := range cards {
		wg.Add(1)
		go func(i int, id shared.CardID) {
			defer wg.Done()
			owner := shared.PlayerID("bob")
			if i%3 == 0 {
				owner = "alice"
			}
			assert.NoError(t, store.TransferCard(ctx, id, owner))
		}(i, c.ID)
	}
	wg.Wait()

	alice, _ := store.GetDeck(ctx, "alice")
	bob, _ := store.GetDeck(ctx, "bob")
	assert.Equal(t, len(cards), len(alice)+len(bob))
	assert.Len(t, alice, 17)
}

func TestBattleRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBattleRepository()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.Clock = func() time.Time { return now }

	waiting, err := repo.GetWaitingBattle(ctx)
	require.NoError(t, err)
	assert.Nil(t, waiting)

	b, err := repo.CreateWaitingBattle(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, battle.StatusPending, b.Status)
	assert.Equal(t, now, b.CreatedAt)

	waiting, err = repo.GetWaitingBattle(ctx)
	require.NoError(t, err)
	require.NotNil(t, waiting)
	assert.Equal(t, b.ID, waiting.ID)

	require.NoError(t, repo.JoinBattle(ctx, b.ID, "bob"))
	assert.ErrorIs(t, repo.JoinBattle(ctx, b.ID, "carol"), battle.ErrInvalidTransition)

	waiting, err = repo.GetWaitingBattle(ctx)
	require.NoError(t, err)
	assert.Nil(t, waiting)

	winner := shared.PlayerID("bob")
	require.NoError(t, repo.UpdateBattleOutcome(ctx, b.ID, &winner))
	assert.ErrorIs(t, repo.UpdateBattleOutcome(ctx, b.ID, nil), battle.ErrInvalidTransition)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, battle.StatusCompleted, got.Status)
	require.NotNil(t, got.Winner)
	assert.Equal(t, winner, *got.Winner)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, battle.ErrBattleNotFound)
	assert.ErrorIs(t, repo.JoinBattle(ctx, "missing", "bob"), battle.ErrBattleNotFound)

	assert.Len(t, repo.List(), 1)
}

func TestRoundLog(t *testing.T) {
	ctx := context.Background()
	log := memory.NewRoundLog()
	id := shared.BattleID("b1")

	round := func(n int) battle.RoundResult {
		return battle.RoundResult{Number: n, Card1: "c1", Card2: "c2", WinnerCard: "c1", Description: "x"}
	}

	require.NoError(t, log.AppendRound(ctx, id, round(1)))
	assert.ErrorIs(t, log.AppendRound(ctx, id, round(3)), shared.ErrInvalidInput)
	require.NoError(t, log.AppendRound(ctx, id, round(2)))

	bad := round(3)
	bad.WinnerCard = "c9"
	assert.ErrorIs(t, log.AppendRound(ctx, id, bad), shared.ErrInvalidInput)

	rounds, err := log.Rounds(ctx, id)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 1, rounds[0].Number)
	assert.Equal(t, 2, rounds[1].Number)

	empty, err := log.Rounds(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStatsStore_UpdateStatsPair(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStatsStore()
	require.NoError(t, store.SaveStats(ctx, rating.PlayerStats{PlayerID: "alice"}))
	require.NoError(t, store.SaveStats(ctx, rating.PlayerStats{PlayerID: "bob"}))

	err := store.UpdateStatsPair(ctx, "alice", "ghost", func(a, b *rating.PlayerStats) error {
		t.Fatal("mutate must not run without both rows")
		return nil
	})
	assert.ErrorIs(t, err, rating.ErrStatsNotFound)

	err = store.UpdateStatsPair(ctx, "alice", "bob", func(a, b *rating.PlayerStats) error {
		a.Wins++
		return fmt.Errorf("abort")
	})
	require.Error(t, err)
	alice, err := store.GetStats(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, alice.Wins, "a failed mutation writes nothing")

	const games = 40
	var wg sync.WaitGroup
	for i := 0; i < games; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.UpdateStatsPair(ctx, "alice", "bob", func(a, b *rating.PlayerStats) error {
				a.GamesPlayed++
				b.GamesPlayed++
				return nil
			}))
		}()
	}
	wg.Wait()

	for _, p := range []shared.PlayerID{"alice", "bob"} {
		st, err := store.GetStats(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, games, st.GamesPlayed, "games of %s", p)
	}
}
