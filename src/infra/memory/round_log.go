package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/shared"
)

// RoundLog implements battle.LogSink and battle.LogReader in memory. Rounds
// must arrive in order without gaps.
type RoundLog struct {
	mu     sync.RWMutex
	rounds map[shared.BattleID][]battle.RoundResult
}

// NewRoundLog creates a new in-memory round log.
func NewRoundLog() *RoundLog {
	return &RoundLog{rounds: make(map[shared.BattleID][]battle.RoundResult)}
}

// AppendRound stores one round.
func (l *RoundLog) AppendRound(ctx context.Context, id shared.BattleID, round battle.RoundResult) error {
	if err := round.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if want := len(l.rounds[id]) + 1; round.Number != want {
		return fmt.Errorf("%w: round %d appended, expected %d", shared.ErrInvalidInput, round.Number, want)
	}
	l.rounds[id] = append(l.rounds[id], round)
	return nil
}

// Rounds returns a copy of the logged rounds of a battle.
func (l *RoundLog) Rounds(ctx context.Context, id shared.BattleID) ([]battle.RoundResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]battle.RoundResult(nil), l.rounds[id]...), nil
}
