package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/shared"
)

// BattleRepository implements battle.Repository using in-memory storage.
type BattleRepository struct {
	mu      sync.RWMutex
	battles map[shared.BattleID]*battle.Battle
	order   []shared.BattleID
	Clock   func() time.Time
}

// NewBattleRepository creates a new in-memory battle repository.
func NewBattleRepository() *BattleRepository {
	return &BattleRepository{
		battles: make(map[shared.BattleID]*battle.Battle),
		Clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Get retrieves a copy of a battle by ID.
func (r *BattleRepository) Get(ctx context.Context, id shared.BattleID) (*battle.Battle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, exists := r.battles[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", battle.ErrBattleNotFound, id)
	}
	return b.Clone(), nil
}

// GetWaitingBattle returns the oldest pending battle, or nil when none waits.
func (r *BattleRepository) GetWaitingBattle(ctx context.Context) (*battle.Battle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if b := r.battles[id]; b.Status == battle.StatusPending {
			return b.Clone(), nil
		}
	}
	return nil, nil
}

// CreateWaitingBattle stores a new pending battle for player1.
func (r *BattleRepository) CreateWaitingBattle(ctx context.Context, player1 shared.PlayerID) (*battle.Battle, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating battle id: %w", err)
	}
	b, err := battle.NewBattle(shared.BattleID(id.String()), player1, r.Clock())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.battles[b.ID] = b
	r.order = append(r.order, b.ID)
	return b.Clone(), nil
}

// JoinBattle seats player2 on a pending battle.
func (r *BattleRepository) JoinBattle(ctx context.Context, id shared.BattleID, player2 shared.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, exists := r.battles[id]
	if !exists {
		return fmt.Errorf("%w: %s", battle.ErrBattleNotFound, id)
	}
	return b.Join(player2, r.Clock())
}

// UpdateBattleOutcome completes an ongoing battle. A nil winner records a draw.
func (r *BattleRepository) UpdateBattleOutcome(ctx context.Context, id shared.BattleID, winner *shared.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, exists := r.battles[id]
	if !exists {
		return fmt.Errorf("%w: %s", battle.ErrBattleNotFound, id)
	}
	return b.Complete(winner, r.Clock())
}

// List returns copies of all battles in creation order.
func (r *BattleRepository) List() []*battle.Battle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*battle.Battle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.battles[id].Clone())
	}
	return out
}
