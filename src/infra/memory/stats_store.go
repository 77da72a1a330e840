package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cardarena/arena/src/domain/rating"
	"github.com/cardarena/arena/src/domain/shared"
)

// StatsStore implements rating.Store, rating.PairUpdater and rating.Ranker.
type StatsStore struct {
	mu    sync.RWMutex
	stats map[shared.PlayerID]rating.PlayerStats
}

// NewStatsStore creates a new in-memory stats store.
func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[shared.PlayerID]rating.PlayerStats)}
}

// GetStats retrieves a copy of a player's stats.
func (s *StatsStore) GetStats(ctx context.Context, player shared.PlayerID) (*rating.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[player]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rating.ErrStatsNotFound, player)
	}
	st = st.Clone()
	return &st, nil
}

// SaveStats stores a player's stats.
func (s *StatsStore) SaveStats(ctx context.Context, stats rating.PlayerStats) error {
	if err := stats.PlayerID.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats[stats.PlayerID] = stats.Clone()
	return nil
}

// UpdateStatsPair reads, mutates and stores both rows under one lock.
func (s *StatsStore) UpdateStatsPair(ctx context.Context, a, b shared.PlayerID, mutate func(a, b *rating.PlayerStats) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sa, ok := s.stats[a]
	if !ok {
		return fmt.Errorf("%w: %s", rating.ErrStatsNotFound, a)
	}
	sb, ok := s.stats[b]
	if !ok {
		return fmt.Errorf("%w: %s", rating.ErrStatsNotFound, b)
	}
	sa, sb = sa.Clone(), sb.Clone()
	if err := mutate(&sa, &sb); err != nil {
		return err
	}
	if err := sa.PlayerID.Validate(); err != nil {
		return err
	}
	if err := sb.PlayerID.Validate(); err != nil {
		return err
	}
	s.stats[a] = sa
	s.stats[b] = sb
	return nil
}

// TopStats lists stats by rating then wins, highest first.
func (s *StatsStore) TopStats(ctx context.Context, limit int) ([]rating.PlayerStats, error) {
	s.mu.RLock()
	all := make([]rating.PlayerStats, 0, len(s.stats))
	for _, st := range s.stats {
		all = append(all, st.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		ri, rj := all[i].CurrentRating(), all[j].CurrentRating()
		if ri != rj {
			return ri > rj
		}
		if all[i].Wins != all[j].Wins {
			return all[i].Wins > all[j].Wins
		}
		return all[i].PlayerID < all[j].PlayerID
	})
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
