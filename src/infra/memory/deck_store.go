package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/shared"
)

// DeckStore implements card.DeckProvider using in-memory storage. Every card
// has exactly one owner; the store mutex makes each transfer atomic.
type DeckStore struct {
	mu     sync.RWMutex
	cards  map[shared.CardID]card.Card
	owners map[shared.CardID]shared.PlayerID
	decks  map[shared.PlayerID][]shared.CardID
}

// NewDeckStore creates a new in-memory deck store.
func NewDeckStore() *DeckStore {
	return &DeckStore{
		cards:  make(map[shared.CardID]card.Card),
		owners: make(map[shared.CardID]shared.PlayerID),
		decks:  make(map[shared.PlayerID][]shared.CardID),
	}
}

// SetDeck configures a player's deck. Cards already owned by someone else are
// moved to the player.
func (s *DeckStore) SetDeck(ctx context.Context, player shared.PlayerID, cards ...card.Card) error {
	if err := player.Validate(); err != nil {
		return err
	}
	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.decks[player]; !ok {
		s.decks[player] = nil
	}
	for _, c := range cards {
		if prev, ok := s.owners[c.ID]; ok {
			s.decks[prev] = without(s.decks[prev], c.ID)
		}
		s.cards[c.ID] = c
		s.owners[c.ID] = player
		s.decks[player] = append(s.decks[player], c.ID)
	}
	return nil
}

// GetDeck returns a copy of the player's deck in insertion order.
func (s *DeckStore) GetDeck(ctx context.Context, player shared.PlayerID) ([]card.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.decks[player]
	if !ok {
		return nil, fmt.Errorf("%w: %s", card.ErrDeckUnavailable, player)
	}
	deck := make([]card.Card, 0, len(ids))
	for _, id := range ids {
		deck = append(deck, s.cards[id])
	}
	return deck, nil
}

// TransferCard moves a card to the end of the new owner's deck.
func (s *DeckStore) TransferCard(ctx context.Context, id shared.CardID, newOwner shared.PlayerID) error {
	if err := newOwner.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.owners[id]
	if !ok {
		return fmt.Errorf("%w: %s", card.ErrCardNotFound, id)
	}
	if prev == newOwner {
		return nil
	}
	s.decks[prev] = without(s.decks[prev], id)
	s.decks[newOwner] = append(s.decks[newOwner], id)
	s.owners[id] = newOwner
	return nil
}

// Owner reports who currently holds a card.
func (s *DeckStore) Owner(id shared.CardID) (shared.PlayerID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.owners[id]
	return owner, ok
}

func without(ids []shared.CardID, id shared.CardID) []shared.CardID {
	out := make([]shared.CardID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
