package card

import (
	"context"

	"github.com/cardarena/arena/src/domain/shared"
)

// DeckProvider exposes the active deck of each player. TransferCard must move a
// card atomically with respect to any other transfer touching the same card.
type DeckProvider interface {
	GetDeck(ctx context.Context, player shared.PlayerID) ([]Card, error)
	TransferCard(ctx context.Context, id shared.CardID, newOwner shared.PlayerID) error
}
