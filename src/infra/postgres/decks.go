package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/shared"
)

// SetDeck registers a player's deck and moves the given cards to it.
func (s *Store) SetDeck(ctx context.Context, player shared.PlayerID, cards ...card.Card) error {
	if err := player.Validate(); err != nil {
		return err
	}
	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureDeck(ctx, tx, player); err != nil {
			return err
		}
		for _, c := range cards {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cards (id, owner_id, name, damage, element, kind)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (id) DO UPDATE SET
				   owner_id = EXCLUDED.owner_id,
				   name = EXCLUDED.name,
				   damage = EXCLUDED.damage,
				   element = EXCLUDED.element,
				   kind = EXCLUDED.kind,
				   position = nextval('card_position_seq')`,
				string(c.ID), string(player), c.Name, c.Damage, string(c.Element), string(c.Kind),
			)
			if err != nil {
				return fmt.Errorf("upsert card %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// GetDeck returns the player's cards in the order they were acquired.
func (s *Store) GetDeck(ctx context.Context, player shared.PlayerID) ([]card.Card, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM decks WHERE player_id = $1)`, string(player),
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup deck: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", card.ErrDeckUnavailable, player)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, damage, element, kind FROM cards
		 WHERE owner_id = $1 ORDER BY position`, string(player),
	)
	if err != nil {
		return nil, fmt.Errorf("query deck: %w", err)
	}
	defer rows.Close()

	deck := []card.Card{}
	for rows.Next() {
		var (
			c                 card.Card
			id, element, kind string
		)
		if err := rows.Scan(&id, &c.Name, &c.Damage, &element, &kind); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.ID = shared.CardID(id)
		c.Element = card.Element(element)
		c.Kind = card.Kind(kind)
		deck = append(deck, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deck: %w", err)
	}
	return deck, nil
}

// TransferCard moves a card to the end of the new owner's deck.
func (s *Store) TransferCard(ctx context.Context, id shared.CardID, newOwner shared.PlayerID) error {
	if err := newOwner.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureDeck(ctx, tx, newOwner); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE cards SET owner_id = $2, position = nextval('card_position_seq')
			 WHERE id = $1`,
			string(id), string(newOwner),
		)
		if err != nil {
			return fmt.Errorf("transfer card: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("transfer card: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", card.ErrCardNotFound, id)
		}
		return nil
	})
}

func ensureDeck(ctx context.Context, tx *sql.Tx, player shared.PlayerID) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO decks (player_id) VALUES ($1) ON CONFLICT (player_id) DO NOTHING`,
		string(player),
	)
	if err != nil {
		return fmt.Errorf("ensure deck: %w", err)
	}
	return nil
}
