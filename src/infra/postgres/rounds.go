package postgres

import (
	"context"
	"fmt"

	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/shared"
)

// AppendRound stores one round. Round numbers are unique per battle, so a
// replayed append fails instead of duplicating the record.
func (s *Store) AppendRound(ctx context.Context, id shared.BattleID, round battle.RoundResult) error {
	if err := round.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO battle_rounds (battle_id, number, card1_id, card2_id, winner_card, description)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		string(id), round.Number, string(round.Card1), string(round.Card2), string(round.WinnerCard), round.Description,
	)
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: round %d already logged", shared.ErrInvalidInput, round.Number)
	}
	if err != nil {
		return fmt.Errorf("append round: %w", err)
	}
	return nil
}

// Rounds returns the logged rounds of a battle in play order.
func (s *Store) Rounds(ctx context.Context, id shared.BattleID) ([]battle.RoundResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, card1_id, card2_id, winner_card, description FROM battle_rounds
		 WHERE battle_id = $1 ORDER BY number`, string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []battle.RoundResult
	for rows.Next() {
		var (
			r                    battle.RoundResult
			card1, card2, winner string
		)
		if err := rows.Scan(&r.Number, &card1, &card2, &winner, &r.Description); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r.Card1 = shared.CardID(card1)
		r.Card2 = shared.CardID(card2)
		r.WinnerCard = shared.CardID(winner)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}
	return out, nil
}
