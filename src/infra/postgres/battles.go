package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/shared"
)

const battleColumns = `id, player1_id, player2_id, status, winner_id, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBattle(row rowScanner) (*battle.Battle, error) {
	var (
		b                        battle.Battle
		id, player1, player2, st string
		winner                   sql.NullString
		completed                sql.NullTime
	)
	if err := row.Scan(&id, &player1, &player2, &st, &winner, &b.CreatedAt, &b.UpdatedAt, &completed); err != nil {
		return nil, err
	}
	b.ID = shared.BattleID(id)
	b.Player1 = shared.PlayerID(player1)
	b.Player2 = shared.PlayerID(player2)
	b.Status = battle.Status(st)
	if winner.Valid {
		w := shared.PlayerID(winner.String)
		b.Winner = &w
	}
	if completed.Valid {
		t := completed.Time.UTC()
		b.CompletedAt = &t
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

// Get retrieves a battle by ID.
func (s *Store) Get(ctx context.Context, id shared.BattleID) (*battle.Battle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+battleColumns+` FROM battles WHERE id = $1`, string(id))
	b, err := scanBattle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", battle.ErrBattleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get battle: %w", err)
	}
	return b, nil
}

// GetWaitingBattle returns the pending battle, or nil when none waits.
func (s *Store) GetWaitingBattle(ctx context.Context) (*battle.Battle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+battleColumns+` FROM battles WHERE status = $1 ORDER BY created_at LIMIT 1`,
		string(battle.StatusPending),
	)
	b, err := scanBattle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get waiting battle: %w", err)
	}
	return b, nil
}

// CreateWaitingBattle inserts a pending battle. The partial unique index on
// pending rows rejects a second waiting battle from another process.
func (s *Store) CreateWaitingBattle(ctx context.Context, player1 shared.PlayerID) (*battle.Battle, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating battle id: %w", err)
	}
	b, err := battle.NewBattle(shared.BattleID(id.String()), player1, s.Clock())
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO battles (id, player1_id, player2_id, status, created_at, updated_at)
		 VALUES ($1, $2, '', $3, $4, $5)`,
		string(b.ID), string(b.Player1), string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: another battle is already waiting", battle.ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("create battle: %w", err)
	}
	return b, nil
}

// JoinBattle seats player2 on a pending battle.
func (s *Store) JoinBattle(ctx context.Context, id shared.BattleID, player2 shared.PlayerID) error {
	return s.mutateBattle(ctx, id, func(b *battle.Battle) error {
		return b.Join(player2, s.Clock())
	})
}

// UpdateBattleOutcome completes an ongoing battle. A nil winner records a draw.
func (s *Store) UpdateBattleOutcome(ctx context.Context, id shared.BattleID, winner *shared.PlayerID) error {
	return s.mutateBattle(ctx, id, func(b *battle.Battle) error {
		return b.Complete(winner, s.Clock())
	})
}

// mutateBattle locks the row, applies the domain transition and writes the
// result back.
func (s *Store) mutateBattle(ctx context.Context, id shared.BattleID, apply func(*battle.Battle) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+battleColumns+` FROM battles WHERE id = $1 FOR UPDATE`, string(id))
		b, err := scanBattle(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", battle.ErrBattleNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("lock battle: %w", err)
		}
		if err := apply(b); err != nil {
			return err
		}

		var winner sql.NullString
		if b.Winner != nil {
			winner = sql.NullString{String: string(*b.Winner), Valid: true}
		}
		var completed sql.NullTime
		if b.CompletedAt != nil {
			completed = sql.NullTime{Time: *b.CompletedAt, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE battles SET player2_id = $2, status = $3, winner_id = $4, updated_at = $5, completed_at = $6
			 WHERE id = $1`,
			string(b.ID), string(b.Player2), string(b.Status), winner, b.UpdatedAt, completed,
		)
		if err != nil {
			return fmt.Errorf("update battle: %w", err)
		}
		return nil
	})
}
