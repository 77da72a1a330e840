package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cardarena/arena/src/domain/rating"
	"github.com/cardarena/arena/src/domain/shared"
)

const upsertStats = `INSERT INTO player_stats (player_id, rating, wins, losses, games_played, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (player_id) DO UPDATE SET
	  rating = EXCLUDED.rating,
	  wins = EXCLUDED.wins,
	  losses = EXCLUDED.losses,
	  games_played = EXCLUDED.games_played,
	  updated_at = EXCLUDED.updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanStats(row rowScanner) (*rating.PlayerStats, error) {
	var (
		st     rating.PlayerStats
		player string
		r      sql.NullInt64
	)
	if err := row.Scan(&player, &r, &st.Wins, &st.Losses, &st.GamesPlayed, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.PlayerID = shared.PlayerID(player)
	if r.Valid {
		v := int(r.Int64)
		st.Rating = &v
	}
	st.UpdatedAt = st.UpdatedAt.UTC()
	return &st, nil
}

// GetStats retrieves a player's stats row.
func (s *Store) GetStats(ctx context.Context, player shared.PlayerID) (*rating.PlayerStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT player_id, rating, wins, losses, games_played, updated_at
		 FROM player_stats WHERE player_id = $1`, string(player))
	st, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", rating.ErrStatsNotFound, player)
	}
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return st, nil
}

// SaveStats upserts one stats row.
func (s *Store) SaveStats(ctx context.Context, stats rating.PlayerStats) error {
	return saveStats(ctx, s.db, stats)
}

// UpdateStatsPair locks both rows, hands them to mutate and writes them back
// in the same transaction. Rows are locked in player id order.
func (s *Store) UpdateStatsPair(ctx context.Context, a, b shared.PlayerID, mutate func(a, b *rating.PlayerStats) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		first, second := a, b
		if second < first {
			first, second = second, first
		}
		locked := make(map[shared.PlayerID]*rating.PlayerStats, 2)
		for _, player := range []shared.PlayerID{first, second} {
			st, err := lockStats(ctx, tx, player)
			if err != nil {
				return err
			}
			locked[player] = st
		}

		sa, sb := locked[a], locked[b]
		if err := mutate(sa, sb); err != nil {
			return err
		}
		if err := saveStats(ctx, tx, *sa); err != nil {
			return err
		}
		return saveStats(ctx, tx, *sb)
	})
}

func lockStats(ctx context.Context, tx *sql.Tx, player shared.PlayerID) (*rating.PlayerStats, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT player_id, rating, wins, losses, games_played, updated_at
		 FROM player_stats WHERE player_id = $1 FOR UPDATE`, string(player))
	st, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", rating.ErrStatsNotFound, player)
	}
	if err != nil {
		return nil, fmt.Errorf("lock stats %s: %w", player, err)
	}
	return st, nil
}

// TopStats lists stats rows by rating then wins, highest first. Unset
// ratings rank as the default rating.
func (s *Store) TopStats(ctx context.Context, limit int) ([]rating.PlayerStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, rating, wins, losses, games_played, updated_at FROM player_stats
		 ORDER BY COALESCE(rating, $1) DESC, wins DESC, player_id
		 LIMIT NULLIF($2, 0)`, rating.DefaultRating, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top stats: %w", err)
	}
	defer rows.Close()

	var out []rating.PlayerStats
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return out, nil
}

func saveStats(ctx context.Context, db execer, stats rating.PlayerStats) error {
	if err := stats.PlayerID.Validate(); err != nil {
		return err
	}
	var r sql.NullInt64
	if stats.Rating != nil {
		r = sql.NullInt64{Int64: int64(*stats.Rating), Valid: true}
	}
	_, err := db.ExecContext(ctx, upsertStats,
		string(stats.PlayerID), r, stats.Wins, stats.Losses, stats.GamesPlayed, stats.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save stats %s: %w", stats.PlayerID, err)
	}
	return nil
}
