package rating

import "errors"

var (
	ErrStatsNotFound = errors.New("player stats not found")
	ErrPartialWrite  = errors.New("only one player's stats were written")
)
