package card

import "errors"

var (
	ErrDeckUnavailable = errors.New("deck unavailable")
	ErrCardNotFound    = errors.New("card not found")
)
