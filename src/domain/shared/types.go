package shared

import (
	"fmt"
	"strings"
	"unicode"
)

// ID types keep domain entities distinct while remaining simple strings at runtime.
type (
	PlayerID string
	BattleID string
	CardID   string
)

const maxIDLength = 128

// Validate ensures IDs are not blank and normalized.
func (id PlayerID) Validate() error {
	if err := validateID(string(id)); err != nil {
		return fmt.Errorf("player id: %w", err)
	}
	return nil
}

func (id BattleID) Validate() error {
	if err := validateID(string(id)); err != nil {
		return fmt.Errorf("battle id: %w", err)
	}
	return nil
}

func (id CardID) Validate() error {
	if err := validateID(string(id)); err != nil {
		return fmt.Errorf("card id: %w", err)
	}
	return nil
}

func validateID(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: value is required", ErrInvalidInput)
	}
	if len(value) > maxIDLength {
		return fmt.Errorf("%w: value is too long", ErrInvalidInput)
	}
	for _, r := range value {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: value contains whitespace or control characters", ErrInvalidInput)
		}
	}
	return nil
}
