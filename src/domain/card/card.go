package card

import (
	"fmt"
	"math"
	"strings"

	"github.com/cardarena/arena/src/domain/shared"
)

// Element decides elemental effectiveness when a spell is involved.
type Element string

const (
	ElementWater  Element = "water"
	ElementFire   Element = "fire"
	ElementNormal Element = "normal"
)

// Kind separates monsters from spells.
type Kind string

const (
	KindMonster Kind = "monster"
	KindSpell   Kind = "spell"
)

// Card is immutable once created; only its owner changes.
type Card struct {
	ID      shared.CardID
	Name    string
	Damage  float64
	Element Element
	Kind    Kind
}

// New builds a validated card.
func New(id shared.CardID, name string, damage float64, element Element, kind Kind) (Card, error) {
	c := Card{ID: id, Name: name, Damage: damage, Element: element, Kind: kind}
	if err := c.Validate(); err != nil {
		return Card{}, err
	}
	return c, nil
}

func (c Card) Validate() error {
	if err := c.ID.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: card name is required", shared.ErrInvalidInput)
	}
	if c.Damage < 0 || math.IsNaN(c.Damage) || math.IsInf(c.Damage, 0) {
		return fmt.Errorf("%w: card damage must be a non-negative number", shared.ErrInvalidInput)
	}
	if _, err := ParseElement(string(c.Element)); err != nil {
		return err
	}
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	return nil
}

func (c Card) IsSpell() bool   { return c.Kind == KindSpell }
func (c Card) IsMonster() bool { return c.Kind == KindMonster }

// NameContains reports whether the card name carries the given token.
func (c Card) NameContains(token string) bool {
	return strings.Contains(c.Name, token)
}

// ParseElement accepts the element name in any letter case.
func ParseElement(value string) (Element, error) {
	switch Element(strings.ToLower(strings.TrimSpace(value))) {
	case ElementWater:
		return ElementWater, nil
	case ElementFire:
		return ElementFire, nil
	case ElementNormal:
		return ElementNormal, nil
	}
	return "", fmt.Errorf("%w: unknown element %q", shared.ErrInvalidInput, value)
}

// ParseKind accepts the kind name in any letter case.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindMonster:
		return KindMonster, nil
	case KindSpell:
		return KindSpell, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", shared.ErrInvalidInput, value)
}

// Count returns the number of cards across decks, used to check that a round
// neither creates nor destroys cards.
func Count(decks ...[]Card) int {
	n := 0
	for _, d := range decks {
		n += len(d)
	}
	return n
}
