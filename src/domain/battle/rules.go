package battle

import (
	"fmt"

	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/shared"
)

// Tie marks a round without a winning card. Blank ids never validate, so it
// cannot collide with a real card.
const Tie shared.CardID = ""

// Rule names the step of the resolution that decided a round.
type Rule string

const (
	RuleSpecial Rule = "special"
	RuleDamage  Rule = "damage"
	RuleElement Rule = "element"
)

// Outcome is the result of resolving one pairing.
type Outcome struct {
	Winner shared.CardID
	Rule   Rule
	Reason string
	// Effective damage of each card against the other, in argument order.
	DamageA float64
	DamageB float64
}

func (o Outcome) IsTie() bool { return o.Winner == Tie }

type specialRule struct {
	reason string
	beats  func(x, y card.Card) bool
}

var specialRules = []specialRule{
	{
		reason: "goblins are too afraid of dragons to attack",
		beats: func(x, y card.Card) bool {
			return x.NameContains("Dragon") && y.NameContains("Goblin")
		},
	},
	{
		reason: "wizards control orks",
		beats: func(x, y card.Card) bool {
			return x.NameContains("Wizard") && y.NameContains("Ork")
		},
	},
	{
		reason: "knights drown instantly under a water spell",
		beats: func(x, y card.Card) bool {
			return x.IsSpell() && x.Element == card.ElementWater && y.NameContains("Knight")
		},
	},
	{
		reason: "krakens are immune to spells",
		beats: func(x, y card.Card) bool {
			return x.NameContains("Kraken") && y.IsSpell()
		},
	},
	{
		reason: "fire elves evade dragons",
		beats: func(x, y card.Card) bool {
			return x.NameContains("FireElf") && y.NameContains("Dragon")
		},
	},
}

// Multiplier returns the effectiveness of attacker against defender.
func Multiplier(attacker, defender card.Element) float64 {
	switch {
	case attacker == defender:
		return 1
	case attacker == card.ElementWater && defender == card.ElementFire,
		attacker == card.ElementFire && defender == card.ElementNormal,
		attacker == card.ElementNormal && defender == card.ElementWater:
		return 2
	case attacker == card.ElementWater && defender == card.ElementNormal,
		attacker == card.ElementFire && defender == card.ElementWater,
		attacker == card.ElementNormal && defender == card.ElementFire:
		return 0.5
	}
	return 1
}

// Resolve decides a round between a and b. The result depends only on the two
// cards, and swapping them yields the same winning card.
func Resolve(a, b card.Card) Outcome {
	for _, rule := range specialRules {
		aWins, bWins := rule.beats(a, b), rule.beats(b, a)
		switch {
		case aWins && !bWins:
			return Outcome{Winner: a.ID, Rule: RuleSpecial, Reason: rule.reason, DamageA: a.Damage, DamageB: b.Damage}
		case bWins && !aWins:
			return Outcome{Winner: b.ID, Rule: RuleSpecial, Reason: rule.reason, DamageA: a.Damage, DamageB: b.Damage}
		}
	}

	if a.IsMonster() && b.IsMonster() {
		return compare(a, b, a.Damage, b.Damage, RuleDamage)
	}

	da := a.Damage * Multiplier(a.Element, b.Element)
	db := b.Damage * Multiplier(b.Element, a.Element)
	return compare(a, b, da, db, RuleElement)
}

func compare(a, b card.Card, da, db float64, rule Rule) Outcome {
	out := Outcome{Rule: rule, DamageA: da, DamageB: db}
	switch {
	case da > db:
		out.Winner = a.ID
		out.Reason = fmt.Sprintf("%s deals more damage", a.Name)
	case db > da:
		out.Winner = b.ID
		out.Reason = fmt.Sprintf("%s deals more damage", b.Name)
	default:
		out.Winner = Tie
		out.Reason = "equal damage"
	}
	return out
}
