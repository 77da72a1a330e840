package battle

import (
	"fmt"
	"strconv"

	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/shared"
)

// RoundResult is the append-only record of one played round.
type RoundResult struct {
	Number      int
	Card1       shared.CardID
	Card2       shared.CardID
	WinnerCard  shared.CardID
	Description string
}

func (r RoundResult) IsTie() bool { return r.WinnerCard == Tie }

// Validate checks the record before it is appended to a log.
func (r RoundResult) Validate() error {
	if r.Number < 1 || r.Number > MaxRounds {
		return fmt.Errorf("%w: round number %d out of range", shared.ErrInvalidInput, r.Number)
	}
	if err := r.Card1.Validate(); err != nil {
		return err
	}
	if err := r.Card2.Validate(); err != nil {
		return err
	}
	if r.WinnerCard != Tie && r.WinnerCard != r.Card1 && r.WinnerCard != r.Card2 {
		return fmt.Errorf("%w: winning card %s was not played", shared.ErrInvalidInput, r.WinnerCard)
	}
	return nil
}

// NewRoundResult builds the record for a resolved pairing.
func NewRoundResult(number int, p1 shared.PlayerID, c1 card.Card, p2 shared.PlayerID, c2 card.Card, out Outcome) RoundResult {
	return RoundResult{
		Number:      number,
		Card1:       c1.ID,
		Card2:       c2.ID,
		WinnerCard:  out.Winner,
		Description: Describe(p1, c1, p2, c2, out),
	}
}

// Describe renders a one-line summary of a round.
func Describe(p1 shared.PlayerID, c1 card.Card, p2 shared.PlayerID, c2 card.Card, out Outcome) string {
	left := fmt.Sprintf("%s: %s (%s)", p1, c1.Name, formatDamage(c1.Damage))
	right := fmt.Sprintf("%s: %s (%s)", p2, c2.Name, formatDamage(c2.Damage))
	var verdict string
	switch out.Winner {
	case Tie:
		verdict = "draw"
	case c1.ID:
		verdict = c1.Name + " wins"
	default:
		verdict = c2.Name + " wins"
	}
	if out.Rule == RuleElement {
		return fmt.Sprintf("%s vs %s => %s vs %s => %s (%s)",
			left, right, formatDamage(out.DamageA), formatDamage(out.DamageB), verdict, out.Reason)
	}
	return fmt.Sprintf("%s vs %s => %s (%s)", left, right, verdict, out.Reason)
}

func formatDamage(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Result is what a caller of the coordinator receives.
type Result struct {
	BattleID shared.BattleID
	Status   Status
	Winner   *shared.PlayerID
	Loser    *shared.PlayerID
	Rounds   []RoundResult
	Summary  string
}

// PendingResult describes a battle still waiting for an opponent.
func PendingResult(b *Battle) Result {
	return Result{
		BattleID: b.ID,
		Status:   StatusPending,
		Summary:  fmt.Sprintf("%s is waiting for an opponent", b.Player1),
	}
}

// Conclude fills in the final fields once the battle is completed.
func (r *Result) Conclude(b *Battle) {
	r.Status = b.Status
	if b.Winner == nil {
		r.Winner, r.Loser = nil, nil
		r.Summary = fmt.Sprintf("%s and %s drew after %d rounds", b.Player1, b.Player2, len(r.Rounds))
		return
	}
	winner := *b.Winner
	loser := b.Opponent(winner)
	r.Winner, r.Loser = &winner, &loser
	r.Summary = fmt.Sprintf("%s defeated %s after %d rounds", winner, loser, len(r.Rounds))
}
