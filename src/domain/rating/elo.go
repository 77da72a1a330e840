package rating

import "math"

// K is the fixed Elo development coefficient.
const K = 30

// Result of a game from one player's perspective.
type Result int

const (
	Loss Result = iota
	Draw
	Win
)

// Score is the actual score Elo compares against the expectation.
func (r Result) Score() float64 {
	switch r {
	case Win:
		return 1
	case Draw:
		return 0.5
	}
	return 0
}

// Expected returns the expected score of a player rated own against opponent.
func Expected(own, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-own)/400))
}

// Delta is the rating change for one player, truncated toward zero.
func Delta(own, opponent int, result Result) int {
	return int(math.Trunc(K * (result.Score() - Expected(own, opponent))))
}
