package battle

import (
	"context"

	"github.com/cardarena/arena/src/domain/shared"
)

// Repository persists battles and the single waiting slot. GetWaitingBattle
// returns nil and no error when nobody is waiting.
type Repository interface {
	Get(ctx context.Context, id shared.BattleID) (*Battle, error)
	GetWaitingBattle(ctx context.Context) (*Battle, error)
	CreateWaitingBattle(ctx context.Context, player1 shared.PlayerID) (*Battle, error)
	JoinBattle(ctx context.Context, id shared.BattleID, player2 shared.PlayerID) error
	UpdateBattleOutcome(ctx context.Context, id shared.BattleID, winner *shared.PlayerID) error
}

// LogSink appends one immutable record per played round, in round order.
type LogSink interface {
	AppendRound(ctx context.Context, id shared.BattleID, round RoundResult) error
}

// LogReader reads back the round log of a battle.
type LogReader interface {
	Rounds(ctx context.Context, id shared.BattleID) ([]RoundResult, error)
}
