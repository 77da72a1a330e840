// Package nakama exposes the battle coordinator as Nakama runtime RPCs.
package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"

	"github.com/cardarena/arena/src/app/battles"
	"github.com/cardarena/arena/src/app/ratings"
	"github.com/cardarena/arena/src/config"
	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/rating"
	"github.com/cardarena/arena/src/domain/shared"
	"github.com/cardarena/arena/src/infra/postgres"
)

const (
	RpcRequestBattle = "arena_request_battle"
	RpcGetBattle     = "arena_get_battle"
	RpcScoreboard    = "arena_scoreboard"
)

// gRPC status codes understood by Nakama clients.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeAlreadyExists      = 6
	codePermissionDenied   = 7
	codeFailedPrecondition = 9
	codeInternal           = 13
)

// Module holds the services behind the registered RPCs.
type Module struct {
	Battles *battles.Service
	Ratings *ratings.Service
	Logger  *zap.Logger
}

// InitModule bootstraps the arena schema in Nakama's database and registers
// the RPCs.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	zlog, err := config.NewLogger(config.Default().Log)
	if err != nil {
		return err
	}
	if err := postgres.Bootstrap(ctx, db); err != nil {
		return err
	}
	store := postgres.New(db, zlog.Named("postgres"))

	rnd, err := battles.NewSeededRandom()
	if err != nil {
		return err
	}
	updater := ratings.NewUpdater(store, zlog.Named("ratings"))
	sim := battles.NewSimulator(store, store, store, updater, rnd, zlog.Named("simulator"))
	m := &Module{
		Battles: battles.NewService(store, store, sim, store, zlog.Named("coordinator")),
		Ratings: ratings.NewService(store),
		Logger:  zlog,
	}
	if err := m.Register(initializer); err != nil {
		return err
	}
	logger.Info("arena runtime module registered")
	return nil
}

// Register adds the module's RPCs to the initializer.
func (m *Module) Register(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcRequestBattle, m.rpcRequestBattle); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcGetBattle, m.rpcGetBattle); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcScoreboard, m.rpcScoreboard)
}

type requestBattlePayload struct {
	PlayerID string `json:"player_id"`
}

type battlePayload struct {
	BattleID string   `json:"battle_id"`
	Status   string   `json:"status"`
	Winner   string   `json:"winner,omitempty"`
	Loser    string   `json:"loser,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Rounds   []string `json:"rounds"`
}

type statsPayload struct {
	PlayerID    string `json:"player_id"`
	Rating      int    `json:"rating"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	GamesPlayed int    `json:"games_played"`
}

// rpcRequestBattle enters the authenticated caller into matchmaking. The
// payload may name a player only on server-to-server calls, which carry no
// user id.
func (m *Module) rpcRequestBattle(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req requestBattlePayload
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", codeInvalidArgument)
		}
	}
	if caller, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); caller != "" {
		if req.PlayerID != "" && req.PlayerID != caller {
			return "", runtime.NewError("cannot request a battle for another player", codePermissionDenied)
		}
		req.PlayerID = caller
	}

	result, err := m.Battles.RequestBattle(ctx, shared.PlayerID(req.PlayerID))
	if err != nil && !(errors.Is(err, shared.ErrMissingStats) && result.Status == battle.StatusCompleted) {
		return "", m.toRuntimeError(err)
	}
	return encode(toBattlePayload(result))
}

func (m *Module) rpcGetBattle(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req struct {
		BattleID string `json:"battle_id"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", codeInvalidArgument)
	}
	view, err := m.Battles.GetBattle(ctx, shared.BattleID(req.BattleID))
	if err != nil {
		return "", m.toRuntimeError(err)
	}
	res := battle.Result{BattleID: view.Battle.ID, Status: view.Battle.Status, Rounds: view.Rounds}
	if view.Battle.Status == battle.StatusCompleted {
		res.Conclude(view.Battle)
	}
	return encode(toBattlePayload(res))
}

func (m *Module) rpcScoreboard(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req struct {
		Limit int `json:"limit"`
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", codeInvalidArgument)
		}
	}
	rows, err := m.Ratings.Scoreboard(ctx, req.Limit)
	if err != nil {
		return "", m.toRuntimeError(err)
	}
	out := make([]statsPayload, 0, len(rows))
	for _, st := range rows {
		out = append(out, statsPayload{
			PlayerID:    string(st.PlayerID),
			Rating:      st.CurrentRating(),
			Wins:        st.Wins,
			Losses:      st.Losses,
			GamesPlayed: st.GamesPlayed,
		})
	}
	return encode(out)
}

func toBattlePayload(res battle.Result) battlePayload {
	out := battlePayload{
		BattleID: string(res.BattleID),
		Status:   string(res.Status),
		Summary:  res.Summary,
		Rounds:   make([]string, 0, len(res.Rounds)),
	}
	if res.Winner != nil {
		out.Winner = string(*res.Winner)
	}
	if res.Loser != nil {
		out.Loser = string(*res.Loser)
	}
	for _, r := range res.Rounds {
		out.Rounds = append(out.Rounds, strconv.Itoa(r.Number)+": "+r.Description)
	}
	return out
}

func (m *Module) toRuntimeError(err error) error {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return runtime.NewError(err.Error(), codeInvalidArgument)
	case errors.Is(err, shared.ErrInvalidDeck):
		return runtime.NewError(err.Error(), codeFailedPrecondition)
	case errors.Is(err, battle.ErrAlreadyInBattle):
		return runtime.NewError(err.Error(), codeAlreadyExists)
	case errors.Is(err, battle.ErrBattleNotFound), errors.Is(err, rating.ErrStatsNotFound):
		return runtime.NewError(err.Error(), codeNotFound)
	}
	if m.Logger != nil {
		m.Logger.Error("arena rpc failed", zap.Error(err))
	}
	return runtime.NewError("internal error", codeInternal)
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("encode response", codeInternal)
	}
	return string(b), nil
}
