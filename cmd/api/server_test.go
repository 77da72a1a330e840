package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cardarena/arena/src/app/battles"
	"github.com/cardarena/arena/src/app/ratings"
	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/rating"
	"github.com/cardarena/arena/src/domain/shared"
	"github.com/cardarena/arena/src/infra/memory"
)

type testEnv struct {
	handler http.Handler
	svc     *battles.Service
	decks   *memory.DeckStore
	stats   *memory.StatsStore
	logs    *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := memory.NewBattleRepository()
	decks := memory.NewDeckStore()
	rounds := memory.NewRoundLog()
	stats := memory.NewStatsStore()

	updater := ratings.NewUpdater(stats, nil)
	sim := battles.NewSimulator(repo, decks, rounds, updater, battles.NewRandom(7, 11), nil)
	svc := battles.NewService(repo, decks, sim, rounds, nil)

	reg := prometheus.NewRegistry()
	svc.Notifier = newBattleMetrics(reg, svc.ActiveBattles, nil)

	core, logs := observer.New(zap.InfoLevel)
	srv := NewServer(ServerConfig{
		Logger:        zap.New(core),
		Registry:      reg,
		BattleService: svc,
		RatingService: ratings.NewService(stats),
	})
	return &testEnv{handler: srv.Handler(), svc: svc, decks: decks, stats: stats, logs: logs}
}

func (e *testEnv) player(t *testing.T, id string, cards ...card.Card) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.decks.SetDeck(ctx, shared.PlayerID(id), cards...))
	require.NoError(t, e.stats.SaveStats(ctx, rating.PlayerStats{PlayerID: shared.PlayerID(id), UpdatedAt: time.Now()}))
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func mustCard(t *testing.T, id, name string, dmg float64) card.Card {
	t.Helper()
	c, err := card.New(shared.CardID(id), name, dmg, card.ElementNormal, card.KindMonster)
	require.NoError(t, err)
	return c
}

func TestServer_BattleFlow(t *testing.T) {
	env := newTestEnv(t)
	env.player(t, "alice", mustCard(t, "a1", "Dragon", 40))
	env.player(t, "bob", mustCard(t, "b1", "Goblin", 90))

	rec := env.do(t, http.MethodPost, "/v1/battles", RequestBattleRequest{PlayerID: "alice"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	pending := decode[BattleResultResponse](t, rec)
	assert.Equal(t, "pending", pending.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = env.do(t, http.MethodPost, "/v1/battles", RequestBattleRequest{PlayerID: "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[BattleResultResponse](t, rec)
	assert.Equal(t, pending.BattleID, done.BattleID)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, "alice", done.Winner)
	assert.Equal(t, "bob", done.Loser)
	require.Len(t, done.Rounds, 1)
	assert.Equal(t, "a1", done.Rounds[0].WinnerCard)

	rec = env.do(t, http.MethodGet, "/v1/battles/"+done.BattleID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[BattleResponse](t, rec)
	assert.Equal(t, "bob", view.Player2)
	assert.Equal(t, "alice", view.Winner)
	assert.NotNil(t, view.CompletedAt)
	assert.Len(t, view.Rounds, 1)

	rec = env.do(t, http.MethodGet, "/v1/stats/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatsResponse](t, rec)
	assert.Equal(t, 115, stats.Rating)
	assert.Equal(t, 1, stats.Wins)

	rec = env.do(t, http.MethodGet, "/v1/scoreboard?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[[]StatsResponse](t, rec)
	require.Len(t, board, 1)
	assert.Equal(t, "alice", board[0].PlayerID)

	rec = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `arena_battles_completed_total{outcome="decisive"} 1`)
	assert.Contains(t, rec.Body.String(), "arena_battles_in_flight 0")
}

func TestServer_Errors(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.decks.SetDeck(context.Background(), "empty"))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "malformed body", method: http.MethodPost, path: "/v1/battles", body: "{", want: http.StatusBadRequest},
		{name: "blank player", method: http.MethodPost, path: "/v1/battles", body: RequestBattleRequest{PlayerID: " "}, want: http.StatusBadRequest},
		{name: "no deck", method: http.MethodPost, path: "/v1/battles", body: RequestBattleRequest{PlayerID: "ghost"}, want: http.StatusUnprocessableEntity},
		{name: "empty deck", method: http.MethodPost, path: "/v1/battles", body: RequestBattleRequest{PlayerID: "empty"}, want: http.StatusUnprocessableEntity},
		{name: "unknown battle", method: http.MethodGet, path: "/v1/battles/nope", want: http.StatusNotFound},
		{name: "unknown stats", method: http.MethodGet, path: "/v1/stats/nobody", want: http.StatusNotFound},
		{name: "bad limit", method: http.MethodGet, path: "/v1/scoreboard?limit=ten", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_MissingStatsStillReportsBattle(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.decks.SetDeck(context.Background(), "alice", mustCard(t, "a1", "Dragon", 40)))
	require.NoError(t, env.decks.SetDeck(context.Background(), "bob", mustCard(t, "b1", "Goblin", 90)))

	env.do(t, http.MethodPost, "/v1/battles", RequestBattleRequest{PlayerID: "alice"})
	rec := env.do(t, http.MethodPost, "/v1/battles", RequestBattleRequest{PlayerID: "bob"})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[BattleResultResponse](t, rec)
	assert.Equal(t, "completed", resp.Status)
	assert.NotEmpty(t, resp.Warning)
}

func TestServer_RequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "client id is kept", header: "req-42", keep: true},
		{name: "missing id is generated"},
		{name: "oversized id is replaced", header: strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := httptest.NewRequest(http.MethodGet, "/v1/scoreboard", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			got := rec.Header().Get("X-Request-Id")
			require.NotEmpty(t, got)
			if tt.keep {
				assert.Equal(t, tt.header, got)
			} else {
				assert.NotEqual(t, tt.header, got)
			}

			entries := env.logs.FilterMessage("http_request").All()
			require.Len(t, entries, 1)
			assert.Equal(t, got, entries[0].ContextMap()["request_id"])
		})
	}
}

// heldConductor parks simulations until release is closed.
type heldConductor struct {
	next    battles.Conductor
	started chan struct{}
	release chan struct{}
}

func (h *heldConductor) Conduct(ctx context.Context, id shared.BattleID) (battle.Result, error) {
	h.started <- struct{}{}
	<-h.release
	return h.next.Conduct(ctx, id)
}

func TestServer_PlayerMidBattleGetsConflict(t *testing.T) {
	env := newTestEnv(t)
	held := &heldConductor{next: env.svc.Conductor, started: make(chan struct{}, 1), release: make(chan struct{})}
	env.svc.Conductor = held
	env.player(t, "alice", mustCard(t, "a1", "Dragon", 40))
	env.player(t, "bob", mustCard(t, "b1", "Goblin", 90))

	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/v1/battles", RequestBattleRequest{PlayerID: "alice"}).Code)

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/battles", strings.NewReader(`{"player_id":"bob"}`))
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		done <- rec.Code
	}()
	<-held.started

	rec := env.do(t, http.MethodPost, "/v1/battles", RequestBattleRequest{PlayerID: "alice"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	close(held.release)
	assert.Equal(t, http.StatusOK, <-done)
}
