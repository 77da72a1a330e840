package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/rating"
	"github.com/cardarena/arena/src/domain/shared"
)

type RequestBattleRequest struct {
	PlayerID string `json:"player_id"`
}

type RoundResponse struct {
	Number      int    `json:"number"`
	Card1       string `json:"card1"`
	Card2       string `json:"card2"`
	WinnerCard  string `json:"winner_card,omitempty"`
	Description string `json:"description"`
}

type BattleResultResponse struct {
	BattleID string          `json:"battle_id"`
	Status   string          `json:"status"`
	Winner   string          `json:"winner,omitempty"`
	Loser    string          `json:"loser,omitempty"`
	Summary  string          `json:"summary"`
	Rounds   []RoundResponse `json:"rounds"`
	Warning  string          `json:"warning,omitempty"`
}

type BattleResponse struct {
	BattleID    string          `json:"battle_id"`
	Player1     string          `json:"player1"`
	Player2     string          `json:"player2,omitempty"`
	Status      string          `json:"status"`
	Winner      string          `json:"winner,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Rounds      []RoundResponse `json:"rounds"`
}

type StatsResponse struct {
	PlayerID    string `json:"player_id"`
	Rating      int    `json:"rating"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	GamesPlayed int    `json:"games_played"`
}

func (s *Server) handleRequestBattle(w http.ResponseWriter, r *http.Request) {
	var req RequestBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.cfg.BattleService.RequestBattle(r.Context(), shared.PlayerID(req.PlayerID))
	resp := toBattleResult(result)
	if err != nil {
		// The battle itself finished; only the rating rows were absent.
		if errors.Is(err, shared.ErrMissingStats) && result.Status == battle.StatusCompleted {
			resp.Warning = err.Error()
			s.writeJSON(w, http.StatusOK, resp)
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Status == battle.StatusPending {
		status = http.StatusAccepted
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	id := shared.BattleID(mux.Vars(r)["id"])
	view, err := s.cfg.BattleService.GetBattle(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	b := view.Battle
	resp := BattleResponse{
		BattleID:    string(b.ID),
		Player1:     string(b.Player1),
		Player2:     string(b.Player2),
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		CompletedAt: b.CompletedAt,
		Rounds:      toRounds(view.Rounds),
	}
	if b.Winner != nil {
		resp.Winner = string(*b.Winner)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	player := shared.PlayerID(mux.Vars(r)["player"])
	st, err := s.cfg.RatingService.Stats(r.Context(), player)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toStats(*st))
}

func (s *Server) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, errors.New("limit must be an integer"))
			return
		}
		limit = v
	}
	rows, err := s.cfg.RatingService.Scoreboard(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := make([]StatsResponse, 0, len(rows))
	for _, st := range rows {
		resp = append(resp, toStats(st))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps domain errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidDeck):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, battle.ErrAlreadyInBattle):
		status = http.StatusConflict
	case errors.Is(err, battle.ErrBattleNotFound), errors.Is(err, rating.ErrStatsNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.requestLogger(r).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.writeError(w, status, err)
}

func toBattleResult(res battle.Result) BattleResultResponse {
	resp := BattleResultResponse{
		BattleID: string(res.BattleID),
		Status:   string(res.Status),
		Summary:  res.Summary,
		Rounds:   toRounds(res.Rounds),
	}
	if res.Winner != nil {
		resp.Winner = string(*res.Winner)
	}
	if res.Loser != nil {
		resp.Loser = string(*res.Loser)
	}
	return resp
}

func toRounds(rounds []battle.RoundResult) []RoundResponse {
	out := make([]RoundResponse, 0, len(rounds))
	for _, rr := range rounds {
		out = append(out, RoundResponse{
			Number:      rr.Number,
			Card1:       string(rr.Card1),
			Card2:       string(rr.Card2),
			WinnerCard:  string(rr.WinnerCard),
			Description: rr.Description,
		})
	}
	return out
}

func toStats(st rating.PlayerStats) StatsResponse {
	return StatsResponse{
		PlayerID:    string(st.PlayerID),
		Rating:      st.CurrentRating(),
		Wins:        st.Wins,
		Losses:      st.Losses,
		GamesPlayed: st.GamesPlayed,
	}
}
