package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardarena/arena/src/app/battles"
	"github.com/cardarena/arena/src/app/ratings"
	"github.com/cardarena/arena/src/config"
	"github.com/cardarena/arena/src/domain/battle"
	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/infra/memory"
	"github.com/cardarena/arena/src/infra/postgres"
)

type deckStore interface {
	card.DeckProvider
	config.DeckSeeder
}

type roundStore interface {
	battle.LogSink
	battle.LogReader
}

// storage groups the repositories of one backend.
type storage struct {
	battles battles.Repository
	decks   deckStore
	rounds  roundStore
	stats   ratings.Repository
	close   func() error
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return &storage{
			battles: memory.NewBattleRepository(),
			decks:   memory.NewDeckStore(),
			rounds:  memory.NewRoundLog(),
			stats:   memory.NewStatsStore(),
			close:   func() error { return nil },
		}, nil
	case config.DriverPostgres:
		pg, err := postgres.Open(ctx, cfg.PostgresDSN, logger.Named("postgres"))
		if err != nil {
			return nil, err
		}
		return &storage{
			battles: pg,
			decks:   pg,
			rounds:  pg,
			stats:   pg,
			close:   pg.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
