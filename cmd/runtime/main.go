// Command runtime builds the arena Nakama plugin:
//
//	go build -buildmode=plugin -o arena.so ./cmd/runtime
package main

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/cardarena/arena/src/infra/nakama"
)

// InitModule is the entrypoint Nakama looks up in the plugin.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}

func main() {}
