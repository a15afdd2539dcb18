package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/internal/iodb"
	"github.com/gnames/gncube/internal/iosqlite"
	"github.com/gnames/gncube/pkg/errcode"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/pipeline"
)

// openStore opens the occurrence store selected in configuration.
func openStore(ctx context.Context) (occurrence.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		st, err := iosqlite.Open(ctx, cfg.StorePath())
		if err != nil {
			return nil, err
		}
		gn.Info("Occurrence store: <em>%s</em>", cfg.StorePath())
		return st, nil
	case "postgres":
		st, err := iodb.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		gn.Info("Connected to database: <em>%s@%s:%d/%s</em>",
			cfg.Database.User, cfg.Database.Host,
			cfg.Database.Port, cfg.Database.Database)
		return st, nil
	default:
		return nil, &gn.Error{
			Code: errcode.StoreUnknownBackendError,
			Msg:  "Unknown store backend <em>%s</em>, use sqlite or postgres",
			Vars: []any{cfg.Store.Backend},
			Err:  fmt.Errorf("unknown store backend %q", cfg.Store.Backend),
		}
	}
}

// gridSettings returns settings that determine cells of a run.
func gridSettings() pipeline.Settings {
	return pipeline.Settings{
		SourceCRS:          cfg.Grid.SourceCRS,
		TargetCRS:          cfg.Grid.TargetCRS,
		CellSize:           cfg.Grid.CellSize,
		ChunkSize:          cfg.Grid.ChunkSize,
		Seed:               cfg.Grid.Seed,
		DefaultUncertainty: cfg.Grid.DefaultUncertainty,
	}
}

func emptyStoreError() error {
	return &gn.Error{
		Code: errcode.StoreEmptyError,
		Msg: `<err>Occurrence store is empty.</err>
   Run <em>gncube load FILE</em> first.`,
		Err: errors.New("no occurrences in store"),
	}
}
