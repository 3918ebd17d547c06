package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Vini334/ReclamaAI/internal/store"
)

// managedStore is a Store the commands own: they migrate it on start and
// close it on exit.
type managedStore interface {
	store.Store
	Migrate(ctx context.Context) error
	Close() error
}

// initStore opens and migrates the configured store. Driver "none" returns
// a nil store.
func initStore(ctx context.Context) (managedStore, error) {
	var (
		st  managedStore
		err error
	)
	switch cfg.Store.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "reclamaai.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
