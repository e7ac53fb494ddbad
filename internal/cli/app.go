package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/boarder-portal/telegram-bot/internal/config"
	"github.com/boarder-portal/telegram-bot/internal/db"
	"github.com/boarder-portal/telegram-bot/internal/ledger"
	"github.com/boarder-portal/telegram-bot/internal/logging"
	"github.com/boarder-portal/telegram-bot/internal/repo"
	"github.com/boarder-portal/telegram-bot/internal/store"
)

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   store.Store
	machine *ledger.Machine
	close   func()
}

func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	v, err := config.New(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		v.Set("log.level", opts.LogLevel)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	st, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return nil, err
	}

	machine := ledger.NewMachine(
		repo.NewProposals(st, nil),
		repo.NewLedger(st),
		ledger.WithProposalTTL(cfg.Ledger.ProposalTTL),
		ledger.WithLogger(log.With("component", "ledger")),
	)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		machine: machine,
		close:   closeStore,
	}, nil
}

// openStore connects to the configured backend and brings its schema up to date.
func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (store.Store, func(), error) {
	storeLog := store.WithLogger(log.With("component", "store"))

	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.ApplyMigrations(ctx, pool, db.Migrations()); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return store.NewPostgres(pool, storeLog), pool.Close, nil

	case config.DriverSQLite:
		sdb, err := db.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewSQLite(sdb, storeLog), func() { _ = sdb.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
