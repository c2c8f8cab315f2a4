package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/config"
	"github.com/Yoshino-s/hitokoto-api/internal/corpus"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
	"github.com/Yoshino-s/hitokoto-api/internal/store/badger"
	"github.com/Yoshino-s/hitokoto-api/internal/store/sqlite"
	hsync "github.com/Yoshino-s/hitokoto-api/internal/sync"
)

// bind ties a flag to a config key. Only flags set on the command line
// override the file and environment.
func bind(flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", flag.Name, err))
	}
}

// app holds the collaborators shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  store.Store
	bundle *bundle.Bundle
}

func wireApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	s, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  s,
		bundle: bundle.New(cfg.Bundle.Root),
	}, nil
}

func openStore(sc config.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch sc.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(sc.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return db, nil
	case config.DriverBadger:
		bc := badger.InMemoryConfig()
		if sc.Path != "" {
			bc = badger.DefaultConfig(sc.Path)
		}
		bc.Logger = logger
		db, err := badger.Open(bc)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

func (a *app) slots() *slot.Manager {
	return slot.NewManager(a.store, a.cfg.Store.Prefix, a.logger)
}

func (a *app) syncer(notifier hsync.Notifier, metrics *hsync.Metrics) hsync.Syncer {
	sc := hsync.DefaultConfig()
	sc.Concurrency = a.cfg.SyncConcurrency()
	sc.Notifier = notifier
	sc.Metrics = metrics
	sc.Logger = a.logger
	return hsync.New(a.bundle, a.slots(), sc)
}

func (a *app) reader() *corpus.Reader {
	return corpus.NewReader(a.store, a.cfg.Store.Prefix, a.logger)
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp wires the app for the duration of fn.
func withApp(fn func(a *app) error) error {
	a, err := wireApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()
	return fn(a)
}
