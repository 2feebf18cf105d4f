// Package app wires a workspace into a ready Engine: environment, config,
// logger, storage backend, migrations and audit log.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"gmao/internal/config"
	"gmao/internal/db"
	"gmao/internal/engine"
	"gmao/internal/events"
	"gmao/internal/logger"
	"gmao/internal/migrate"
	"gmao/internal/store"
)

type Options struct {
	Workspace string
	// ConfigPath overrides <workspace>/gmao.yml.
	ConfigPath string
	// Backend, DSN and RedisAddr override the storage section when set.
	Backend   string
	DSN       string
	RedisAddr string
	Logger    *logger.Logger
}

type App struct {
	Workspace string
	Config    *config.Config
	Log       *logger.Logger
	DB        *sql.DB
	Events    events.Reader
	Engine    *engine.Engine

	closers []func() error
}

// LoadEnv loads <workspace>/.env into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnv(workspace string) error {
	if workspace == "" {
		workspace = "."
	}
	path := filepath.Join(workspace, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads the workspace config, falling back to defaults when the
// file is absent, and applies the storage overrides.
func LoadConfig(opts Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.FromFile(opts.ConfigPath)
	} else {
		cfg, err = config.LoadOptional(opts.Workspace)
	}
	if err != nil {
		return nil, err
	}
	if opts.Backend != "" {
		cfg.Storage.Backend = strings.ToLower(opts.Backend)
	}
	if opts.DSN != "" {
		cfg.Storage.DSN = opts.DSN
	}
	if opts.RedisAddr != "" {
		cfg.Storage.RedisAddr = opts.RedisAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Open bootstraps the workspace and loads the collections.
func Open(ctx context.Context, opts Options) (*App, error) {
	if err := LoadEnv(opts.Workspace); err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		if log, err = logger.New(cfg.Log.Mode); err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
	}
	a := &App{Workspace: opts.Workspace, Config: cfg, Log: log}

	var (
		kv     store.Store
		writer events.Writer
	)
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		r, err := store.NewRedis(ctx, cfg.Storage.RedisAddr, cfg.Storage.KeyPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		kv = r
		log.Debug("storage ready", "backend", config.BackendRedis, "addr", cfg.Storage.RedisAddr)
	default:
		dialect := db.SQLite
		if cfg.Storage.Backend == config.BackendPostgres {
			dialect = db.Postgres
		}
		conn, err := db.Open(db.Config{Workspace: opts.Workspace, Dialect: dialect, DSN: cfg.Storage.DSN})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		if err := migrate.Migrate(conn, dialect); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.DB = conn
		a.Events = events.Reader{DB: conn, Dialect: dialect}
		kv = store.SQL{DB: conn, Dialect: dialect}
		writer = events.Writer{DB: conn, Dialect: dialect}
		log.Debug("storage ready", "backend", cfg.Storage.Backend, "dialect", dialect)
	}

	eng := engine.New(kv, cfg)
	eng.Events = writer
	eng.Log = log
	if err := eng.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.Engine = eng
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
