package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gmao/internal/config"
	"gmao/internal/db"
	"gmao/internal/engine"
	"gmao/internal/events"
	"gmao/internal/migrate"
	"gmao/internal/store"
)

type testEnv struct {
	Engine *engine.Engine
	Store  store.Store
	Events events.Reader
	Ctx    context.Context
	Clock  *time.Time
}

func newTestEnv(t *testing.T) testEnv {
	return newTestEnvWithConfig(t, config.Default("atelier-test"))
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn, db.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clock := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	s := store.SQL{DB: conn, Dialect: db.SQLite}
	eng := engine.New(s, cfg)
	eng.Now = func() time.Time { return clock }
	eng.Events = events.Writer{DB: conn, Dialect: db.SQLite}
	return testEnv{
		Engine: eng,
		Store:  s,
		Events: events.Reader{DB: conn, Dialect: db.SQLite},
		Ctx:    context.Background(),
		Clock:  &clock,
	}
}

func (env testEnv) reopen(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.New(env.Store, env.Engine.Config)
	if err := eng.Load(env.Ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	return eng
}

// failingStore accepts reads and rejects every write once broken is set.
type failingStore struct {
	store.Store
	broken bool
}

func (f *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if f.broken {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, value)
}

func isValidation(err error) bool {
	var v *engine.ValidationError
	return errors.As(err, &v)
}
