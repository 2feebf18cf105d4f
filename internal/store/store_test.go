package store_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"gmao/internal/db"
	"gmao/internal/migrate"
	"gmao/internal/store"
)

func newSQLStore(t *testing.T) store.SQL {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn, db.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.SQL{DB: conn, Dialect: db.SQLite}
}

func exerciseStore(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.Get(ctx, "equipment"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "equipment", []byte(`[{"id":"eq1"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "equipment", []byte(`[{"id":"eq2"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := s.Put(ctx, "missions", []byte(`[]`)); err != nil {
		t.Fatalf("put missions: %v", err)
	}
	got, err := s.Get(ctx, "equipment")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"id":"eq2"}]` {
		t.Fatalf("unexpected value %s", got)
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "equipment" || keys[1] != "missions" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if err := s.Delete(ctx, "equipment"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "equipment"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "equipment"); err != nil {
		t.Fatalf("delete missing key: %v", err)
	}
}

func TestSQLStore(t *testing.T) {
	exerciseStore(t, newSQLStore(t))
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newSQLStore(t)
	if err := migrate.Migrate(s.DB, db.SQLite); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("GMAO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GMAO_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := store.NewRedis(ctx, addr, "gmao-test:"+t.Name()+":")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer r.Close()
	for _, k := range []string{"equipment", "missions"} {
		_ = r.Delete(ctx, k)
	}
	exerciseStore(t, r)
	_ = r.Delete(ctx, "missions")
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("GMAO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GMAO_TEST_POSTGRES_DSN not set")
	}
	conn, err := db.Open(db.Config{Dialect: db.Postgres, DSN: dsn})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn, db.Postgres); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := conn.Exec(`DELETE FROM kv`); err != nil {
		t.Fatalf("reset: %v", err)
	}
	exerciseStore(t, store.SQL{DB: conn, Dialect: db.Postgres})
}

func TestRebind(t *testing.T) {
	q := `INSERT INTO kv(key,value) VALUES (?,?)`
	if got := db.Rebind(db.SQLite, q); got != q {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
	if got := db.Rebind(db.Postgres, q); got != `INSERT INTO kv(key,value) VALUES ($1,$2)` {
		t.Fatalf("postgres rebind: %s", got)
	}
}
