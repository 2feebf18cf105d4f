package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gmao/internal/app"
	"gmao/internal/config"
	"gmao/internal/domain"
	"gmao/internal/engine"
	"gmao/internal/events"
	"gmao/internal/logger"
)

func TestOpenPersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := app.Open(ctx, app.Options{Workspace: dir, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if a.Config.Workshop.ID != config.DefaultWorkshopID {
		t.Fatalf("expected default config, got %+v", a.Config.Workshop)
	}
	if _, err := a.Engine.CreateEquipment(ctx, domain.Equipment{ID: "eq1", Tag: "FR-01", Name: "Fraiseuse"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := app.Open(ctx, app.Options{Workspace: dir, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	list, err := b.Engine.ListEquipment(ctx, engine.EquipmentFilter{})
	if err != nil || len(list) != 1 || list[0].ID != "eq1" {
		t.Fatalf("equipment not persisted: %+v %v", list, err)
	}
	evts, err := b.Events.Latest(ctx, 5, events.Filter{})
	if err != nil || len(evts) != 1 || evts[0].Type != "equipment.created" {
		t.Fatalf("audit log: %+v %v", evts, err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".gmao", "gmao.db")); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(config.Path(dir), []byte(config.GenerateDefault("lycee")), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := app.LoadConfig(app.Options{Workspace: dir, Backend: "REDIS", RedisAddr: "localhost:6379"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workshop.ID != "lycee" || cfg.Storage.Backend != config.BackendRedis || cfg.Storage.RedisAddr != "localhost:6379" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if _, err := app.LoadConfig(app.Options{Workspace: dir, Backend: config.BackendPostgres}); err == nil {
		t.Fatalf("postgres without dsn should be rejected")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	if err := app.LoadEnv(dir); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GMAO_APP_TEST_VALUE=atelier\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("GMAO_APP_TEST_VALUE") })
	if err := app.LoadEnv(dir); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("GMAO_APP_TEST_VALUE"); got != "atelier" {
		t.Fatalf("env not loaded: %q", got)
	}
}
