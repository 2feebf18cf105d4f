package gmaosdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gmao/internal/config"
	"gmao/internal/db"
	"gmao/internal/engine"
	"gmao/internal/migrate"
	"gmao/internal/server"
	"gmao/internal/store"
	gmaosdk "gmao/sdk/go"
)

func newClient(t *testing.T) *gmaosdk.Client {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn, db.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(store.SQL{DB: conn, Dialect: db.SQLite}, config.Default("sdk"))
	handler, err := server.New(server.Config{Engine: e})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return gmaosdk.New(ts.URL)
}

func TestClientEquipmentAndCalendar(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	eq, err := c.CreateEquipment(ctx, gmaosdk.Equipment{Tag: "FRAISE-01", Name: "Fraiseuse", TrainingLevel: "1MSPC"})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	task, err := c.AddTask(ctx, eq.ID, gmaosdk.Task{Title: "Vidange", Date: "2024-05-10", Type: "preventive"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if _, err := c.CompleteTask(ctx, eq.ID, task.ID, true); err != nil {
		t.Fatalf("complete task: %v", err)
	}
	cal, err := c.Calendar(ctx, 2024, 5)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	day := cal.Days["2024-05-10"]
	if len(day) != 1 || !day[0].Completed || day[0].EquipmentID != eq.ID {
		t.Fatalf("unexpected calendar %+v", cal)
	}
	items, err := c.ListEquipment(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("list equipment: %v %+v", err, items)
	}
}

func TestClientMissionErrors(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	m, err := c.CreateMission(ctx, gmaosdk.Mission{Type: "corrective", Title: "Fuite", EquipmentID: "eq-1", Priority: "high"})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	_, err = c.SetMissionStatus(ctx, m.ID, "to_validate")
	var apiErr *gmaosdk.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict || apiErr.Code != "invalid_transition" {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := c.SetMissionStatus(ctx, m.ID, "cancelled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	list, err := c.ListMissions(ctx, gmaosdk.MissionFilter{Status: "cancelled"})
	if err != nil || len(list) != 1 {
		t.Fatalf("list missions: %v %+v", err, list)
	}
	if err := c.DeleteMission(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = c.DeleteMission(ctx, m.ID)
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if _, err := c.StudentReport(ctx, "nobody"); !errors.As(err, &apiErr) || apiErr.Code != "not_found" {
		t.Fatalf("expected not_found, got %v", err)
	}
}
