package repo_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"gmao/internal/db"
	"gmao/internal/domain"
	"gmao/internal/migrate"
	"gmao/internal/repo"
	"gmao/internal/store"
)

func newStore(t *testing.T) store.Store {
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

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	col := repo.NewCollection[domain.Mission](newStore(t), repo.KeyMissions)
	items, err := col.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestEquipmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	col := repo.NewCollection[domain.Equipment](newStore(t), repo.KeyEquipment)
	in := []domain.Equipment{
		{
			ID: "eq2", Tag: "TOUR-02", Name: "Tour", Location: "Atelier B", Status: domain.EquipmentFaulty,
			TrainingLevel: domain.Level1MSPC,
			MaintenanceSchedule: []domain.MaintenanceTask{
				{ID: "t2", Title: "Graissage", Date: "2024-05-01", Type: domain.Preventive, CompetenceCodes: []string{"C2.1"}},
				{ID: "t1", Title: "Courroie", Date: "2024-04-02", Type: domain.Corrective, Completed: true, CompetenceCodes: []string{"C3.2", "C3.1"}},
			},
		},
		{ID: "eq1", Tag: "FR-01", Name: "Fraiseuse", Status: domain.EquipmentOperational, MaintenanceSchedule: []domain.MaintenanceTask{}},
	}
	if err := col.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := col.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch\n in: %#v\nout: %#v", in, out)
	}
}

func TestMissionRoundTripKeepsTimes(t *testing.T) {
	ctx := context.Background()
	col := repo.NewCollection[domain.Mission](newStore(t), repo.KeyMissions)
	created := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	in := []domain.Mission{{
		ID: "m1", Type: domain.Improvement, Title: "Carter", EquipmentID: "eq1", EquipmentName: "Fraiseuse",
		Status: domain.StatusAssigned, Priority: domain.PriorityHigh, AssignedTo: []string{"s1", "s2"},
		PlannedDate: "2024-03-04", CreatedAt: created, UpdatedAt: created.Add(time.Hour),
	}}
	if err := col.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := col.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 1 || !out[0].CreatedAt.Equal(created) || !out[0].UpdatedAt.Equal(created.Add(time.Hour)) {
		t.Fatalf("times not preserved: %+v", out)
	}
	if !reflect.DeepEqual(out[0].AssignedTo, in[0].AssignedTo) || out[0].Status != in[0].Status {
		t.Fatalf("fields not preserved: %+v", out[0])
	}
}

func TestSaveNilWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	col := repo.NewCollection[domain.Student](s, repo.KeyStudents)
	if err := col.Save(ctx, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := s.Get(ctx, repo.KeyStudents)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("expected [], got %s", raw)
	}
}
