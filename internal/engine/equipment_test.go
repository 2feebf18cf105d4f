package engine_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"gmao/internal/config"
	"gmao/internal/domain"
	"gmao/internal/engine"
)

func TestEquipmentAggregateAndCascade(t *testing.T) {
	env := newTestEnv(t)
	eq, err := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{ID: "eq1", Status: domain.EquipmentOperational})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	if _, err := env.Engine.AddTask(env.Ctx, eq.ID, domain.MaintenanceTask{ID: "t1", Date: "2024-04-02", Type: domain.Preventive}); err != nil {
		t.Fatalf("add task: %v", err)
	}
	tasks, err := env.Engine.AggregateTasks(env.Ctx, engine.TaskFilter{})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(tasks) != 1 || tasks[0].EquipmentID != "eq1" || tasks[0].EquipmentName != "" || tasks[0].ID != "t1" {
		t.Fatalf("unexpected aggregate: %+v", tasks)
	}
	removed, err := env.Engine.DeleteEquipment(env.Ctx, "eq1")
	if err != nil || !removed {
		t.Fatalf("delete equipment: %v %v", removed, err)
	}
	tasks, err = env.Engine.AggregateTasks(env.Ctx, engine.TaskFilter{})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty aggregate, got %+v", tasks)
	}
	removed, err = env.Engine.DeleteEquipment(env.Ctx, "eq1")
	if err != nil || removed {
		t.Fatalf("second delete should report nothing removed: %v %v", removed, err)
	}
}

func TestDeleteTaskLeavesSiblings(t *testing.T) {
	env := newTestEnv(t)
	eq, err := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "TOUR-01", Name: "Tour"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t1, err := env.Engine.AddTask(env.Ctx, eq.ID, domain.MaintenanceTask{Title: "Vidange", Date: "2024-04-03", Type: domain.Preventive})
	if err != nil {
		t.Fatalf("add t1: %v", err)
	}
	t2, err := env.Engine.AddTask(env.Ctx, eq.ID, domain.MaintenanceTask{Title: "Courroie", Date: "2024-04-05", Type: domain.Corrective, CompetenceCodes: []string{"C3.1"}})
	if err != nil {
		t.Fatalf("add t2: %v", err)
	}
	if t1.ID == "" || t1.ID == t2.ID {
		t.Fatalf("task ids not generated: %q %q", t1.ID, t2.ID)
	}
	removed, err := env.Engine.DeleteTask(env.Ctx, eq.ID, t1.ID)
	if err != nil || !removed {
		t.Fatalf("delete task: %v %v", removed, err)
	}
	got, err := env.Engine.GetEquipment(env.Ctx, eq.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.MaintenanceSchedule) != 1 || !reflect.DeepEqual(got.MaintenanceSchedule[0], t2) {
		t.Fatalf("sibling changed: %+v want %+v", got.MaintenanceSchedule, t2)
	}
	removed, err = env.Engine.DeleteTask(env.Ctx, eq.ID, "missing")
	if err != nil || removed {
		t.Fatalf("unmatched delete should be a no-op: %v %v", removed, err)
	}
}

func TestTaskOperationsOnMissingIDs(t *testing.T) {
	env := newTestEnv(t)
	eq, err := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "P-01", Name: "Presse"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := env.Engine.ListEquipment(env.Ctx, engine.EquipmentFilter{})

	_, err = env.Engine.AddTask(env.Ctx, "nope", domain.MaintenanceTask{Title: "x", Date: "2024-04-02", Type: domain.Preventive})
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	title := "renamed"
	_, err = env.Engine.UpdateTask(env.Ctx, eq.ID, "nope", engine.TaskPatch{Title: &title})
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = env.Engine.SetTaskCompleted(env.Ctx, "nope", "nope", true)
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	after, _ := env.Engine.ListEquipment(env.Ctx, engine.EquipmentFilter{})
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("collection changed: %+v -> %+v", before, after)
	}
}

func TestUpdateTaskMergesPatch(t *testing.T) {
	env := newTestEnv(t)
	eq, _ := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "C-01", Name: "Compresseur"})
	task, err := env.Engine.AddTask(env.Ctx, eq.ID, domain.MaintenanceTask{Title: "Filtre", Description: "changer", Date: "2024-04-10", Type: domain.Preventive, CompetenceCodes: []string{"C2.1"}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	done, err := env.Engine.SetTaskCompleted(env.Ctx, eq.ID, task.ID, true)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed || done.Title != "Filtre" || done.Description != "changer" || !reflect.DeepEqual(done.CompetenceCodes, []string{"C2.1"}) {
		t.Fatalf("patch lost fields: %+v", done)
	}
	bad := "2024-13-45"
	if _, err := env.Engine.UpdateTask(env.Ctx, eq.ID, task.ID, engine.TaskPatch{Date: &bad}); !isValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := env.Engine.GetEquipment(env.Ctx, eq.ID)
	if got.MaintenanceSchedule[0].Date != "2024-04-10" {
		t.Fatalf("rejected patch applied: %+v", got.MaintenanceSchedule[0])
	}
}

func TestCreateEquipmentValidation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "A-01", Name: "Perceuse"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	cases := map[string]domain.Equipment{
		"duplicate tag":  {Tag: "A-01", Name: "Autre"},
		"bad status":     {Tag: "A-03", Name: "Scie", Status: "broken"},
		"bad level":      {Tag: "A-04", Name: "Scie", TrainingLevel: "BTS"},
		"bad task date":  {Tag: "A-05", Name: "Scie", MaintenanceSchedule: []domain.MaintenanceTask{{Title: "x", Date: "demain", Type: domain.Preventive}}},
		"bad task type":  {Tag: "A-06", Name: "Scie", MaintenanceSchedule: []domain.MaintenanceTask{{Title: "x", Date: "2024-04-02", Type: "urgent"}}},
		"unknown code":   {Tag: "A-07", Name: "Scie", MaintenanceSchedule: []domain.MaintenanceTask{{Title: "x", Date: "2024-04-02", Type: domain.Preventive, CompetenceCodes: []string{"C9.9"}}}},
		"duplicate task": {Tag: "A-08", Name: "Scie", MaintenanceSchedule: []domain.MaintenanceTask{{ID: "t", Title: "x", Date: "2024-04-02", Type: domain.Preventive}, {ID: "t", Title: "y", Date: "2024-04-03", Type: domain.Preventive}}},
	}
	for name, eq := range cases {
		if _, err := env.Engine.CreateEquipment(env.Ctx, eq); !isValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	list, _ := env.Engine.ListEquipment(env.Ctx, engine.EquipmentFilter{})
	if len(list) != 1 {
		t.Fatalf("rejected records were stored: %+v", list)
	}
}

func TestEquipmentWithoutTagOrName(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 2; i++ {
		if _, err := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Status: domain.EquipmentOperational}); err != nil {
			t.Fatalf("create untagged %d: %v", i, err)
		}
	}
	eq, err := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "B-01"})
	if err != nil {
		t.Fatalf("create tagged: %v", err)
	}
	if _, err := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "B-01"}); !isValidation(err) {
		t.Fatalf("expected duplicate tag rejection, got %v", err)
	}
	if _, err := env.Engine.AddTask(env.Ctx, eq.ID, domain.MaintenanceTask{Date: "2024-04-09", Type: domain.Corrective}); err != nil {
		t.Fatalf("untitled task: %v", err)
	}
	list, _ := env.Engine.ListEquipment(env.Ctx, engine.EquipmentFilter{})
	if len(list) != 3 {
		t.Fatalf("expected 3 equipment, got %d", len(list))
	}
}

func TestUnknownCompetenceAllowedWhenValidationOff(t *testing.T) {
	cfg := config.Default("atelier-test")
	off := false
	cfg.Tasks.ValidateCompetences = &off
	env := newTestEnvWithConfig(t, cfg)
	eq, _ := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "B-01", Name: "Banc"})
	if _, err := env.Engine.AddTask(env.Ctx, eq.ID, domain.MaintenanceTask{Title: "x", Date: "2024-04-02", Type: domain.Preventive, CompetenceCodes: []string{"X1"}}); err != nil {
		t.Fatalf("expected free-form codes to be accepted: %v", err)
	}
}

func TestUpdateAndPatchEquipment(t *testing.T) {
	env := newTestEnv(t)
	a, _ := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "A", Name: "Alpha", Location: "Atelier A",
		MaintenanceSchedule: []domain.MaintenanceTask{{Title: "x", Date: "2024-04-02", Type: domain.Preventive}}})
	b, _ := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "B", Name: "Beta"})

	a.Name = "Alpha 2"
	a.MaintenanceSchedule = nil
	updated, err := env.Engine.UpdateEquipment(env.Ctx, a)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Alpha 2" || len(updated.MaintenanceSchedule) != 1 {
		t.Fatalf("schedule not kept: %+v", updated)
	}
	if _, err := env.Engine.UpdateEquipment(env.Ctx, domain.Equipment{ID: "ghost", Tag: "G", Name: "G"}); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	tag := "A"
	if _, err := env.Engine.PatchEquipment(env.Ctx, b.ID, engine.EquipmentPatch{Tag: &tag}); !isValidation(err) {
		t.Fatalf("expected duplicate tag error, got %v", err)
	}
	status := domain.EquipmentFaulty
	patched, err := env.Engine.PatchEquipment(env.Ctx, b.ID, engine.EquipmentPatch{Status: &status})
	if err != nil || patched.Status != domain.EquipmentFaulty || patched.Name != "Beta" {
		t.Fatalf("patch: %+v %v", patched, err)
	}
	stats, err := env.Engine.EquipmentStats(env.Ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[domain.EquipmentOperational] != 1 || stats[domain.EquipmentFaulty] != 1 || stats[domain.EquipmentMaintenance] != 0 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestListEquipmentFilters(t *testing.T) {
	env := newTestEnv(t)
	seed := []domain.Equipment{
		{Tag: "FR-01", Name: "Fraiseuse", Location: "Atelier A", TrainingLevel: domain.Level2PMIA},
		{Tag: "TR-01", Name: "Tour parallele", Location: "Atelier B", Status: domain.EquipmentFaulty, TrainingLevel: domain.Level1MSPC},
		{Tag: "FR-02", Name: "Fraiseuse CN", Location: "Atelier B", Status: domain.EquipmentMaintenance, TrainingLevel: domain.Level2PMIA},
	}
	for _, eq := range seed {
		if _, err := env.Engine.CreateEquipment(env.Ctx, eq); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	cases := []struct {
		name   string
		filter engine.EquipmentFilter
		tags   []string
	}{
		{"all", engine.EquipmentFilter{}, []string{"FR-01", "TR-01", "FR-02"}},
		{"text on name", engine.EquipmentFilter{Text: "fraiseuse"}, []string{"FR-01", "FR-02"}},
		{"text on tag", engine.EquipmentFilter{Text: "tr-"}, []string{"TR-01"}},
		{"location", engine.EquipmentFilter{Location: "Atelier B"}, []string{"TR-01", "FR-02"}},
		{"conjunctive", engine.EquipmentFilter{Text: "FR", Location: "Atelier B"}, []string{"FR-02"}},
		{"status", engine.EquipmentFilter{Status: domain.EquipmentOperational}, []string{"FR-01"}},
		{"level", engine.EquipmentFilter{TrainingLevel: domain.Level2PMIA}, []string{"FR-01", "FR-02"}},
		{"no match", engine.EquipmentFilter{Text: "presse"}, []string{}},
	}
	for _, tc := range cases {
		list, err := env.Engine.ListEquipment(env.Ctx, tc.filter)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		tags := []string{}
		for _, eq := range list {
			tags = append(tags, eq.Tag)
		}
		if !reflect.DeepEqual(tags, tc.tags) {
			t.Fatalf("%s: got %v want %v", tc.name, tags, tc.tags)
		}
	}
}

func TestListEquipmentRejectsUnknownFilterValues(t *testing.T) {
	env := newTestEnv(t)
	for name, f := range map[string]engine.EquipmentFilter{
		"status": {Status: "broken"},
		"level":  {TrainingLevel: "BTS"},
	} {
		if _, err := env.Engine.ListEquipment(env.Ctx, f); !isValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	env := newTestEnv(t)
	eq, _ := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "X", Name: "X",
		MaintenanceSchedule: []domain.MaintenanceTask{{Title: "x", Date: "2024-04-02", Type: domain.Preventive, CompetenceCodes: []string{"C1.1"}}}})
	eq.MaintenanceSchedule[0].CompetenceCodes[0] = "mutated"
	eq.Name = "mutated"
	got, _ := env.Engine.GetEquipment(env.Ctx, eq.ID)
	if got.Name != "X" || got.MaintenanceSchedule[0].CompetenceCodes[0] != "C1.1" {
		t.Fatalf("internal state leaked: %+v", got)
	}
}

func TestEquipmentEventsAreRecorded(t *testing.T) {
	env := newTestEnv(t)
	eq, _ := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{Tag: "E", Name: "E"})
	task, _ := env.Engine.AddTask(env.Ctx, eq.ID, domain.MaintenanceTask{Title: "x", Date: "2024-04-02", Type: domain.Preventive})
	if _, err := env.Engine.DeleteTask(env.Ctx, eq.ID, task.ID); err != nil {
		t.Fatal(err)
	}
	evts, err := env.Events.After(env.Ctx, 0, 10)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	want := []string{"equipment.created", "task.added", "task.deleted"}
	if len(evts) != len(want) {
		t.Fatalf("unexpected events %+v", evts)
	}
	for i, evt := range evts {
		if evt.Type != want[i] {
			t.Fatalf("event %d = %s want %s", i, evt.Type, want[i])
		}
		if evt.TS != env.Clock.Format(time.RFC3339) {
			t.Fatalf("event ts %s", evt.TS)
		}
	}
}
