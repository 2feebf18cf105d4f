package engine_test

import (
	"testing"
	"time"

	"gmao/internal/domain"
	"gmao/internal/engine"
)

func seedSchedule(t *testing.T, env testEnv) {
	t.Helper()
	_, err := env.Engine.CreateEquipment(env.Ctx, domain.Equipment{
		ID: "eq1", Tag: "FR-01", Name: "Fraiseuse", TrainingLevel: domain.Level2PMIA,
		MaintenanceSchedule: []domain.MaintenanceTask{
			{ID: "a", Title: "Graissage", Date: "2024-04-02", Type: domain.Preventive},
			{ID: "b", Title: "Broche", Date: "2024-04-02T23:30:00+02:00", Type: domain.Corrective, TrainingLevel: domain.LevelTMSPC},
			{ID: "c", Title: "Carter", Date: "2024-05-01", Type: domain.Improvement, Completed: true},
		},
	})
	if err != nil {
		t.Fatalf("seed eq1: %v", err)
	}
	_, err = env.Engine.CreateEquipment(env.Ctx, domain.Equipment{
		ID: "eq2", Tag: "TR-01", Name: "Tour", TrainingLevel: domain.Level1MSPC,
		MaintenanceSchedule: []domain.MaintenanceTask{
			{ID: "d", Title: "Vidange", Date: "2024-04-30", Type: domain.Preventive},
			{ID: "e", Title: "Rail", Date: "2024-04-05", Type: domain.Preventive, TrainingLevel: domain.Level2PMIA},
		},
	})
	if err != nil {
		t.Fatalf("seed eq2: %v", err)
	}
}

func taskIDs(tasks []domain.ScheduledTask) []string {
	ids := []string{}
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAggregateTasksFilters(t *testing.T) {
	env := newTestEnv(t)
	seedSchedule(t, env)
	done, open := true, false
	cases := []struct {
		name   string
		filter engine.TaskFilter
		want   []string
	}{
		{"all in equipment then schedule order", engine.TaskFilter{}, []string{"a", "b", "c", "d", "e"}},
		{"level inherited from equipment", engine.TaskFilter{TrainingLevel: domain.Level2PMIA}, []string{"a", "c", "e"}},
		{"own level wins", engine.TaskFilter{TrainingLevel: domain.LevelTMSPC}, []string{"b"}},
		{"type", engine.TaskFilter{Type: domain.Preventive}, []string{"a", "d", "e"}},
		{"completed", engine.TaskFilter{Completed: &done}, []string{"c"}},
		{"open and level", engine.TaskFilter{Completed: &open, TrainingLevel: domain.Level1MSPC}, []string{"d"}},
		{"equipment", engine.TaskFilter{EquipmentID: "eq2"}, []string{"d", "e"}},
	}
	for _, tc := range cases {
		got, err := env.Engine.AggregateTasks(env.Ctx, tc.filter)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if ids := taskIDs(got); !equalIDs(ids, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, ids, tc.want)
		}
	}
}

func TestTaskFiltersRejectUnknownValues(t *testing.T) {
	env := newTestEnv(t)
	seedSchedule(t, env)
	for name, f := range map[string]engine.TaskFilter{
		"level": {TrainingLevel: "BTS"},
		"type":  {Type: "urgent"},
	} {
		if _, err := env.Engine.AggregateTasks(env.Ctx, f); !isValidation(err) {
			t.Fatalf("aggregate %s: expected validation error, got %v", name, err)
		}
		if _, err := env.Engine.Calendar(env.Ctx, 2024, time.April, f); !isValidation(err) {
			t.Fatalf("calendar %s: expected validation error, got %v", name, err)
		}
	}
}

func TestCalendarBucketsByCivilDay(t *testing.T) {
	env := newTestEnv(t)
	seedSchedule(t, env)
	cal, err := env.Engine.Calendar(env.Ctx, 2024, time.April, engine.TaskFilter{})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if cal.Year != 2024 || cal.Month != time.April {
		t.Fatalf("unexpected header %d-%d", cal.Year, cal.Month)
	}
	if ids := taskIDs(cal.Days[2]); !equalIDs(ids, []string{"a", "b"}) {
		t.Fatalf("day 2: %v", ids)
	}
	if ids := taskIDs(cal.Days[5]); !equalIDs(ids, []string{"e"}) {
		t.Fatalf("day 5: %v", ids)
	}
	if ids := taskIDs(cal.Days[30]); !equalIDs(ids, []string{"d"}) {
		t.Fatalf("day 30: %v", ids)
	}
	if len(cal.Days) != 3 {
		t.Fatalf("unexpected buckets %v", cal.Days)
	}
	if cal.Days[2][0].EquipmentName != "Fraiseuse" {
		t.Fatalf("missing equipment annotation: %+v", cal.Days[2][0])
	}

	may, err := env.Engine.Calendar(env.Ctx, 2024, time.May, engine.TaskFilter{TrainingLevel: domain.Level1MSPC})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if len(may.Days) != 0 {
		t.Fatalf("expected empty may for 1MSPC, got %v", may.Days)
	}
	if _, err := env.Engine.Calendar(env.Ctx, 2024, 13, engine.TaskFilter{}); !isValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpcomingTasks(t *testing.T) {
	env := newTestEnv(t)
	seedSchedule(t, env)
	from := time.Date(2024, 4, 2, 15, 0, 0, 0, time.UTC)
	got, err := env.Engine.UpcomingTasks(env.Ctx, from, 4)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if ids := taskIDs(got); !equalIDs(ids, []string{"a", "b", "e"}) {
		t.Fatalf("got %v", ids)
	}
	got, err = env.Engine.UpcomingTasks(env.Ctx, from, 3)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if ids := taskIDs(got); !equalIDs(ids, []string{"a", "b"}) {
		t.Fatalf("window end should be exclusive, got %v", ids)
	}
	got, err = env.Engine.UpcomingTasks(env.Ctx, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), 30)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if ids := taskIDs(got); !equalIDs(ids, []string{"d"}) {
		t.Fatalf("completed tasks must be skipped, got %v", ids)
	}
	if _, err := env.Engine.UpcomingTasks(env.Ctx, from, 0); !isValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
