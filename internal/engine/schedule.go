package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gmao/internal/domain"
	"gmao/internal/events"
	"gmao/internal/repo"
)

// TaskPatch merges the non-nil fields into a task. A nil CompetenceCodes
// keeps the current codes.
type TaskPatch struct {
	Title           *string
	Description     *string
	Date            *string
	Type            *domain.MaintenanceType
	Completed       *bool
	TrainingLevel   *domain.TrainingLevel
	CompetenceCodes []string
}

type TaskFilter struct {
	EquipmentID   string
	TrainingLevel domain.TrainingLevel
	Type          domain.MaintenanceType
	Completed     *bool
}

type CalendarMonth struct {
	Year  int                            `json:"year"`
	Month time.Month                     `json:"month"`
	Days  map[int][]domain.ScheduledTask `json:"days"`
}

// AddTask appends task to the schedule of the equipment.
func (e *Engine) AddTask(ctx context.Context, equipmentID string, task domain.MaintenanceTask) (domain.MaintenanceTask, error) {
	if err := e.lock(ctx); err != nil {
		return domain.MaintenanceTask{}, err
	}
	defer e.mu.Unlock()

	idx := e.equipmentIndex(equipmentID)
	if idx < 0 {
		return domain.MaintenanceTask{}, notFound("equipment", equipmentID)
	}
	task = cloneTask(task)
	if err := e.prepareTask(&task); err != nil {
		return domain.MaintenanceTask{}, err
	}
	if taskIndex(e.equipment[idx], task.ID) >= 0 {
		return domain.MaintenanceTask{}, invalid("id", "task %s already exists on equipment %s", task.ID, equipmentID)
	}
	e.equipment[idx].MaintenanceSchedule = append(e.equipment[idx].MaintenanceSchedule, task)
	if err := save(ctx, e, repo.KeyEquipment, "add_task", task.ID, e.equipment); err != nil {
		return cloneTask(task), err
	}
	e.emit(ctx, events.TaskAdded, "task", task.ID, events.EventPayload{"equipment_id": equipmentID, "date": task.Date, "type": task.Type})
	return cloneTask(task), nil
}

func (e *Engine) UpdateTask(ctx context.Context, equipmentID, taskID string, patch TaskPatch) (domain.MaintenanceTask, error) {
	if err := e.lock(ctx); err != nil {
		return domain.MaintenanceTask{}, err
	}
	defer e.mu.Unlock()

	idx := e.equipmentIndex(equipmentID)
	if idx < 0 {
		return domain.MaintenanceTask{}, notFound("equipment", equipmentID)
	}
	ti := taskIndex(e.equipment[idx], taskID)
	if ti < 0 {
		return domain.MaintenanceTask{}, notFound("task", taskID)
	}
	task := cloneTask(e.equipment[idx].MaintenanceSchedule[ti])
	prevCompleted := task.Completed
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Date != nil {
		task.Date = *patch.Date
	}
	if patch.Type != nil {
		task.Type = *patch.Type
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.TrainingLevel != nil {
		task.TrainingLevel = *patch.TrainingLevel
	}
	if patch.CompetenceCodes != nil {
		task.CompetenceCodes = cloneStrings(patch.CompetenceCodes)
	}
	if err := e.prepareTask(&task); err != nil {
		return domain.MaintenanceTask{}, err
	}
	e.equipment[idx].MaintenanceSchedule[ti] = task
	if err := save(ctx, e, repo.KeyEquipment, "update_task", taskID, e.equipment); err != nil {
		return cloneTask(task), err
	}
	e.emit(ctx, events.TaskUpdated, "task", taskID, events.EventPayload{
		"equipment_id":   equipmentID,
		"from_completed": prevCompleted,
		"to_completed":   task.Completed,
	})
	return cloneTask(task), nil
}

func (e *Engine) SetTaskCompleted(ctx context.Context, equipmentID, taskID string, completed bool) (domain.MaintenanceTask, error) {
	return e.UpdateTask(ctx, equipmentID, taskID, TaskPatch{Completed: &completed})
}

// DeleteTask removes exactly one task and reports whether it existed.
// Sibling tasks are untouched.
func (e *Engine) DeleteTask(ctx context.Context, equipmentID, taskID string) (bool, error) {
	if err := e.lock(ctx); err != nil {
		return false, err
	}
	defer e.mu.Unlock()

	idx := e.equipmentIndex(equipmentID)
	if idx < 0 {
		return false, nil
	}
	ti := taskIndex(e.equipment[idx], taskID)
	if ti < 0 {
		return false, nil
	}
	schedule := e.equipment[idx].MaintenanceSchedule
	e.equipment[idx].MaintenanceSchedule = append(schedule[:ti:ti], schedule[ti+1:]...)
	if err := save(ctx, e, repo.KeyEquipment, "delete_task", taskID, e.equipment); err != nil {
		return true, err
	}
	e.emit(ctx, events.TaskDeleted, "task", taskID, events.EventPayload{"equipment_id": equipmentID})
	return true, nil
}

// AggregateTasks flattens every schedule into one sequence, equipment order
// then schedule order. A task belongs to a training level when its own level
// matches, or when it has none and its equipment's level matches.
func (e *Engine) AggregateTasks(ctx context.Context, f TaskFilter) ([]domain.ScheduledTask, error) {
	if err := e.lock(ctx); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	return e.aggregate(f), nil
}

func (f TaskFilter) check() error {
	if f.TrainingLevel != "" && !f.TrainingLevel.Valid() {
		return invalid("trainingLevel", "unknown training level %q", f.TrainingLevel)
	}
	if f.Type != "" && !f.Type.Valid() {
		return invalid("type", "unknown maintenance type %q", f.Type)
	}
	return nil
}

func (e *Engine) aggregate(f TaskFilter) []domain.ScheduledTask {
	out := []domain.ScheduledTask{}
	for _, eq := range e.equipment {
		if f.EquipmentID != "" && eq.ID != f.EquipmentID {
			continue
		}
		for _, t := range eq.MaintenanceSchedule {
			if f.TrainingLevel != "" && effectiveLevel(eq, t) != f.TrainingLevel {
				continue
			}
			if f.Type != "" && t.Type != f.Type {
				continue
			}
			if f.Completed != nil && t.Completed != *f.Completed {
				continue
			}
			out = append(out, domain.ScheduledTask{
				MaintenanceTask: cloneTask(t),
				EquipmentID:     eq.ID,
				EquipmentName:   eq.Name,
			})
		}
	}
	return out
}

// Calendar buckets the matching tasks of one month by day of month. Dates
// are civil dates, compared without any timezone conversion.
func (e *Engine) Calendar(ctx context.Context, year int, month time.Month, f TaskFilter) (CalendarMonth, error) {
	if month < time.January || month > time.December {
		return CalendarMonth{}, invalid("month", "must be between 1 and 12 (got %d)", int(month))
	}
	tasks, err := e.AggregateTasks(ctx, f)
	if err != nil {
		return CalendarMonth{}, err
	}
	cal := CalendarMonth{Year: year, Month: month, Days: map[int][]domain.ScheduledTask{}}
	for _, t := range tasks {
		d, err := parseCivilDate(t.Date)
		if err != nil {
			continue
		}
		if d.Year() != year || d.Month() != month {
			continue
		}
		cal.Days[d.Day()] = append(cal.Days[d.Day()], t)
	}
	return cal, nil
}

// UpcomingTasks returns incomplete tasks dated within days civil days
// starting at from, earliest first.
func (e *Engine) UpcomingTasks(ctx context.Context, from time.Time, days int) ([]domain.ScheduledTask, error) {
	if days <= 0 {
		return nil, invalid("days", "must be positive (got %d)", days)
	}
	incomplete := false
	tasks, err := e.AggregateTasks(ctx, TaskFilter{Completed: &incomplete})
	if err != nil {
		return nil, err
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, days)
	type dated struct {
		task domain.ScheduledTask
		at   time.Time
	}
	var window []dated
	for _, t := range tasks {
		d, err := parseCivilDate(t.Date)
		if err != nil {
			continue
		}
		if d.Before(start) || !d.Before(end) {
			continue
		}
		window = append(window, dated{task: t, at: d})
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].at.Before(window[j].at) })
	out := make([]domain.ScheduledTask, 0, len(window))
	for _, w := range window {
		out = append(out, w.task)
	}
	return out, nil
}

func effectiveLevel(eq domain.Equipment, t domain.MaintenanceTask) domain.TrainingLevel {
	if t.TrainingLevel != "" {
		return t.TrainingLevel
	}
	return eq.TrainingLevel
}

func taskIndex(eq domain.Equipment, taskID string) int {
	for i, t := range eq.MaintenanceSchedule {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

// parseCivilDate reads the calendar date written at the start of s, so both
// "2024-04-02" and "2024-04-02T23:30:00+02:00" give April 2nd.
func parseCivilDate(s string) (time.Time, error) {
	if len(s) < len("2006-01-02") {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	d, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if len(s) > 10 {
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
	}
	return d, nil
}
