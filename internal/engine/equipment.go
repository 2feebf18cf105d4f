package engine

import (
	"context"
	"strings"

	"gmao/internal/competency"
	"gmao/internal/domain"
	"gmao/internal/events"
	"gmao/internal/repo"
)

type EquipmentFilter struct {
	Text          string
	Location      string
	Status        domain.EquipmentStatus
	TrainingLevel domain.TrainingLevel
}

func (f EquipmentFilter) check() error {
	if f.Status != "" && !f.Status.Valid() {
		return invalid("status", "unknown equipment status %q", f.Status)
	}
	if f.TrainingLevel != "" && !f.TrainingLevel.Valid() {
		return invalid("trainingLevel", "unknown training level %q", f.TrainingLevel)
	}
	return nil
}

// EquipmentPatch updates the non-nil fields only.
type EquipmentPatch struct {
	Tag           *string
	Name          *string
	Location      *string
	Status        *domain.EquipmentStatus
	TrainingLevel *domain.TrainingLevel
}

func (e *Engine) CreateEquipment(ctx context.Context, eq domain.Equipment) (domain.Equipment, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Equipment{}, err
	}
	defer e.mu.Unlock()

	eq = cloneEquipment(eq)
	if eq.ID == "" {
		eq.ID = e.newID()
	}
	if eq.Status == "" {
		eq.Status = domain.EquipmentOperational
	}
	if eq.MaintenanceSchedule == nil {
		eq.MaintenanceSchedule = []domain.MaintenanceTask{}
	}
	if err := e.checkEquipment(eq, -1); err != nil {
		return domain.Equipment{}, err
	}
	if err := e.prepareSchedule(eq.MaintenanceSchedule); err != nil {
		return domain.Equipment{}, err
	}
	for _, existing := range e.equipment {
		if existing.ID == eq.ID {
			return domain.Equipment{}, invalid("id", "equipment %s already exists", eq.ID)
		}
	}

	e.equipment = append(e.equipment, eq)
	if err := save(ctx, e, repo.KeyEquipment, "create", eq.ID, e.equipment); err != nil {
		return cloneEquipment(eq), err
	}
	e.emit(ctx, events.EquipmentCreated, "equipment", eq.ID, events.EventPayload{"tag": eq.Tag, "status": eq.Status})
	return cloneEquipment(eq), nil
}

func (e *Engine) GetEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Equipment{}, err
	}
	defer e.mu.Unlock()
	idx := e.equipmentIndex(id)
	if idx < 0 {
		return domain.Equipment{}, notFound("equipment", id)
	}
	return cloneEquipment(e.equipment[idx]), nil
}

// UpdateEquipment overwrites the record with the same ID. A nil schedule
// keeps the stored one.
func (e *Engine) UpdateEquipment(ctx context.Context, eq domain.Equipment) (domain.Equipment, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Equipment{}, err
	}
	defer e.mu.Unlock()

	idx := e.equipmentIndex(eq.ID)
	if idx < 0 {
		return domain.Equipment{}, notFound("equipment", eq.ID)
	}
	eq = cloneEquipment(eq)
	if eq.MaintenanceSchedule == nil {
		eq.MaintenanceSchedule = cloneEquipment(e.equipment[idx]).MaintenanceSchedule
	} else if err := e.prepareSchedule(eq.MaintenanceSchedule); err != nil {
		return domain.Equipment{}, err
	}
	if eq.Status == "" {
		eq.Status = e.equipment[idx].Status
	}
	if err := e.checkEquipment(eq, idx); err != nil {
		return domain.Equipment{}, err
	}
	return e.replaceEquipment(ctx, idx, eq)
}

func (e *Engine) PatchEquipment(ctx context.Context, id string, patch EquipmentPatch) (domain.Equipment, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Equipment{}, err
	}
	defer e.mu.Unlock()

	idx := e.equipmentIndex(id)
	if idx < 0 {
		return domain.Equipment{}, notFound("equipment", id)
	}
	eq := cloneEquipment(e.equipment[idx])
	if patch.Tag != nil {
		eq.Tag = *patch.Tag
	}
	if patch.Name != nil {
		eq.Name = *patch.Name
	}
	if patch.Location != nil {
		eq.Location = *patch.Location
	}
	if patch.Status != nil {
		eq.Status = *patch.Status
	}
	if patch.TrainingLevel != nil {
		eq.TrainingLevel = *patch.TrainingLevel
	}
	if err := e.checkEquipment(eq, idx); err != nil {
		return domain.Equipment{}, err
	}
	return e.replaceEquipment(ctx, idx, eq)
}

func (e *Engine) replaceEquipment(ctx context.Context, idx int, eq domain.Equipment) (domain.Equipment, error) {
	prev := e.equipment[idx]
	e.equipment[idx] = eq
	if err := save(ctx, e, repo.KeyEquipment, "update", eq.ID, e.equipment); err != nil {
		return cloneEquipment(eq), err
	}
	e.emit(ctx, events.EquipmentUpdated, "equipment", eq.ID, events.EventPayload{
		"from_status": prev.Status,
		"to_status":   eq.Status,
	})
	return cloneEquipment(eq), nil
}

// DeleteEquipment removes the record together with its whole schedule and
// reports whether anything was removed.
func (e *Engine) DeleteEquipment(ctx context.Context, id string) (bool, error) {
	if err := e.lock(ctx); err != nil {
		return false, err
	}
	defer e.mu.Unlock()

	idx := e.equipmentIndex(id)
	if idx < 0 {
		return false, nil
	}
	removed := e.equipment[idx]
	e.equipment = append(e.equipment[:idx:idx], e.equipment[idx+1:]...)
	if err := save(ctx, e, repo.KeyEquipment, "delete", id, e.equipment); err != nil {
		return true, err
	}
	e.emit(ctx, events.EquipmentDeleted, "equipment", id, events.EventPayload{
		"tag":   removed.Tag,
		"tasks": len(removed.MaintenanceSchedule),
	})
	return true, nil
}

// ListEquipment returns records matching every set filter field, in
// registry order. Text matches name or tag, case-insensitively.
func (e *Engine) ListEquipment(ctx context.Context, f EquipmentFilter) ([]domain.Equipment, error) {
	if err := e.lock(ctx); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if err := f.check(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(f.Text)
	out := []domain.Equipment{}
	for _, eq := range e.equipment {
		if text != "" && !containsFold(eq.Name, text) && !containsFold(eq.Tag, text) {
			continue
		}
		if f.Location != "" && eq.Location != f.Location {
			continue
		}
		if f.Status != "" && eq.Status != f.Status {
			continue
		}
		if f.TrainingLevel != "" && eq.TrainingLevel != f.TrainingLevel {
			continue
		}
		out = append(out, cloneEquipment(eq))
	}
	return out, nil
}

// EquipmentStats counts equipment per status. Every status is present.
func (e *Engine) EquipmentStats(ctx context.Context) (map[domain.EquipmentStatus]int, error) {
	if err := e.lock(ctx); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	stats := map[domain.EquipmentStatus]int{
		domain.EquipmentOperational: 0,
		domain.EquipmentMaintenance: 0,
		domain.EquipmentFaulty:      0,
	}
	for _, eq := range e.equipment {
		stats[eq.Status]++
	}
	return stats, nil
}

func (e *Engine) equipmentIndex(id string) int {
	for i, eq := range e.equipment {
		if eq.ID == id {
			return i
		}
	}
	return -1
}

// checkEquipment validates eq against the registry, ignoring the record at
// self when it replaces an existing one.
func (e *Engine) checkEquipment(eq domain.Equipment, self int) error {
	if err := e.check(eq); err != nil {
		return err
	}
	if strings.TrimSpace(eq.Tag) == "" {
		return nil
	}
	for i, existing := range e.equipment {
		if i != self && existing.Tag == eq.Tag {
			return invalid("tag", "tag %s already used by equipment %s", eq.Tag, existing.ID)
		}
	}
	return nil
}

func (e *Engine) prepareSchedule(schedule []domain.MaintenanceTask) error {
	seen := map[string]bool{}
	for i := range schedule {
		if err := e.prepareTask(&schedule[i]); err != nil {
			return err
		}
		if seen[schedule[i].ID] {
			return invalid("maintenanceSchedule", "duplicate task id %s", schedule[i].ID)
		}
		seen[schedule[i].ID] = true
	}
	return nil
}

// prepareTask fills defaults and validates a task before it enters a schedule.
func (e *Engine) prepareTask(t *domain.MaintenanceTask) error {
	if t.ID == "" {
		t.ID = e.newID()
	}
	if t.CompetenceCodes == nil {
		t.CompetenceCodes = []string{}
	}
	if err := e.check(*t); err != nil {
		return err
	}
	if _, err := parseCivilDate(t.Date); err != nil {
		return &ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date", Err: err}
	}
	if e.Config.ValidateCompetences() {
		for _, code := range t.CompetenceCodes {
			if !competency.Known(code) {
				return invalid("competenceCodes", "unknown competence %s", code)
			}
		}
	}
	return nil
}

func cloneEquipment(eq domain.Equipment) domain.Equipment {
	if eq.MaintenanceSchedule != nil {
		schedule := make([]domain.MaintenanceTask, len(eq.MaintenanceSchedule))
		for i, t := range eq.MaintenanceSchedule {
			schedule[i] = cloneTask(t)
		}
		eq.MaintenanceSchedule = schedule
	}
	return eq
}

func cloneTask(t domain.MaintenanceTask) domain.MaintenanceTask {
	t.CompetenceCodes = cloneStrings(t.CompetenceCodes)
	return t
}
