package engine

import (
	"context"
	"strings"

	"gmao/internal/domain"
	"gmao/internal/events"
	"gmao/internal/repo"
)

// MissionDraft is the input of CreateMission. An empty Status starts the
// mission in to_assign.
type MissionDraft struct {
	Type          domain.MaintenanceType `json:"type" validate:"required,oneof=preventive corrective improvement"`
	Title         string                 `json:"title" validate:"required"`
	Description   string                 `json:"description"`
	EquipmentID   string                 `json:"equipmentId" validate:"required"`
	EquipmentName string                 `json:"equipmentName"`
	Status        domain.MissionStatus   `json:"status" validate:"omitempty,oneof=to_assign assigned in_progress to_validate completed cancelled"`
	Priority      domain.Priority        `json:"priority" validate:"required,oneof=low normal high"`
	AssignedTo    []string               `json:"assignedTo"`
	PlannedDate   string                 `json:"plannedDate"`
}

type MissionFilter struct {
	Text        string
	Type        domain.MaintenanceType
	Status      domain.MissionStatus
	EquipmentID string
	AssignedTo  string
}

func (f MissionFilter) check() error {
	if f.Type != "" && !f.Type.Valid() {
		return invalid("type", "unknown maintenance type %q", f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return invalid("status", "unknown mission status %q", f.Status)
	}
	return nil
}

// CanTransition reports whether the mission lifecycle allows from -> to.
// Staying in the same status is not a transition and is always allowed.
func CanTransition(from, to domain.MissionStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case domain.StatusToAssign:
		return to == domain.StatusAssigned || to == domain.StatusCancelled
	case domain.StatusAssigned:
		return to == domain.StatusInProgress || to == domain.StatusToAssign || to == domain.StatusCancelled
	case domain.StatusInProgress:
		return to == domain.StatusToValidate || to == domain.StatusCancelled
	case domain.StatusToValidate:
		return to == domain.StatusCompleted || to == domain.StatusInProgress || to == domain.StatusCancelled
	}
	return false
}

// EnsureTransition returns a *TransitionError when from -> to is not
// allowed. Permissive mode accepts any pair of valid statuses.
func EnsureTransition(from, to domain.MissionStatus, permissive bool) error {
	if permissive || CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}

func (e *Engine) CreateMission(ctx context.Context, draft MissionDraft) (domain.Mission, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Mission{}, err
	}
	defer e.mu.Unlock()

	draft.Title = strings.TrimSpace(draft.Title)
	draft.EquipmentID = strings.TrimSpace(draft.EquipmentID)
	if err := e.check(draft); err != nil {
		return domain.Mission{}, err
	}

	now := e.now().UTC()
	m := domain.Mission{
		ID:            e.newID(),
		Type:          draft.Type,
		Title:         draft.Title,
		Description:   draft.Description,
		EquipmentID:   draft.EquipmentID,
		EquipmentName: draft.EquipmentName,
		Status:        draft.Status,
		Priority:      draft.Priority,
		AssignedTo:    cloneStrings(draft.AssignedTo),
		PlannedDate:   draft.PlannedDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if m.Status == "" {
		m.Status = domain.StatusToAssign
	}
	if err := e.checkPlannedDate(m.PlannedDate); err != nil {
		return domain.Mission{}, err
	}
	e.fillEquipmentName(&m)

	e.missions = append(e.missions, m)
	if err := save(ctx, e, repo.KeyMissions, "create", m.ID, e.missions); err != nil {
		return cloneMission(m), err
	}
	e.emit(ctx, events.MissionCreated, "mission", m.ID, events.EventPayload{
		"title":        m.Title,
		"status":       m.Status,
		"equipment_id": m.EquipmentID,
	})
	return cloneMission(m), nil
}

func (e *Engine) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Mission{}, err
	}
	defer e.mu.Unlock()
	idx := e.missionIndex(id)
	if idx < 0 {
		return domain.Mission{}, notFound("mission", id)
	}
	return cloneMission(e.missions[idx]), nil
}

// UpdateMission replaces the mutable fields of the stored mission. ID and
// CreatedAt are kept; UpdatedAt never moves backwards.
func (e *Engine) UpdateMission(ctx context.Context, m domain.Mission) (domain.Mission, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Mission{}, err
	}
	defer e.mu.Unlock()
	return e.updateMission(ctx, m)
}

func (e *Engine) SetMissionStatus(ctx context.Context, id string, status domain.MissionStatus) (domain.Mission, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Mission{}, err
	}
	defer e.mu.Unlock()
	idx := e.missionIndex(id)
	if idx < 0 {
		return domain.Mission{}, notFound("mission", id)
	}
	m := cloneMission(e.missions[idx])
	m.Status = status
	return e.updateMission(ctx, m)
}

func (e *Engine) updateMission(ctx context.Context, m domain.Mission) (domain.Mission, error) {
	idx := e.missionIndex(m.ID)
	if idx < 0 {
		return domain.Mission{}, notFound("mission", m.ID)
	}
	prev := e.missions[idx]
	m = cloneMission(m)
	m.Title = strings.TrimSpace(m.Title)
	m.CreatedAt = prev.CreatedAt
	if err := e.check(m); err != nil {
		return domain.Mission{}, err
	}
	if err := e.checkPlannedDate(m.PlannedDate); err != nil {
		return domain.Mission{}, err
	}
	if err := EnsureTransition(prev.Status, m.Status, e.permissive()); err != nil {
		return domain.Mission{}, err
	}
	now := e.now().UTC()
	if now.Before(prev.UpdatedAt) {
		now = prev.UpdatedAt
	}
	m.UpdatedAt = now
	e.fillEquipmentName(&m)

	e.missions[idx] = m
	if err := save(ctx, e, repo.KeyMissions, "update", m.ID, e.missions); err != nil {
		return cloneMission(m), err
	}
	e.emit(ctx, events.MissionUpdated, "mission", m.ID, events.EventPayload{
		"from_status": prev.Status,
		"to_status":   m.Status,
	})
	return cloneMission(m), nil
}

// DeleteMission reports whether a mission was removed.
func (e *Engine) DeleteMission(ctx context.Context, id string) (bool, error) {
	if err := e.lock(ctx); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	idx := e.missionIndex(id)
	if idx < 0 {
		return false, nil
	}
	removed := e.missions[idx]
	e.missions = append(e.missions[:idx:idx], e.missions[idx+1:]...)
	if err := save(ctx, e, repo.KeyMissions, "delete", id, e.missions); err != nil {
		return true, err
	}
	e.emit(ctx, events.MissionDeleted, "mission", id, events.EventPayload{"status": removed.Status})
	return true, nil
}

// ListMissions returns missions matching every set filter field in store
// order. Text matches title, description or equipment name.
func (e *Engine) ListMissions(ctx context.Context, f MissionFilter) ([]domain.Mission, error) {
	if err := e.lock(ctx); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if err := f.check(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(f.Text)
	out := []domain.Mission{}
	for _, m := range e.missions {
		if text != "" && !containsFold(m.Title, text) && !containsFold(m.Description, text) && !containsFold(m.EquipmentName, text) {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.EquipmentID != "" && m.EquipmentID != f.EquipmentID {
			continue
		}
		if f.AssignedTo != "" && !contains(m.AssignedTo, f.AssignedTo) {
			continue
		}
		out = append(out, cloneMission(m))
	}
	return out, nil
}

// MissionStats counts missions per status. Every status is present.
func (e *Engine) MissionStats(ctx context.Context) (map[domain.MissionStatus]int, error) {
	if err := e.lock(ctx); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	stats := make(map[domain.MissionStatus]int, len(domain.MissionStatuses))
	for _, s := range domain.MissionStatuses {
		stats[s] = 0
	}
	for _, m := range e.missions {
		stats[m.Status]++
	}
	return stats, nil
}

func (e *Engine) missionIndex(id string) int {
	for i, m := range e.missions {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) fillEquipmentName(m *domain.Mission) {
	if m.EquipmentName != "" {
		return
	}
	if idx := e.equipmentIndex(m.EquipmentID); idx >= 0 {
		m.EquipmentName = e.equipment[idx].Name
	}
}

func (e *Engine) checkPlannedDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := parseCivilDate(date); err != nil {
		return &ValidationError{Field: "plannedDate", Reason: "must be a YYYY-MM-DD date", Err: err}
	}
	return nil
}

func cloneMission(m domain.Mission) domain.Mission {
	m.AssignedTo = cloneStrings(m.AssignedTo)
	return m
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
