package server

import (
	"time"

	"gmao/internal/domain"
	"gmao/internal/engine"
)

// Request payloads

type TaskRequest struct {
	ID              string   `json:"id,omitempty"`
	Title           string   `json:"title,omitempty"`
	Description     string   `json:"description,omitempty"`
	Date            string   `json:"date" example:"2024-04-02"`
	Type            string   `json:"type" enum:"preventive,corrective,improvement"`
	Completed       bool     `json:"completed,omitempty"`
	TrainingLevel   string   `json:"trainingLevel,omitempty" enum:"2PMIA,1MSPC,TMSPC"`
	CompetenceCodes []string `json:"competenceCodes,omitempty"`
}

type EquipmentRequest struct {
	ID                  string        `json:"id,omitempty"`
	Tag                 string        `json:"tag,omitempty"`
	Name                string        `json:"name,omitempty"`
	Location            string        `json:"location,omitempty"`
	Status              string        `json:"status,omitempty" enum:"operational,maintenance,faulty"`
	TrainingLevel       string        `json:"trainingLevel,omitempty" enum:"2PMIA,1MSPC,TMSPC"`
	MaintenanceSchedule []TaskRequest `json:"maintenanceSchedule,omitempty"`
}

type EquipmentPatchRequest struct {
	Tag           *string `json:"tag,omitempty"`
	Name          *string `json:"name,omitempty"`
	Location      *string `json:"location,omitempty"`
	Status        *string `json:"status,omitempty" enum:"operational,maintenance,faulty"`
	TrainingLevel *string `json:"trainingLevel,omitempty" enum:"2PMIA,1MSPC,TMSPC"`
}

type TaskPatchRequest struct {
	Title           *string  `json:"title,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Date            *string  `json:"date,omitempty"`
	Type            *string  `json:"type,omitempty" enum:"preventive,corrective,improvement"`
	Completed       *bool    `json:"completed,omitempty"`
	TrainingLevel   *string  `json:"trainingLevel,omitempty" enum:"2PMIA,1MSPC,TMSPC"`
	CompetenceCodes []string `json:"competenceCodes,omitempty"`
}

type MissionRequest struct {
	Type          string   `json:"type" enum:"preventive,corrective,improvement"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	EquipmentID   string   `json:"equipmentId"`
	EquipmentName string   `json:"equipmentName,omitempty"`
	Status        string   `json:"status,omitempty" enum:"to_assign,assigned,in_progress,to_validate,completed,cancelled"`
	Priority      string   `json:"priority" enum:"low,normal,high"`
	AssignedTo    []string `json:"assignedTo,omitempty"`
	PlannedDate   string   `json:"plannedDate,omitempty"`
}

type MissionStatusRequest struct {
	Status string `json:"status" enum:"to_assign,assigned,in_progress,to_validate,completed,cancelled"`
}

type StudentRequest struct {
	ID            string `json:"id,omitempty"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	TrainingLevel string `json:"trainingLevel" enum:"2PMIA,1MSPC,TMSPC"`
}

type AcquisitionRequest struct {
	AcquisitionLevel string   `json:"acquisitionLevel" enum:"discovery,application,mastery"`
	ValidationDate   string   `json:"validationDate,omitempty"`
	Context          string   `json:"context,omitempty"`
	ValidatedBy      string   `json:"validatedBy,omitempty"`
	RelatedMissions  []string `json:"relatedMissions,omitempty"`
}

// Responses

type HealthResponse struct {
	Status   string `json:"status"`
	Workshop string `json:"workshop"`
}

type StatsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

type CalendarResponse struct {
	Year  int                               `json:"year"`
	Month int                               `json:"month"`
	Days  map[string][]domain.ScheduledTask `json:"days"`
}

// Mapping helpers

func (r TaskRequest) toDomain() domain.MaintenanceTask {
	return domain.MaintenanceTask{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Date:            r.Date,
		Type:            domain.MaintenanceType(r.Type),
		Completed:       r.Completed,
		TrainingLevel:   domain.TrainingLevel(r.TrainingLevel),
		CompetenceCodes: r.CompetenceCodes,
	}
}

func (r EquipmentRequest) toDomain() domain.Equipment {
	eq := domain.Equipment{
		ID:            r.ID,
		Tag:           r.Tag,
		Name:          r.Name,
		Location:      r.Location,
		Status:        domain.EquipmentStatus(r.Status),
		TrainingLevel: domain.TrainingLevel(r.TrainingLevel),
	}
	if r.MaintenanceSchedule != nil {
		eq.MaintenanceSchedule = make([]domain.MaintenanceTask, 0, len(r.MaintenanceSchedule))
		for _, t := range r.MaintenanceSchedule {
			eq.MaintenanceSchedule = append(eq.MaintenanceSchedule, t.toDomain())
		}
	}
	return eq
}

func (r EquipmentPatchRequest) toPatch() engine.EquipmentPatch {
	p := engine.EquipmentPatch{Tag: r.Tag, Name: r.Name, Location: r.Location}
	if r.Status != nil {
		s := domain.EquipmentStatus(*r.Status)
		p.Status = &s
	}
	if r.TrainingLevel != nil {
		l := domain.TrainingLevel(*r.TrainingLevel)
		p.TrainingLevel = &l
	}
	return p
}

func (r TaskPatchRequest) toPatch() engine.TaskPatch {
	p := engine.TaskPatch{
		Title:           r.Title,
		Description:     r.Description,
		Date:            r.Date,
		Completed:       r.Completed,
		CompetenceCodes: r.CompetenceCodes,
	}
	if r.Type != nil {
		t := domain.MaintenanceType(*r.Type)
		p.Type = &t
	}
	if r.TrainingLevel != nil {
		l := domain.TrainingLevel(*r.TrainingLevel)
		p.TrainingLevel = &l
	}
	return p
}

func (r MissionRequest) toDraft() engine.MissionDraft {
	return engine.MissionDraft{
		Type:          domain.MaintenanceType(r.Type),
		Title:         r.Title,
		Description:   r.Description,
		EquipmentID:   r.EquipmentID,
		EquipmentName: r.EquipmentName,
		Status:        domain.MissionStatus(r.Status),
		Priority:      domain.Priority(r.Priority),
		AssignedTo:    r.AssignedTo,
		PlannedDate:   r.PlannedDate,
	}
}

// toMission overlays the request on the stored mission. An empty status
// keeps the current one.
func (r MissionRequest) toMission(current domain.Mission) domain.Mission {
	m := current
	m.Type = domain.MaintenanceType(r.Type)
	m.Title = r.Title
	m.Description = r.Description
	m.EquipmentID = r.EquipmentID
	m.EquipmentName = r.EquipmentName
	if r.Status != "" {
		m.Status = domain.MissionStatus(r.Status)
	}
	m.Priority = domain.Priority(r.Priority)
	m.AssignedTo = r.AssignedTo
	m.PlannedDate = r.PlannedDate
	return m
}

func (r StudentRequest) toDomain() domain.Student {
	return domain.Student{
		ID:            r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		TrainingLevel: domain.TrainingLevel(r.TrainingLevel),
	}
}

func (r AcquisitionRequest) toDomain(code string) domain.AcquiredCompetence {
	return domain.AcquiredCompetence{
		Code:             code,
		AcquisitionLevel: domain.AcquisitionLevel(r.AcquisitionLevel),
		ValidationDate:   r.ValidationDate,
		Context:          r.Context,
		ValidatedBy:      r.ValidatedBy,
		RelatedMissions:  r.RelatedMissions,
	}
}

func calendarResponse(cal engine.CalendarMonth) CalendarResponse {
	resp := CalendarResponse{Year: cal.Year, Month: int(cal.Month), Days: map[string][]domain.ScheduledTask{}}
	for day, tasks := range cal.Days {
		resp.Days[time.Date(cal.Year, cal.Month, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")] = tasks
	}
	return resp
}

func statsResponse[K ~string](counts map[K]int) StatsResponse {
	resp := StatsResponse{Counts: make(map[string]int, len(counts))}
	for k, v := range counts {
		resp.Counts[string(k)] = v
		resp.Total += v
	}
	return resp
}
