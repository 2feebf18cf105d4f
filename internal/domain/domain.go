package domain

import "time"

type EquipmentStatus string

const (
	EquipmentOperational EquipmentStatus = "operational"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentFaulty      EquipmentStatus = "faulty"
)

func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentOperational, EquipmentMaintenance, EquipmentFaulty:
		return true
	}
	return false
}

// MaintenanceType classifies both maintenance tasks and missions.
type MaintenanceType string

const (
	Preventive  MaintenanceType = "preventive"
	Corrective  MaintenanceType = "corrective"
	Improvement MaintenanceType = "improvement"
)

func (t MaintenanceType) Valid() bool {
	switch t {
	case Preventive, Corrective, Improvement:
		return true
	}
	return false
}

type MissionStatus string

const (
	StatusToAssign   MissionStatus = "to_assign"
	StatusAssigned   MissionStatus = "assigned"
	StatusInProgress MissionStatus = "in_progress"
	StatusToValidate MissionStatus = "to_validate"
	StatusCompleted  MissionStatus = "completed"
	StatusCancelled  MissionStatus = "cancelled"
)

// MissionStatuses lists statuses in lifecycle order.
var MissionStatuses = []MissionStatus{
	StatusToAssign, StatusAssigned, StatusInProgress, StatusToValidate, StatusCompleted, StatusCancelled,
}

func (s MissionStatus) Valid() bool {
	for _, v := range MissionStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s MissionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// TrainingLevel is a student cohort: second year, first year, final year.
type TrainingLevel string

const (
	Level2PMIA TrainingLevel = "2PMIA"
	Level1MSPC TrainingLevel = "1MSPC"
	LevelTMSPC TrainingLevel = "TMSPC"
)

var TrainingLevels = []TrainingLevel{Level2PMIA, Level1MSPC, LevelTMSPC}

func (l TrainingLevel) Valid() bool {
	for _, v := range TrainingLevels {
		if l == v {
			return true
		}
	}
	return false
}

type AcquisitionLevel string

const (
	AcquisitionDiscovery   AcquisitionLevel = "discovery"
	AcquisitionApplication AcquisitionLevel = "application"
	AcquisitionMastery     AcquisitionLevel = "mastery"
)

func (a AcquisitionLevel) Valid() bool {
	switch a {
	case AcquisitionDiscovery, AcquisitionApplication, AcquisitionMastery:
		return true
	}
	return false
}

type Equipment struct {
	ID                  string            `json:"id"`
	Tag                 string            `json:"tag"`
	Name                string            `json:"name"`
	Location            string            `json:"location"`
	Status              EquipmentStatus   `json:"status" validate:"required,oneof=operational maintenance faulty"`
	TrainingLevel       TrainingLevel     `json:"trainingLevel" validate:"omitempty,oneof=2PMIA 1MSPC TMSPC"`
	MaintenanceSchedule []MaintenanceTask `json:"maintenanceSchedule"`
}

type MaintenanceTask struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Date            string          `json:"date" validate:"required"`
	Type            MaintenanceType `json:"type" validate:"required,oneof=preventive corrective improvement"`
	Completed       bool            `json:"completed"`
	TrainingLevel   TrainingLevel   `json:"trainingLevel,omitempty" validate:"omitempty,oneof=2PMIA 1MSPC TMSPC"`
	CompetenceCodes []string        `json:"competenceCodes"`
}

// ScheduledTask is a task flattened out of its equipment schedule.
type ScheduledTask struct {
	MaintenanceTask
	EquipmentID   string `json:"equipmentId"`
	EquipmentName string `json:"equipmentName"`
}

type Mission struct {
	ID            string          `json:"id"`
	Type          MaintenanceType `json:"type" validate:"required,oneof=preventive corrective improvement"`
	Title         string          `json:"title" validate:"required"`
	Description   string          `json:"description"`
	EquipmentID   string          `json:"equipmentId" validate:"required"`
	EquipmentName string          `json:"equipmentName"`
	Status        MissionStatus   `json:"status" validate:"required,oneof=to_assign assigned in_progress to_validate completed cancelled"`
	Priority      Priority        `json:"priority" validate:"required,oneof=low normal high"`
	AssignedTo    []string        `json:"assignedTo,omitempty"`
	PlannedDate   string          `json:"plannedDate,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type CompetenceEntry struct {
	Code             string          `json:"code"`
	Family           string          `json:"family"`
	Label            string          `json:"label"`
	Description      string          `json:"description"`
	ApplicableLevels []TrainingLevel `json:"applicableLevels"`
}

// AppliesTo reports whether the entry is taught at level.
func (c CompetenceEntry) AppliesTo(level TrainingLevel) bool {
	for _, l := range c.ApplicableLevels {
		if l == level {
			return true
		}
	}
	return false
}

type AcquiredCompetence struct {
	Code             string           `json:"code" validate:"required"`
	AcquisitionLevel AcquisitionLevel `json:"acquisitionLevel" validate:"required,oneof=discovery application mastery"`
	ValidationDate   string           `json:"validationDate"`
	Context          string           `json:"context"`
	ValidatedBy      string           `json:"validatedBy"`
	RelatedMissions  []string         `json:"relatedMissions"`
}

type Student struct {
	ID            string               `json:"id"`
	FirstName     string               `json:"firstName" validate:"required"`
	LastName      string               `json:"lastName" validate:"required"`
	TrainingLevel TrainingLevel        `json:"trainingLevel" validate:"required,oneof=2PMIA 1MSPC TMSPC"`
	Acquired      []AcquiredCompetence `json:"acquiredCompetences"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
