package engine

import (
	"context"
	"strings"

	"gmao/internal/competency"
	"gmao/internal/domain"
	"gmao/internal/events"
	"gmao/internal/repo"
)

// Report is the competency summary of one student.
type Report struct {
	Student  domain.Student          `json:"student"`
	Global   int                     `json:"global"`
	Families []competency.FamilyRate `json:"families"`
}

func (e *Engine) CreateStudent(ctx context.Context, s domain.Student) (domain.Student, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Student{}, err
	}
	defer e.mu.Unlock()

	s = cloneStudent(s)
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	if s.ID == "" {
		s.ID = e.newID()
	}
	if err := e.check(s); err != nil {
		return domain.Student{}, err
	}
	if e.studentIndex(s.ID) >= 0 {
		return domain.Student{}, invalid("id", "student %s already exists", s.ID)
	}
	acquired := s.Acquired
	s.Acquired = []domain.AcquiredCompetence{}
	for _, a := range acquired {
		if err := e.checkAcquired(s, &a); err != nil {
			return domain.Student{}, err
		}
		s.Acquired = upsertAcquired(s.Acquired, a)
	}

	e.students = append(e.students, s)
	if err := save(ctx, e, repo.KeyStudents, "create", s.ID, e.students); err != nil {
		return cloneStudent(s), err
	}
	e.emit(ctx, events.StudentCreated, "student", s.ID, events.EventPayload{"training_level": s.TrainingLevel})
	return cloneStudent(s), nil
}

func (e *Engine) GetStudent(ctx context.Context, id string) (domain.Student, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Student{}, err
	}
	defer e.mu.Unlock()
	idx := e.studentIndex(id)
	if idx < 0 {
		return domain.Student{}, notFound("student", id)
	}
	return cloneStudent(e.students[idx]), nil
}

// ListStudents returns the students of a training level, or all of them
// when level is empty.
func (e *Engine) ListStudents(ctx context.Context, level domain.TrainingLevel) ([]domain.Student, error) {
	if err := e.lock(ctx); err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	if level != "" && !level.Valid() {
		return nil, invalid("trainingLevel", "unknown training level %q", level)
	}
	out := []domain.Student{}
	for _, s := range e.students {
		if level != "" && s.TrainingLevel != level {
			continue
		}
		out = append(out, cloneStudent(s))
	}
	return out, nil
}

func (e *Engine) DeleteStudent(ctx context.Context, id string) (bool, error) {
	if err := e.lock(ctx); err != nil {
		return false, err
	}
	defer e.mu.Unlock()
	idx := e.studentIndex(id)
	if idx < 0 {
		return false, nil
	}
	e.students = append(e.students[:idx:idx], e.students[idx+1:]...)
	if err := save(ctx, e, repo.KeyStudents, "delete", id, e.students); err != nil {
		return true, err
	}
	e.emit(ctx, events.StudentDeleted, "student", id, nil)
	return true, nil
}

// RecordCompetence stores an acquisition for the student, replacing any
// earlier record with the same code.
func (e *Engine) RecordCompetence(ctx context.Context, studentID string, a domain.AcquiredCompetence) (domain.Student, error) {
	if err := e.lock(ctx); err != nil {
		return domain.Student{}, err
	}
	defer e.mu.Unlock()

	idx := e.studentIndex(studentID)
	if idx < 0 {
		return domain.Student{}, notFound("student", studentID)
	}
	s := cloneStudent(e.students[idx])
	a.RelatedMissions = cloneStrings(a.RelatedMissions)
	if err := e.checkAcquired(s, &a); err != nil {
		return domain.Student{}, err
	}
	s.Acquired = upsertAcquired(s.Acquired, a)
	e.students[idx] = s
	if err := save(ctx, e, repo.KeyStudents, "record_competence", studentID, e.students); err != nil {
		return cloneStudent(s), err
	}
	e.emit(ctx, events.CompetenceSet, "student", studentID, events.EventPayload{
		"code":  a.Code,
		"level": a.AcquisitionLevel,
	})
	return cloneStudent(s), nil
}

func (e *Engine) RemoveCompetence(ctx context.Context, studentID, code string) (bool, error) {
	if err := e.lock(ctx); err != nil {
		return false, err
	}
	defer e.mu.Unlock()

	idx := e.studentIndex(studentID)
	if idx < 0 {
		return false, notFound("student", studentID)
	}
	s := cloneStudent(e.students[idx])
	kept := s.Acquired[:0]
	for _, a := range s.Acquired {
		if a.Code != code {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(s.Acquired) {
		return false, nil
	}
	s.Acquired = kept
	e.students[idx] = s
	if err := save(ctx, e, repo.KeyStudents, "remove_competence", studentID, e.students); err != nil {
		return true, err
	}
	e.emit(ctx, events.CompetenceUnset, "student", studentID, events.EventPayload{"code": code})
	return true, nil
}

func (e *Engine) StudentReport(ctx context.Context, id string) (Report, error) {
	s, err := e.GetStudent(ctx, id)
	if err != nil {
		return Report{}, err
	}
	families := competency.FamilyRates(s)
	if families == nil {
		families = []competency.FamilyRate{}
	}
	return Report{
		Student:  s,
		Global:   competency.GlobalRate(s),
		Families: families,
	}, nil
}

func (e *Engine) studentIndex(id string) int {
	for i, s := range e.students {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) checkAcquired(s domain.Student, a *domain.AcquiredCompetence) error {
	a.Code = strings.TrimSpace(a.Code)
	if err := e.check(*a); err != nil {
		return err
	}
	entry, ok := competency.Lookup(a.Code)
	if !ok {
		return invalid("code", "unknown competence %s", a.Code)
	}
	if !entry.AppliesTo(s.TrainingLevel) {
		return invalid("code", "competence %s does not apply to level %s", a.Code, s.TrainingLevel)
	}
	if a.ValidationDate == "" {
		a.ValidationDate = e.now().UTC().Format("2006-01-02")
	} else if _, err := parseCivilDate(a.ValidationDate); err != nil {
		return &ValidationError{Field: "validationDate", Reason: "must be a YYYY-MM-DD date", Err: err}
	}
	if a.RelatedMissions == nil {
		a.RelatedMissions = []string{}
	}
	return nil
}

func upsertAcquired(list []domain.AcquiredCompetence, a domain.AcquiredCompetence) []domain.AcquiredCompetence {
	for i := range list {
		if list[i].Code == a.Code {
			list[i] = a
			return list
		}
	}
	return append(list, a)
}

func cloneStudent(s domain.Student) domain.Student {
	if s.Acquired != nil {
		acquired := make([]domain.AcquiredCompetence, len(s.Acquired))
		for i, a := range s.Acquired {
			a.RelatedMissions = cloneStrings(a.RelatedMissions)
			acquired[i] = a
		}
		s.Acquired = acquired
	}
	return s
}
