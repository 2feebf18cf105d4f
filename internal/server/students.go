package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"gmao/internal/domain"
	"gmao/internal/engine"
)

type studentPath struct {
	ID string `path:"id"`
}

func registerStudents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-students",
		Method:      http.MethodGet,
		Path:        "/students",
		Summary:     "List students",
	}, func(ctx context.Context, input *struct {
		TrainingLevel string `query:"training_level" enum:"2PMIA,1MSPC,TMSPC"`
	}) (*struct {
		Body []domain.Student `json:"body"`
	}, error) {
		items, err := e.ListStudents(ctx, domain.TrainingLevel(input.TrainingLevel))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Student `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-student",
		Method:        http.MethodPost,
		Path:          "/students",
		Summary:       "Create student",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body StudentRequest `json:"body"`
	}) (*struct {
		Body domain.Student `json:"body"`
	}, error) {
		s, err := e.CreateStudent(ctx, input.Body.toDomain())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Student `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-student",
		Method:      http.MethodGet,
		Path:        "/students/{id}",
		Summary:     "Get student",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *studentPath) (*struct {
		Body domain.Student `json:"body"`
	}, error) {
		s, err := e.GetStudent(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Student `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-student",
		Method:        http.MethodDelete,
		Path:          "/students/{id}",
		Summary:       "Delete student",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *studentPath) (*struct{}, error) {
		removed, err := e.DeleteStudent(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if !removed {
			return nil, notFound("student", input.ID)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-competence",
		Method:      http.MethodPut,
		Path:        "/students/{id}/competences/{code}",
		Summary:     "Record an acquired competence",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Code string             `path:"code"`
		Body AcquisitionRequest `json:"body"`
	}) (*struct {
		Body domain.Student `json:"body"`
	}, error) {
		s, err := e.RecordCompetence(ctx, input.ID, input.Body.toDomain(input.Code))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Student `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-competence",
		Method:        http.MethodDelete,
		Path:          "/students/{id}/competences/{code}",
		Summary:       "Forget an acquired competence",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Code string `path:"code"`
	}) (*struct{}, error) {
		removed, err := e.RemoveCompetence(ctx, input.ID, input.Code)
		if err != nil {
			return nil, handleError(err)
		}
		if !removed {
			return nil, notFound("competence", input.Code)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "student-report",
		Method:      http.MethodGet,
		Path:        "/students/{id}/report",
		Summary:     "Competency acquisition rates of a student",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *studentPath) (*struct {
		Body engine.Report `json:"body"`
	}, error) {
		report, err := e.StudentReport(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Report `json:"body"`
		}{Body: report}, nil
	})
}
