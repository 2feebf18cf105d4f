package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"gmao/internal/domain"
	"gmao/internal/engine"
)

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusServiceUnavailable,
	http.StatusInternalServerError,
}

type equipmentPath struct {
	ID string `path:"id"`
}

func registerEquipment(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-equipment",
		Method:      http.MethodGet,
		Path:        "/equipment",
		Summary:     "List equipment",
	}, func(ctx context.Context, input *struct {
		Text          string `query:"text"`
		Location      string `query:"location"`
		Status        string `query:"status" enum:"operational,maintenance,faulty"`
		TrainingLevel string `query:"training_level" enum:"2PMIA,1MSPC,TMSPC"`
	}) (*struct {
		Body []domain.Equipment `json:"body"`
	}, error) {
		items, err := e.ListEquipment(ctx, engine.EquipmentFilter{
			Text:          input.Text,
			Location:      input.Location,
			Status:        domain.EquipmentStatus(input.Status),
			TrainingLevel: domain.TrainingLevel(input.TrainingLevel),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Equipment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-equipment",
		Method:        http.MethodPost,
		Path:          "/equipment",
		Summary:       "Create equipment",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body EquipmentRequest `json:"body"`
	}) (*struct {
		Body domain.Equipment `json:"body"`
	}, error) {
		eq, err := e.CreateEquipment(ctx, input.Body.toDomain())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Equipment `json:"body"`
		}{Body: eq}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "equipment-stats",
		Method:      http.MethodGet,
		Path:        "/equipment/stats",
		Summary:     "Count equipment per status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StatsResponse `json:"body"`
	}, error) {
		stats, err := e.EquipmentStats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StatsResponse `json:"body"`
		}{Body: statsResponse(stats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-equipment",
		Method:      http.MethodGet,
		Path:        "/equipment/{id}",
		Summary:     "Get equipment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *equipmentPath) (*struct {
		Body domain.Equipment `json:"body"`
	}, error) {
		eq, err := e.GetEquipment(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Equipment `json:"body"`
		}{Body: eq}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-equipment",
		Method:      http.MethodPut,
		Path:        "/equipment/{id}",
		Summary:     "Replace equipment",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body EquipmentRequest `json:"body"`
	}) (*struct {
		Body domain.Equipment `json:"body"`
	}, error) {
		eq := input.Body.toDomain()
		eq.ID = input.ID
		eq, err := e.UpdateEquipment(ctx, eq)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Equipment `json:"body"`
		}{Body: eq}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "patch-equipment",
		Method:      http.MethodPatch,
		Path:        "/equipment/{id}",
		Summary:     "Update equipment fields",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body EquipmentPatchRequest `json:"body"`
	}) (*struct {
		Body domain.Equipment `json:"body"`
	}, error) {
		eq, err := e.PatchEquipment(ctx, input.ID, input.Body.toPatch())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Equipment `json:"body"`
		}{Body: eq}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-equipment",
		Method:        http.MethodDelete,
		Path:          "/equipment/{id}",
		Summary:       "Delete equipment and its schedule",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *equipmentPath) (*struct{}, error) {
		removed, err := e.DeleteEquipment(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if !removed {
			return nil, notFound("equipment", input.ID)
		}
		return &struct{}{}, nil
	})
}

func registerTasks(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-task",
		Method:        http.MethodPost,
		Path:          "/equipment/{id}/tasks",
		Summary:       "Add a maintenance task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string      `path:"id"`
		Body TaskRequest `json:"body"`
	}) (*struct {
		Body domain.MaintenanceTask `json:"body"`
	}, error) {
		task, err := e.AddTask(ctx, input.ID, input.Body.toDomain())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.MaintenanceTask `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/equipment/{id}/tasks/{task_id}",
		Summary:     "Update a maintenance task",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID     string           `path:"id"`
		TaskID string           `path:"task_id"`
		Body   TaskPatchRequest `json:"body"`
	}) (*struct {
		Body domain.MaintenanceTask `json:"body"`
	}, error) {
		task, err := e.UpdateTask(ctx, input.ID, input.TaskID, input.Body.toPatch())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.MaintenanceTask `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/equipment/{id}/tasks/{task_id}",
		Summary:       "Delete a maintenance task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		TaskID string `path:"task_id"`
	}) (*struct{}, error) {
		removed, err := e.DeleteTask(ctx, input.ID, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		if !removed {
			return nil, notFound("task", input.TaskID)
		}
		return &struct{}{}, nil
	})
}

// TaskQuery holds the task filters shared by the schedule endpoints.
type TaskQuery struct {
	EquipmentID   string `query:"equipment_id"`
	TrainingLevel string `query:"training_level" enum:"2PMIA,1MSPC,TMSPC"`
	Type          string `query:"type" enum:"preventive,corrective,improvement"`
	Completed     string `query:"completed" doc:"true or false"`
}

func (q TaskQuery) filter() (engine.TaskFilter, error) {
	f := engine.TaskFilter{
		EquipmentID:   q.EquipmentID,
		TrainingLevel: domain.TrainingLevel(q.TrainingLevel),
		Type:          domain.MaintenanceType(q.Type),
	}
	if q.Completed != "" {
		v, err := strconv.ParseBool(q.Completed)
		if err != nil {
			return f, newAPIError(http.StatusBadRequest, "bad_request", "completed must be true or false", map[string]any{"completed": q.Completed})
		}
		f.Completed = &v
	}
	return f, nil
}

func registerSchedule(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-scheduled-tasks",
		Method:      http.MethodGet,
		Path:        "/schedule/tasks",
		Summary:     "List tasks across all equipment",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *TaskQuery) (*struct {
		Body []domain.ScheduledTask `json:"body"`
	}, error) {
		f, err := input.filter()
		if err != nil {
			return nil, err
		}
		items, err := e.AggregateTasks(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ScheduledTask `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "month-calendar",
		Method:      http.MethodGet,
		Path:        "/schedule/calendar",
		Summary:     "Tasks of one month bucketed by day",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TaskQuery
		Year  int `query:"year" required:"true" minimum:"1"`
		Month int `query:"month" required:"true" minimum:"1" maximum:"12"`
	}) (*struct {
		Body CalendarResponse `json:"body"`
	}, error) {
		f, err := input.filter()
		if err != nil {
			return nil, err
		}
		cal, err := e.Calendar(ctx, input.Year, time.Month(input.Month), f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CalendarResponse `json:"body"`
		}{Body: calendarResponse(cal)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upcoming-tasks",
		Method:      http.MethodGet,
		Path:        "/schedule/upcoming",
		Summary:     "Open tasks due in the coming days",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		From string `query:"from" doc:"first day, YYYY-MM-DD; defaults to today"`
		Days int    `query:"days" default:"7" minimum:"1" maximum:"366"`
	}) (*struct {
		Body []domain.ScheduledTask `json:"body"`
	}, error) {
		from := time.Now()
		if e.Now != nil {
			from = e.Now()
		}
		if input.From != "" {
			parsed, err := time.Parse("2006-01-02", input.From)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "from must be a YYYY-MM-DD date", map[string]any{"from": input.From})
			}
			from = parsed
		}
		items, err := e.UpcomingTasks(ctx, from, input.Days)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ScheduledTask `json:"body"`
		}{Body: items}, nil
	})
}
