package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"gmao/internal/domain"
	"gmao/internal/engine"
)

func registerMissions(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions",
	}, func(ctx context.Context, input *struct {
		Text        string `query:"text"`
		Type        string `query:"type" enum:"preventive,corrective,improvement"`
		Status      string `query:"status" enum:"to_assign,assigned,in_progress,to_validate,completed,cancelled"`
		EquipmentID string `query:"equipment_id"`
		AssignedTo  string `query:"assigned_to"`
	}) (*struct {
		Body []domain.Mission `json:"body"`
	}, error) {
		items, err := e.ListMissions(ctx, engine.MissionFilter{
			Text:        input.Text,
			Type:        domain.MaintenanceType(input.Type),
			Status:      domain.MissionStatus(input.Status),
			EquipmentID: input.EquipmentID,
			AssignedTo:  input.AssignedTo,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Mission `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Create mission",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body MissionRequest `json:"body"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		m, err := e.CreateMission(ctx, input.Body.toDraft())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mission-stats",
		Method:      http.MethodGet,
		Path:        "/missions/stats",
		Summary:     "Count missions per status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StatsResponse `json:"body"`
	}, error) {
		stats, err := e.MissionStats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StatsResponse `json:"body"`
		}{Body: statsResponse(stats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{id}",
		Summary:     "Get mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		m, err := e.GetMission(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-mission",
		Method:      http.MethodPut,
		Path:        "/missions/{id}",
		Summary:     "Replace mission fields",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body MissionRequest `json:"body"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		current, err := e.GetMission(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		m, err := e.UpdateMission(ctx, input.Body.toMission(current))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-mission-status",
		Method:      http.MethodPatch,
		Path:        "/missions/{id}/status",
		Summary:     "Move a mission through its lifecycle",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body MissionStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		m, err := e.SetMissionStatus(ctx, input.ID, domain.MissionStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-mission",
		Method:        http.MethodDelete,
		Path:          "/missions/{id}",
		Summary:       "Delete mission",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		removed, err := e.DeleteMission(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if !removed {
			return nil, notFound("mission", input.ID)
		}
		return &struct{}{}, nil
	})
}
