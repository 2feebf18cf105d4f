package gmaosdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal GMAO HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Task represents a maintenance task.
type Task struct {
	ID              string   `json:"id,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Date            string   `json:"date"`
	Type            string   `json:"type"`
	Completed       bool     `json:"completed,omitempty"`
	TrainingLevel   string   `json:"trainingLevel,omitempty"`
	CompetenceCodes []string `json:"competenceCodes,omitempty"`
}

// ScheduledTask is a task with the equipment it belongs to.
type ScheduledTask struct {
	Task
	EquipmentID   string `json:"equipmentId"`
	EquipmentName string `json:"equipmentName"`
}

// Equipment represents a registered piece of equipment.
type Equipment struct {
	ID                  string `json:"id,omitempty"`
	Tag                 string `json:"tag"`
	Name                string `json:"name"`
	Location            string `json:"location,omitempty"`
	Status              string `json:"status,omitempty"`
	TrainingLevel       string `json:"trainingLevel,omitempty"`
	MaintenanceSchedule []Task `json:"maintenanceSchedule,omitempty"`
}

// Mission represents a maintenance work order.
type Mission struct {
	ID            string    `json:"id,omitempty"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	EquipmentID   string    `json:"equipmentId"`
	EquipmentName string    `json:"equipmentName,omitempty"`
	Status        string    `json:"status,omitempty"`
	Priority      string    `json:"priority"`
	AssignedTo    []string  `json:"assignedTo,omitempty"`
	PlannedDate   string    `json:"plannedDate,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// Calendar holds one month of tasks keyed by YYYY-MM-DD.
type Calendar struct {
	Year  int                        `json:"year"`
	Month int                        `json:"month"`
	Days  map[string][]ScheduledTask `json:"days"`
}

// FamilyRate is the acquisition rate of one competence family.
type FamilyRate struct {
	Family     string `json:"family"`
	Title      string `json:"title"`
	Acquired   int    `json:"acquired"`
	Applicable int    `json:"applicable"`
	Rate       int    `json:"rate"`
}

// Report is the competency summary of a student (partial).
type Report struct {
	Student struct {
		ID            string `json:"id"`
		FirstName     string `json:"firstName"`
		LastName      string `json:"lastName"`
		TrainingLevel string `json:"trainingLevel"`
	} `json:"student"`
	Global   int          `json:"global"`
	Families []FamilyRate `json:"families"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// MissionFilter narrows ListMissions. Empty fields match everything.
type MissionFilter struct {
	Text        string
	Type        string
	Status      string
	EquipmentID string
	AssignedTo  string
}

// ListEquipment returns every registered equipment.
func (c *Client) ListEquipment(ctx context.Context) ([]Equipment, error) {
	var resp []Equipment
	err := c.do(ctx, http.MethodGet, "equipment", nil, &resp)
	return resp, err
}

// CreateEquipment registers equipment and returns it with its id.
func (c *Client) CreateEquipment(ctx context.Context, eq Equipment) (Equipment, error) {
	var resp Equipment
	err := c.do(ctx, http.MethodPost, "equipment", eq, &resp)
	return resp, err
}

// AddTask appends a task to an equipment schedule.
func (c *Client) AddTask(ctx context.Context, equipmentID string, task Task) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("equipment/%s/tasks", url.PathEscape(equipmentID))
	err := c.do(ctx, http.MethodPost, endpoint, task, &resp)
	return resp, err
}

// CompleteTask marks a task done or open again.
func (c *Client) CompleteTask(ctx context.Context, equipmentID, taskID string, completed bool) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("equipment/%s/tasks/%s", url.PathEscape(equipmentID), url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"completed": completed}, &resp)
	return resp, err
}

// Calendar returns the tasks of a month bucketed by day.
func (c *Client) Calendar(ctx context.Context, year, month int) (Calendar, error) {
	var resp Calendar
	q := url.Values{}
	q.Set("year", fmt.Sprint(year))
	q.Set("month", fmt.Sprint(month))
	err := c.do(ctx, http.MethodGet, "schedule/calendar?"+q.Encode(), nil, &resp)
	return resp, err
}

// CreateMission opens a mission. An empty status starts it at to_assign.
func (c *Client) CreateMission(ctx context.Context, m Mission) (Mission, error) {
	var resp Mission
	body := map[string]any{
		"type":        m.Type,
		"title":       m.Title,
		"equipmentId": m.EquipmentID,
		"priority":    m.Priority,
	}
	if m.Description != "" {
		body["description"] = m.Description
	}
	if m.Status != "" {
		body["status"] = m.Status
	}
	if len(m.AssignedTo) > 0 {
		body["assignedTo"] = m.AssignedTo
	}
	if m.PlannedDate != "" {
		body["plannedDate"] = m.PlannedDate
	}
	err := c.do(ctx, http.MethodPost, "missions", body, &resp)
	return resp, err
}

// ListMissions returns missions matching every non-empty filter field.
func (c *Client) ListMissions(ctx context.Context, f MissionFilter) ([]Mission, error) {
	q := url.Values{}
	for k, v := range map[string]string{
		"text":         f.Text,
		"type":         f.Type,
		"status":       f.Status,
		"equipment_id": f.EquipmentID,
		"assigned_to":  f.AssignedTo,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	endpoint := "missions"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Mission
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SetMissionStatus moves a mission along its lifecycle.
func (c *Client) SetMissionStatus(ctx context.Context, id, status string) (Mission, error) {
	var resp Mission
	endpoint := fmt.Sprintf("missions/%s/status", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// DeleteMission removes a mission.
func (c *Client) DeleteMission(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "missions/"+url.PathEscape(id), nil, nil)
}

// StudentReport returns the acquisition rates of a student.
func (c *Client) StudentReport(ctx context.Context, studentID string) (Report, error) {
	var resp Report
	endpoint := fmt.Sprintf("students/%s/report", url.PathEscape(studentID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(endpoint), &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) endpoint(p string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	prefix := strings.Trim(c.BasePath, "/")
	if prefix != "" {
		base += "/" + prefix
	}
	return base + "/" + strings.TrimLeft(p, "/")
}
