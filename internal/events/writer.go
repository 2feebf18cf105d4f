package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gmao/internal/db"
)

// Event types appended by the engine.
const (
	EquipmentCreated = "equipment.created"
	EquipmentUpdated = "equipment.updated"
	EquipmentDeleted = "equipment.deleted"
	TaskAdded        = "task.added"
	TaskUpdated      = "task.updated"
	TaskDeleted      = "task.deleted"
	MissionCreated   = "mission.created"
	MissionUpdated   = "mission.updated"
	MissionDeleted   = "mission.deleted"
	StudentCreated   = "student.created"
	StudentDeleted   = "student.deleted"
	CompetenceSet    = "competence.recorded"
	CompetenceUnset  = "competence.removed"
)

// Writer appends audit events. A Writer without DB drops every event, which
// is how the redis backend runs.
type Writer struct {
	DB      *sql.DB
	Dialect db.Dialect
	Now     func() time.Time
}

type EventPayload map[string]any

func (w Writer) Enabled() bool {
	return w.DB != nil
}

func (w Writer) Append(ctx context.Context, evtType, entityKind, entityID string, payload EventPayload) error {
	if w.DB == nil {
		return nil
	}
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, db.Rebind(w.Dialect, `INSERT INTO events(ts,type,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?)`),
		ts, evtType, entityKind, nullable(entityID), string(data))
	if err != nil {
		return fmt.Errorf("append event %s: %w", evtType, err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
