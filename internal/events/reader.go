package events

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gmao/internal/db"
	"gmao/internal/domain"
)

type Reader struct {
	DB      *sql.DB
	Dialect db.Dialect
}

type Filter struct {
	Type       string
	EntityKind string
	EntityID   string
}

// Latest returns the newest events first.
func (r Reader) Latest(ctx context.Context, limit int, f Filter) ([]domain.Event, error) {
	if r.DB == nil {
		return []domain.Event{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	clauses := []string{"1=1"}
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.query(ctx, query, args...)
}

// After returns events with IDs greater than the cursor in ascending order.
func (r Reader) After(ctx context.Context, cursor int64, limit int) ([]domain.Event, error) {
	if r.DB == nil {
		return []domain.Event{}, nil
	}
	if limit <= 0 {
		limit = 100
	}
	return r.query(ctx, `SELECT id,ts,type,entity_kind,entity_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
}

// LatestID returns the most recent event ID, 0 when the log is empty.
func (r Reader) LatestID(ctx context.Context) (int64, error) {
	if r.DB == nil {
		return 0, nil
	}
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Reader) query(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, db.Rebind(r.Dialect, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var entityID sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.Payload); err != nil {
			return nil, err
		}
		e.EntityID = entityID.String
		res = append(res, e)
	}
	return res, rows.Err()
}
