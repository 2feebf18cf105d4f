package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gmao/internal/db"
)

// SQL stores values in the kv table created by the migrations.
type SQL struct {
	DB      *sql.DB
	Dialect db.Dialect
	Now     func() time.Time
}

var _ Store = SQL{}

func (s SQL) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s SQL) q(query string) string {
	return db.Rebind(s.Dialect, query)
}

func (s SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, s.q(`SELECT value FROM kv WHERE key=?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s SQL) Put(ctx context.Context, key string, value []byte) error {
	now := s.now().UTC().Format(time.RFC3339)
	_, err := s.DB.ExecContext(ctx, s.q(`INSERT INTO kv(key,value,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`), key, string(value), now)
	return err
}

func (s SQL) Delete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, s.q(`DELETE FROM kv WHERE key=?`), key)
	return err
}

func (s SQL) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
