package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gmao/internal/store"
)

// Keys of the persisted collections.
const (
	KeyEquipment = "equipment"
	KeyMissions  = "missions"
	KeyStudents  = "students"
)

// Collection persists a whole slice of records as one JSON array under Key.
// There are no partial writes: every Save rewrites the full array.
type Collection[T any] struct {
	Store store.Store
	Key   string
}

func NewCollection[T any](s store.Store, key string) Collection[T] {
	return Collection[T]{Store: s, Key: key}
}

// Load returns the stored records in their persisted order. A missing key
// yields an empty collection.
func (c Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, err := c.Store.Get(ctx, c.Key)
	if errors.Is(err, store.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.Key, err)
	}
	items := []T{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Key, err)
	}
	return items, nil
}

func (c Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.Key, err)
	}
	return c.Store.Put(ctx, c.Key, raw)
}
