// Package store provides the key-value backends that hold each persisted
// collection as a single JSON document.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is a flat key-value store. Values are opaque bytes written wholesale.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
