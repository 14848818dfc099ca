package ports

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// KVStore is a durable string-keyed store of JSON text values.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close()
}
