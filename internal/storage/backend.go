package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Backend.Get for a key that was never written
var ErrNotFound = errors.New("key not found")

// Backend is a durable string key/value store. Set overwrites.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
