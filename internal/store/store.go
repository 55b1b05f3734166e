// Package store is the workspace seam: named dataset blobs with pattern
// enumeration, backed by memory (transient) or redis (persistent).
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("store: dataset not found")

// Store persists encoded datasets under artifact names. Pattern syntax for
// List is path.Match style, with '*' matching any run of characters.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, pattern string) ([]string, error)

	// Transient reports whether the workspace evaporates with the process.
	Transient() bool
	// Location is the configured workspace location string.
	Location() string
}
