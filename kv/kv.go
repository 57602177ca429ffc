package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a minimal key-value persistence primitive. The recording index
// keeps its whole collection serialized under a single key, so Get/Set over
// whole values is the entire contract.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
