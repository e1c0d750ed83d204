// Package cache persists the single most recent price snapshot under a
// fixed key. Backends store opaque bytes; encoding is the caller's concern.
package cache

import (
	"context"
	"errors"
)

// DefaultKey identifies the snapshot slot in every backend.
const DefaultKey = "metalprice:snapshot:v3"

// ErrNotFound is returned by Get when the slot is empty.
var ErrNotFound = errors.New("cache: no entry")

// Store is a one-slot key-value store. Set overwrites the slot entirely.
//
//go:generate mockgen -package=prices_test -destination=../prices/mock_store_test.go -source=store.go Store
type Store interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, value []byte) error
	Delete(ctx context.Context) error
}
