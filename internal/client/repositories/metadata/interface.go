// Package metadata is the small persisted key/value store behind the session
// record, the pending-verification record and the cookie jar.
//
// Implementations:
//
//   - SQLiteRepository: table "metadata" created by the embedded goose
//     migrations in internal/client/migrations.
//   - RedisRepository: one Redis hash per installation.
//   - MemoryRepository: process memory only.
//   - SealedRepository: wraps another Repository and encrypts values with
//     XChaCha20-Poly1305, binding each value to its key.
package metadata

import (
	"context"
)

// Repository stores opaque values by key. Get of a missing key returns
// (nil, nil).
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
