package metadata

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Sealer encrypts values bound to their key. *cryptox.Sealer implements it.
type Sealer interface {
	Seal(plaintext, additional []byte) []byte
	Open(sealed, additional []byte) ([]byte, error)
}

// SealedRepository encrypts values before handing them to the wrapped
// repository. Keys stay in clear text.
type SealedRepository struct {
	inner  Repository
	sealer Sealer
}

func NewSealedRepository(inner Repository, sealer Sealer) *SealedRepository {
	return &SealedRepository{inner: inner, sealer: sealer}
}

func (r *SealedRepository) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := r.inner.Get(ctx, key)
	if err != nil || sealed == nil {
		return nil, err
	}
	return r.open(key, sealed)
}

func (r *SealedRepository) Set(ctx context.Context, key string, value []byte) error {
	return r.inner.Set(ctx, key, r.sealer.Seal(value, []byte(key)))
}

func (r *SealedRepository) Delete(ctx context.Context, keys ...string) error {
	return r.inner.Delete(ctx, keys...)
}

func (r *SealedRepository) List(ctx context.Context) (map[string][]byte, error) {
	all, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(all))
	for k, v := range all {
		plain, err := r.open(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = plain
	}
	return out, nil
}

func (r *SealedRepository) Clear(ctx context.Context) error {
	return r.inner.Clear(ctx)
}

func (r *SealedRepository) open(key string, sealed []byte) ([]byte, error) {
	plain, err := r.sealer.Open(sealed, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: metadata[%s]: %v", common.ErrorCorruptedState, key, err)
	}
	if plain == nil {
		plain = []byte{}
	}
	return plain, nil
}
