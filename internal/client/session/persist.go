package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// StorageKey is the metadata key of the persisted session record.
const StorageKey = "auth-storage"

const recordVersion = 1

type record struct {
	State struct {
		User *models.User `json:"user"`
	} `json:"state"`
	Version int `json:"version"`
}

// RepositoryPersister keeps the session record in a metadata repository.
type RepositoryPersister struct {
	repo metadata.Repository
}

func NewRepositoryPersister(repo metadata.Repository) *RepositoryPersister {
	return &RepositoryPersister{repo: repo}
}

// LoadUser returns nil when no record exists. A record that cannot be
// decoded is reported as common.ErrorCorruptedState.
func (p *RepositoryPersister) LoadUser(ctx context.Context) (*models.User, error) {
	raw, err := p.repo.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: session record: %v", common.ErrorCorruptedState, err)
	}
	if rec.State.User != nil {
		if err := rec.State.User.Validate(); err != nil {
			return nil, fmt.Errorf("%w: session record: %v", common.ErrorCorruptedState, err)
		}
	}
	return rec.State.User, nil
}

func (p *RepositoryPersister) SaveUser(ctx context.Context, u *models.User) error {
	var rec record
	rec.State.User = u
	rec.Version = recordVersion
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := p.repo.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
