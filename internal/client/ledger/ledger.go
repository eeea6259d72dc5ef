// Package ledger remembers the one account that registered but has not yet
// confirmed its email, so verification can happen in a later run.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
)

// StorageKey is the fixed slot of the pending record.
const StorageKey = "pending-verification"

// ErrNoPending means there is no usable pending record.
var ErrNoPending = errors.New("no pending verification")

type Pending struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

func (p Pending) valid() bool {
	return p.UserID > 0 && strings.TrimSpace(p.Email) != ""
}

type Ledger struct {
	repo metadata.Repository
}

func New(repo metadata.Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Save replaces any previous pending record.
func (l *Ledger) Save(ctx context.Context, p Pending) error {
	if !p.valid() {
		return fmt.Errorf("pending verification needs a user id and email, got %+v", p)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending verification: %w", err)
	}
	if err := l.repo.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("save pending verification: %w", err)
	}
	return nil
}

// Load returns ErrNoPending when the record is missing or unreadable.
// Storage failures are returned as-is.
func (l *Ledger) Load(ctx context.Context) (Pending, error) {
	raw, err := l.repo.Get(ctx, StorageKey)
	if err != nil {
		return Pending{}, fmt.Errorf("load pending verification: %w", err)
	}
	if raw == nil {
		return Pending{}, ErrNoPending
	}
	var p Pending
	if err := json.Unmarshal(raw, &p); err != nil || !p.valid() {
		return Pending{}, ErrNoPending
	}
	return p, nil
}

func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.repo.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear pending verification: %w", err)
	}
	return nil
}
