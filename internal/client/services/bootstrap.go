package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/session"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Bootstrap resolves the session once per process start: it restores the
// persisted user, re-validates it with the server and then clears the
// loading flag, whatever happened.
type Bootstrap struct {
	api   client.Client
	store *session.Store
	log   logging.Logger

	once sync.Once
	err  error
}

func NewBootstrap(api client.Client, store *session.Store, log logging.Logger) *Bootstrap {
	if log == nil {
		log = logging.Nop()
	}
	return &Bootstrap{api: api, store: store, log: log.With("component", "bootstrap")}
}

// Run performs the bootstrap on its first call; later calls return the
// first result. The returned error is informational: the store is already
// in a consistent logged-out state when it is non-nil.
func (b *Bootstrap) Run(ctx context.Context) error {
	b.once.Do(func() { b.err = b.run(ctx) })
	return b.err
}

func (b *Bootstrap) run(ctx context.Context) error {
	defer b.store.SetLoading(false)

	if err := b.store.Restore(ctx); err != nil {
		b.log.Warn(ctx, "discarding unreadable session", "error", err)
		b.store.Logout()
		return fmt.Errorf("restore session: %w", err)
	}

	cached := b.store.User()
	if cached == nil {
		b.log.Debug(ctx, "no persisted session")
		return nil
	}

	u, err := b.api.Me(ctx)
	if err != nil {
		b.log.Info(ctx, "persisted session is no longer valid", "user_id", cached.ID, "status", client.StatusCode(err))
		b.store.Logout()
		return fmt.Errorf("validate session: %w", err)
	}

	b.store.SetUser(u)
	b.log.Info(ctx, "session restored", "user_id", u.ID)
	return nil
}
