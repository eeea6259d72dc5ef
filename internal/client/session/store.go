// Package session holds the process-wide authentication state: the cached
// user, the loading flag and the last user-facing error.
package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Snapshot is a copy of the store's state.
// IsAuthenticated is always User != nil.
type Snapshot struct {
	User            *models.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// Persister saves and restores the user across process restarts. Only the
// user is persisted; loading and error always start fresh.
type Persister interface {
	LoadUser(ctx context.Context) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
}

// Store is the single owner of session state. Writes are last-write-wins;
// every method is safe for concurrent use.
type Store struct {
	// persistMu orders SaveUser calls the same way as the writes they record.
	persistMu sync.Mutex

	mu      sync.Mutex
	user    *models.User
	loading bool
	err     string

	persister Persister
	log       logging.Logger

	subs   map[int]func(Snapshot)
	nextID int
}

// NewStore returns a store in the initial state: no user, loading.
// A nil persister keeps the session in memory only.
func NewStore(p Persister, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{loading: true, persister: p, log: log, subs: map[int]func(Snapshot){}}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		User:            cloneUser(s.user),
		IsAuthenticated: s.user != nil,
		IsLoading:       s.loading,
		Error:           s.err,
	}
}

func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.user)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SetUser replaces the user and clears the error. Authentication follows
// from u being non-nil.
func (s *Store) SetUser(u *models.User) {
	s.update(func() {
		s.user = cloneUser(u)
		s.err = ""
	}, true)
}

func (s *Store) SetLoading(loading bool) {
	s.update(func() { s.loading = loading }, false)
}

func (s *Store) SetError(msg string) {
	s.update(func() { s.err = msg }, false)
}

func (s *Store) ClearError() {
	s.update(func() { s.err = "" }, false)
}

// Logout resets user and error. It never touches the network.
func (s *Store) Logout() {
	s.update(func() {
		s.user = nil
		s.err = ""
	}, true)
}

// Rehydrate restores the persisted user and then forces loading to false,
// also when nothing was persisted or the record could not be read.
func (s *Store) Rehydrate(ctx context.Context) error {
	err := s.Restore(ctx)
	s.SetLoading(false)
	return err
}

// Restore loads the persisted user without changing the loading flag.
func (s *Store) Restore(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	u, err := s.persister.LoadUser(ctx)
	if err != nil {
		return err
	}
	s.update(func() { s.user = cloneUser(u) }, false)
	return nil
}

// Subscribe calls fn after every change with the new state. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) update(fn func(), persist bool) {
	persist = persist && s.persister != nil
	if persist {
		s.persistMu.Lock()
	}

	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	if persist {
		if err := s.persister.SaveUser(context.Background(), snap.User); err != nil {
			s.log.Warn(context.Background(), "failed to persist session", "error", err)
		}
		s.persistMu.Unlock()
	}
	for _, sub := range subs {
		sub(snap)
	}
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		cp.UpdatedAt = &t
	}
	return &cp
}
