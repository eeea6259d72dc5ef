package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/dmitrijs2005/authkeeper/internal/client/session"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

const (
	MsgOAuthFailed   = "OAuth login failed. Please try again."
	MsgOAuthUserLoad = "Failed to load user data. Please try again."
)

// ErrOAuthFailed means the provider redirect did not report success.
var ErrOAuthFailed = errors.New("oauth login failed")

type callbackRun struct {
	once sync.Once
	err  error
}

// OAuthCallback finishes a provider login from the redirect-back query.
// Each distinct query is processed at most once; repeats return the first
// result without side effects.
type OAuthCallback struct {
	api    client.Client
	store  *session.Store
	router Navigator
	log    logging.Logger

	mu   sync.Mutex
	runs map[string]*callbackRun
}

func NewOAuthCallback(api client.Client, store *session.Store, router Navigator, log logging.Logger) *OAuthCallback {
	if log == nil {
		log = logging.Nop()
	}
	return &OAuthCallback{
		api:    api,
		store:  store,
		router: router,
		log:    log.With("component", "oauth"),
		runs:   map[string]*callbackRun{},
	}
}

// Handle processes rawQuery, for example "login=success".
func (h *OAuthCallback) Handle(ctx context.Context, rawQuery string) error {
	rawQuery = strings.TrimPrefix(rawQuery, "?")

	h.mu.Lock()
	r, ok := h.runs[rawQuery]
	if !ok {
		r = &callbackRun{}
		h.runs[rawQuery] = r
	}
	h.mu.Unlock()

	r.once.Do(func() { r.err = h.process(ctx, rawQuery) })
	return r.err
}

// HandleURL accepts the full redirect URL as pasted by a user.
func (h *OAuthCallback) HandleURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return invalid("url", "Invalid callback URL")
	}
	return h.Handle(ctx, u.RawQuery)
}

func (h *OAuthCallback) process(ctx context.Context, rawQuery string) error {
	q, _ := url.ParseQuery(rawQuery)

	if q.Get("login") != "success" {
		h.log.Warn(ctx, "oauth provider did not report success", "login", q.Get("login"), "error", q.Get("error"))
		h.router.Navigate(navigation.RouteLogin, navigation.State{Error: MsgOAuthFailed})
		return ErrOAuthFailed
	}

	u, err := h.api.Me(ctx)
	if err != nil {
		h.log.Warn(ctx, "oauth succeeded but loading the user failed", "status", client.StatusCode(err), "error", err)
		h.router.Navigate(navigation.RouteLogin, navigation.State{Error: MsgOAuthUserLoad})
		return fmt.Errorf("load oauth user: %w", err)
	}

	h.store.SetUser(u)
	h.log.Info(ctx, "oauth login completed", "user_id", u.ID)
	h.router.Navigate(navigation.RouteHome, navigation.State{})
	return nil
}
