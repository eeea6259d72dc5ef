package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Router is the part of navigation.Router the guard needs.
type Router interface {
	Current() navigation.Route
	Navigate(to navigation.Route, st navigation.State)
}

// SessionClearer drops the local session. session.Store implements it.
type SessionClearer interface {
	Logout()
}

// CookieClearer drops the stored cookies. *Jar implements it.
type CookieClearer interface {
	Clear(ctx context.Context) error
}

// sessionProbes may answer 401 as a normal outcome and never trigger the
// redirect. Logout is among them: it clears the session itself.
var sessionProbes = map[string]struct{}{
	PathMe:       {},
	PathLogin:    {},
	PathRegister: {},
	PathLogout:   {},
}

// UnauthorizedGuard wraps the transport. On a 401 from any endpoint other
// than the session probes, while not already on the login screen, it clears
// the session and navigates to login. The response is passed through
// unchanged either way.
type UnauthorizedGuard struct {
	router  Router
	session SessionClearer
	cookies CookieClearer
	log     logging.Logger

	next     http.RoundTripper
	basePath string
}

func NewUnauthorizedGuard(router Router, session SessionClearer, log logging.Logger) *UnauthorizedGuard {
	if log == nil {
		log = logging.Nop()
	}
	return &UnauthorizedGuard{router: router, session: session, log: log, next: http.DefaultTransport}
}

// WithCookies makes the guard drop the rejected session cookie too.
func (g *UnauthorizedGuard) WithCookies(c CookieClearer) *UnauthorizedGuard {
	g.cookies = c
	return g
}

func (g *UnauthorizedGuard) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := g.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	path := g.endpoint(req.URL.Path)
	if !g.shouldRedirect(path) {
		return resp, nil
	}

	g.log.Info(req.Context(), "session rejected by server, returning to login", "path", path)
	g.session.Logout()
	if g.cookies != nil {
		if err := g.cookies.Clear(req.Context()); err != nil {
			g.log.Warn(req.Context(), "failed to clear rejected cookies", "error", err)
		}
	}
	g.router.Navigate(navigation.RouteLogin, navigation.State{Error: "Your session has expired. Please log in again."})
	return resp, nil
}

func (g *UnauthorizedGuard) shouldRedirect(endpoint string) bool {
	if g.router.Current() == navigation.RouteLogin {
		return false
	}
	_, probe := sessionProbes[endpoint]
	return !probe
}

// endpoint strips the API base path so "/fullstack_authentication/auth/me"
// compares equal to PathMe.
func (g *UnauthorizedGuard) endpoint(p string) string {
	p = strings.TrimPrefix(p, g.basePath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
