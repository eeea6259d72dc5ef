// Package navigation tracks which screen the CLI is on, the flash state
// carried between screens, and hands external URLs to the system browser.
package navigation

import (
	"sync"
)

// Route names a screen.
type Route string

const (
	RouteLogin          Route = "/login"
	RouteRegister       Route = "/register"
	RouteVerifyEmail    Route = "/verify-email"
	RouteHome           Route = "/home"
	RouteProfile        Route = "/profile"
	RouteTwoFactor      Route = "/settings/2fa"
	RouteOAuthCallback  Route = "/oauth/callback"
	RouteForgotPassword Route = "/forgot-password"
	RouteResetPassword  Route = "/reset-password"
)

// Protected reports whether r needs an authenticated session.
func (r Route) Protected() bool {
	switch r {
	case RouteHome, RouteProfile, RouteTwoFactor:
		return true
	}
	return false
}

// State is the flash payload handed to the next screen.
type State struct {
	Message string
	Error   string
	Email   string
}

func (s State) Empty() bool {
	return s == State{}
}

// Router holds the current route. It is safe for concurrent use; the API
// client's 401 guard navigates from whichever goroutine made the request.
type Router struct {
	mu      sync.RWMutex
	current Route
	state   State
	history []Route
	onNav   []func(Route, State)
}

func NewRouter(start Route) *Router {
	return &Router{current: start, history: []Route{start}}
}

// Navigate switches to route, replacing any pending flash state.
func (r *Router) Navigate(to Route, st State) {
	r.mu.Lock()
	r.current = to
	r.state = st
	r.history = append(r.history, to)
	hooks := append([]func(Route, State){}, r.onNav...)
	r.mu.Unlock()

	for _, h := range hooks {
		h(to, st)
	}
}

func (r *Router) Current() Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// State returns the flash state without consuming it.
func (r *Router) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// TakeState returns the flash state and clears it.
func (r *Router) TakeState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state
	r.state = State{}
	return st
}

// History lists every route visited, oldest first.
func (r *Router) History() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Route(nil), r.history...)
}

// OnNavigate registers fn to run after every navigation.
func (r *Router) OnNavigate(fn func(Route, State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onNav = append(r.onNav, fn)
}
