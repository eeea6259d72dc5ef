// Package callback runs the loopback HTTP listener that receives the
// browser after an OAuth provider login.
package callback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

const (
	// PathCallback is the frontend callback route.
	PathCallback = "/oauth/callback"
	// PathDashboard is where the backend redirects after a provider login.
	PathDashboard = "/dashboard"

	MsgSuccess = "Login complete. You can close this window and return to the terminal.\n"
	MsgFailure = "Login failed. Return to the terminal for details.\n"

	shutdownTimeout = 5 * time.Second
)

// Handler finishes a login from the redirect query string.
// *services.OAuthCallback implements it.
type Handler interface {
	Handle(ctx context.Context, rawQuery string) error
}

// CookieSink takes the session cookie the browser brings back from the
// backend. *client.Jar implements it.
type CookieSink interface {
	Adopt(c *http.Cookie)
}

type Server struct {
	address string
	handler Handler
	cookies CookieSink
	logger  logging.Logger

	mu sync.Mutex
	ln net.Listener
}

// NewServer returns a listener forwarding redirects to h. A nil sink
// ignores browser cookies.
func NewServer(address string, h Handler, sink CookieSink, l logging.Logger) *Server {
	if l == nil {
		l = logging.Nop()
	}
	return &Server{address: address, handler: h, cookies: sink, logger: l.With("module", "callback_server")}
}

// Routes returns the chi router serving both redirect targets.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Get(PathCallback, s.handleCallback)
	r.Get(PathDashboard, s.handleCallback)
	return r
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.logger.Debug(ctx, "oauth redirect received", "path", r.URL.Path)

	// The backend sets the session cookie on the browser's response. Cookies
	// ignore ports, so a backend on the same loopback host shares it here.
	if c, err := r.Cookie(common.SessionCookieName); err == nil && c.Value != "" && s.cookies != nil {
		s.cookies.Adopt(c)
		s.logger.Debug(ctx, "session cookie taken from browser")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.handler.Handle(ctx, r.URL.RawQuery); err != nil {
		s.logger.Warn(ctx, "oauth callback failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(MsgFailure))
		return
	}
	_, _ = w.Write([]byte(MsgSuccess))
}

// Listen binds the address. Addr is valid afterwards.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("callback listener: %w", err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr is the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.address
}

// URL is the callback URL browsers should be sent back to.
func (s *Server) URL() string {
	return "http://" + s.Addr() + PathCallback
}

// Run serves until ctx is cancelled, listening first if needed.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.ln
		s.mu.Unlock()
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping callback server...")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	s.logger.Info(ctx, "Starting callback server", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
