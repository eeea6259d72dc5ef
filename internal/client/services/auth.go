// Package services implements the authentication operations of the CLI on
// top of the API client, the session store and the router.
//
// Every operation follows one template: refuse if another is in flight,
// set loading and clear the error, validate input before any network call,
// update the session on success, store a single user-facing message on
// failure and return the original error, and always reset loading.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/dmitrijs2005/authkeeper/internal/client/session"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// ErrNotLoggedIn is returned by operations that need a cached user.
var ErrNotLoggedIn = errors.New("not logged in")

// Navigator is the part of navigation.Router services use.
type Navigator interface {
	Current() navigation.Route
	Navigate(to navigation.Route, st navigation.State)
}

// CookieClearer forgets the session cookie. *client.Jar implements it.
type CookieClearer interface {
	Clear(ctx context.Context) error
}

// RejectedError is a 2xx answer whose body says success=false.
type RejectedError struct {
	Op      Op
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rejected by server", e.Op)
	}
	return fmt.Sprintf("%s: rejected by server: %s", e.Op, e.Message)
}

type AuthService struct {
	api     client.Client
	store   *session.Store
	router  Navigator
	browser navigation.Browser
	cookies CookieClearer
	log     logging.Logger

	inflight atomic.Bool
}

type Deps struct {
	API     client.Client
	Store   *session.Store
	Router  Navigator
	Browser navigation.Browser
	Cookies CookieClearer
	Log     logging.Logger
}

func NewAuthService(d Deps) *AuthService {
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	return &AuthService{
		api:     d.API,
		store:   d.Store,
		router:  d.Router,
		browser: d.Browser,
		cookies: d.Cookies,
		log:     d.Log.With("component", "auth"),
	}
}

func (s *AuthService) Store() *session.Store { return s.store }

func (s *AuthService) run(ctx context.Context, op Op, fn func(ctx context.Context) error) error {
	if !s.inflight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inflight.Store(false)

	s.store.SetLoading(true)
	s.store.ClearError()
	defer s.store.SetLoading(false)

	err := fn(ctx)
	if err == nil {
		s.log.Debug(ctx, "auth operation succeeded", "op", op)
		return nil
	}

	s.store.SetError(Describe(op, err))
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNoChanges) {
		s.log.Debug(ctx, "auth operation rejected locally", "op", op, "error", err)
	} else {
		s.log.Warn(ctx, "auth operation failed", "op", op, "status", client.StatusCode(err), "error", err)
	}
	return err
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Register creates an unverified account. It never touches the session
// user; callers record the returned user id for verification.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.RegisterResponse, error) {
	var resp *models.RegisterResponse
	err := s.run(ctx, OpRegister, func(ctx context.Context) error {
		in.Username = strings.TrimSpace(in.Username)
		in.Email = strings.TrimSpace(in.Email)
		in.FullName = strings.TrimSpace(in.FullName)
		if err := check(registerInput(in)); err != nil {
			return err
		}

		r, err := s.api.Register(ctx, models.RegisterRequest(in))
		if err != nil {
			return err
		}
		if !r.Success {
			return &RejectedError{Op: OpRegister, Message: r.Message}
		}
		resp = r
		return nil
	})
	return resp, err
}

// VerifyEmail confirms the account. It never logs the user in.
func (s *AuthService) VerifyEmail(ctx context.Context, userID int64, code string) (*models.VerificationResponse, error) {
	var resp *models.VerificationResponse
	err := s.run(ctx, OpVerifyEmail, func(ctx context.Context) error {
		if err := check(verifyInput{UserID: userID, Code: code}); err != nil {
			return err
		}
		r, err := s.api.VerifyEmail(ctx, models.VerifyEmailRequest{UserID: userID, Code: code})
		if err != nil {
			return err
		}
		if !r.Success {
			return &RejectedError{Op: OpVerifyEmail, Message: r.Message}
		}
		resp = r
		return nil
	})
	return resp, err
}

// ParseUserID converts user input into a user id, failing with a
// ValidationError for anything that is not a positive integer.
func ParseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("user_id", "Invalid request data: user id must be a positive number")
	}
	return id, nil
}

// ResendVerification asks for a new code. A non-positive id fails before
// any network call.
func (s *AuthService) ResendVerification(ctx context.Context, userID int64) (*models.VerificationResponse, error) {
	var resp *models.VerificationResponse
	err := s.run(ctx, OpResend, func(ctx context.Context) error {
		if userID <= 0 {
			return invalid("user_id", "Invalid request data: user id is missing")
		}
		r, err := s.api.ResendVerification(ctx, userID)
		if err != nil {
			return err
		}
		if !r.Success {
			return &RejectedError{Op: OpResend, Message: r.Message}
		}
		resp = r
		return nil
	})
	return resp, err
}

type LoginInput struct {
	Email    string
	Password string
	// TOTPCode is sent only when non-empty.
	TOTPCode string
}

// Login authenticates and caches the returned user. When the server asks
// for a second factor the error wraps client.ErrSecondFactorRequired and the
// session stays logged out.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, OpLogin, func(ctx context.Context) error {
		in.Email = strings.TrimSpace(in.Email)
		in.TOTPCode = strings.TrimSpace(in.TOTPCode)
		if err := check(loginInput(in)); err != nil {
			return err
		}

		u, err := s.api.Login(ctx, models.LoginRequest(in))
		if err != nil {
			return err
		}
		s.store.SetUser(u)
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "logged in", "user_id", user.ID)
	s.router.Navigate(navigation.RouteHome, navigation.State{})
	return user, nil
}

// LoginWithProvider fetches the provider's authorization URL and hands it
// to the browser. The login completes later through OAuthCallback.
func (s *AuthService) LoginWithProvider(ctx context.Context, provider string) error {
	return s.run(ctx, OpOAuth, func(ctx context.Context) error {
		u, err := s.api.OAuthURL(ctx, provider)
		if err != nil {
			return err
		}
		s.log.Info(ctx, "redirecting to oauth provider", "provider", provider)
		return s.browser.Open(u)
	})
}

func (s *AuthService) LoginWithGoogle(ctx context.Context) error {
	return s.LoginWithProvider(ctx, client.ProviderGoogle)
}

func (s *AuthService) LoginWithFacebook(ctx context.Context) error {
	return s.LoginWithProvider(ctx, client.ProviderFacebook)
}

// Logout asks the server to end the session but clears local state no
// matter how that call ends. It only fails with ErrBusy.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.run(ctx, OpLogout, func(ctx context.Context) error {
		if err := s.api.Logout(ctx); err != nil {
			s.log.Warn(ctx, "server logout failed, clearing local session anyway", "error", err)
		}
		s.store.Logout()
		if s.cookies != nil {
			if err := s.cookies.Clear(ctx); err != nil {
				s.log.Warn(ctx, "failed to clear cookies", "error", err)
			}
		}
		if s.router.Current() != navigation.RouteLogin {
			s.router.Navigate(navigation.RouteLogin, navigation.State{})
		}
		return nil
	})
}

// ProfileChanges holds the profile form. Nil means the field was not
// edited.
type ProfileChanges struct {
	Username *string
	FullName *string
}

// UpdateProfile sends only the fields that differ from the cached user.
// When nothing differs it fails with ErrNoChanges without a network call.
func (s *AuthService) UpdateProfile(ctx context.Context, ch ProfileChanges) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, OpUpdateProfile, func(ctx context.Context) error {
		current := s.store.User()
		if current == nil {
			return ErrNotLoggedIn
		}

		var upd models.ProfileUpdate
		var in profileInput
		if ch.Username != nil {
			if v := strings.TrimSpace(*ch.Username); v != current.Username {
				upd.Username, in.Username = &v, v
			}
		}
		if ch.FullName != nil {
			if v := strings.TrimSpace(*ch.FullName); v != current.FullName {
				upd.FullName, in.FullName = &v, v
			}
		}
		if upd.Empty() {
			return ErrNoChanges
		}
		if upd.Username != nil && *upd.Username == "" {
			return invalid("username", "Username must be at least 3 characters")
		}
		if err := check(in); err != nil {
			return err
		}

		u, err := s.api.UpdateProfile(ctx, upd)
		if err != nil {
			return err
		}
		s.store.SetUser(u)
		user = u
		return nil
	})
	return user, err
}

func (s *AuthService) TwoFactorStatus(ctx context.Context) (bool, error) {
	var enabled bool
	err := s.run(ctx, OpTwoFactorStatus, func(ctx context.Context) error {
		st, err := s.api.TwoFactorStatus(ctx)
		if err != nil {
			return err
		}
		enabled = st.Enabled
		return nil
	})
	return enabled, err
}

// TwoFactorSetup starts enrollment. Not retried: a second call issues a new
// secret and invalidates the first.
func (s *AuthService) TwoFactorSetup(ctx context.Context) (*models.TwoFactorSetup, error) {
	var setup *models.TwoFactorSetup
	err := s.run(ctx, OpTwoFactorSetup, func(ctx context.Context) error {
		st, err := s.api.TwoFactorSetup(ctx)
		if err != nil {
			return err
		}
		setup = st
		return nil
	})
	return setup, err
}

// TwoFactorEnable confirms enrollment and returns the one-time backup codes.
func (s *AuthService) TwoFactorEnable(ctx context.Context, code string) (*models.TwoFactorEnableResponse, error) {
	var resp *models.TwoFactorEnableResponse
	err := s.run(ctx, OpTwoFactorEnable, func(ctx context.Context) error {
		code = strings.TrimSpace(code)
		if err := check(codeInput{Code: code}); err != nil {
			return err
		}
		r, err := s.api.TwoFactorEnable(ctx, code)
		if err != nil {
			return err
		}
		if !r.Success {
			return &RejectedError{Op: OpTwoFactorEnable, Message: r.Message}
		}
		resp = r
		return nil
	})
	return resp, err
}

func (s *AuthService) TwoFactorDisable(ctx context.Context, password, code string) error {
	return s.run(ctx, OpTwoFactorDisable, func(ctx context.Context) error {
		code = strings.TrimSpace(code)
		if password == "" {
			return invalid("password", "Current password is required to disable 2FA")
		}
		if err := check(disableTwoFactorInput{Password: password, Code: code}); err != nil {
			return err
		}
		return s.api.TwoFactorDisable(ctx, password, code)
	})
}
