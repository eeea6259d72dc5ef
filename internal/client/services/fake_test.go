package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/client/session"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

var errNotStubbed = errors.New("not stubbed")

// fakeAPI implements client.Client. Unset funcs fail with errNotStubbed.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	register       func(models.RegisterRequest) (*models.RegisterResponse, error)
	verifyEmail    func(models.VerifyEmailRequest) (*models.VerificationResponse, error)
	resend         func(int64) (*models.VerificationResponse, error)
	login          func(models.LoginRequest) (*models.User, error)
	oauthURL       func(string) (string, error)
	logout         func() error
	me             func() (*models.User, error)
	updateProfile  func(models.ProfileUpdate) (*models.User, error)
	twoFAStatus    func() (*models.TwoFactorStatus, error)
	twoFASetup     func() (*models.TwoFactorSetup, error)
	twoFAEnable    func(string) (*models.TwoFactorEnableResponse, error)
	twoFADisable   func(string, string) error
	forgotPassword func(string) error
	resetPassword  func(string, string) error
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Register(_ context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	f.record("register")
	if f.register == nil {
		return nil, errNotStubbed
	}
	return f.register(req)
}

func (f *fakeAPI) VerifyEmail(_ context.Context, req models.VerifyEmailRequest) (*models.VerificationResponse, error) {
	f.record("verify-email")
	if f.verifyEmail == nil {
		return nil, errNotStubbed
	}
	return f.verifyEmail(req)
}

func (f *fakeAPI) ResendVerification(_ context.Context, id int64) (*models.VerificationResponse, error) {
	f.record("resend")
	if f.resend == nil {
		return nil, errNotStubbed
	}
	return f.resend(id)
}

func (f *fakeAPI) Login(_ context.Context, req models.LoginRequest) (*models.User, error) {
	f.record("login")
	if f.login == nil {
		return nil, errNotStubbed
	}
	return f.login(req)
}

func (f *fakeAPI) OAuthURL(_ context.Context, provider string) (string, error) {
	f.record("oauth-url")
	if f.oauthURL == nil {
		return "", errNotStubbed
	}
	return f.oauthURL(provider)
}

func (f *fakeAPI) Logout(context.Context) error {
	f.record("logout")
	if f.logout == nil {
		return errNotStubbed
	}
	return f.logout()
}

func (f *fakeAPI) Me(context.Context) (*models.User, error) {
	f.record("me")
	if f.me == nil {
		return nil, errNotStubbed
	}
	return f.me()
}

func (f *fakeAPI) UpdateProfile(_ context.Context, upd models.ProfileUpdate) (*models.User, error) {
	f.record("update-profile")
	if f.updateProfile == nil {
		return nil, errNotStubbed
	}
	return f.updateProfile(upd)
}

func (f *fakeAPI) TwoFactorStatus(context.Context) (*models.TwoFactorStatus, error) {
	f.record("2fa-status")
	if f.twoFAStatus == nil {
		return nil, errNotStubbed
	}
	return f.twoFAStatus()
}

func (f *fakeAPI) TwoFactorSetup(context.Context) (*models.TwoFactorSetup, error) {
	f.record("2fa-setup")
	if f.twoFASetup == nil {
		return nil, errNotStubbed
	}
	return f.twoFASetup()
}

func (f *fakeAPI) TwoFactorEnable(_ context.Context, token string) (*models.TwoFactorEnableResponse, error) {
	f.record("2fa-enable")
	if f.twoFAEnable == nil {
		return nil, errNotStubbed
	}
	return f.twoFAEnable(token)
}

func (f *fakeAPI) TwoFactorDisable(_ context.Context, password, token string) error {
	f.record("2fa-disable")
	if f.twoFADisable == nil {
		return errNotStubbed
	}
	return f.twoFADisable(password, token)
}

func (f *fakeAPI) ForgotPassword(_ context.Context, email string) error {
	f.record("forgot-password")
	if f.forgotPassword == nil {
		return errNotStubbed
	}
	return f.forgotPassword(email)
}

func (f *fakeAPI) ResetPassword(_ context.Context, code, pw string) error {
	f.record("reset-password")
	if f.resetPassword == nil {
		return errNotStubbed
	}
	return f.resetPassword(code, pw)
}

func (f *fakeAPI) Close() error { return nil }

var _ client.Client = (*fakeAPI)(nil)

type fakeBrowser struct{ opened []string }

func (b *fakeBrowser) Open(u string) error {
	b.opened = append(b.opened, u)
	return nil
}

type fakeCookies struct{ cleared int }

func (c *fakeCookies) Clear(context.Context) error {
	c.cleared++
	return nil
}

// apiErr builds the error the HTTP client returns for a status response.
func apiErr(t *testing.T, status int, detail string) error {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if detail != "" {
			_, _ = w.Write([]byte(`{"detail":"` + detail + `"}`))
		}
	}))
	t.Cleanup(srv.Close)

	c, err := client.NewHTTPClient(srv.URL, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Me(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	return err
}

type env struct {
	api     *fakeAPI
	store   *session.Store
	router  *navigation.Router
	browser *fakeBrowser
	cookies *fakeCookies
	repo    *metadata.MemoryRepository
	ledger  *ledger.Ledger
	auth    *AuthService
}

func newEnv(t *testing.T, start navigation.Route) *env {
	t.Helper()
	e := &env{
		api:     &fakeAPI{},
		router:  navigation.NewRouter(start),
		browser: &fakeBrowser{},
		cookies: &fakeCookies{},
		repo:    metadata.NewMemoryRepository(),
	}
	e.store = session.NewStore(session.NewRepositoryPersister(e.repo), logging.Nop())
	e.store.SetLoading(false)
	e.ledger = ledger.New(e.repo)
	e.auth = NewAuthService(Deps{
		API: e.api, Store: e.store, Router: e.router, Browser: e.browser, Cookies: e.cookies, Log: logging.Nop(),
	})
	return e
}

func bob() *models.User {
	return &models.User{ID: 42, Username: "bob1", Email: "bob@x.com", FullName: "Bob", Role: models.RoleUser, IsActive: true}
}
