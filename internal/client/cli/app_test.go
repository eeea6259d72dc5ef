package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/dmitrijs2005/authkeeper/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bobJSON = `{"id":42,"username":"bob1","email":"bob@x.com","full_name":"Bob","is_active":true,"role":"user","created_at":"2024-01-01T00:00:00Z"}`

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// backend is a FastAPI-shaped fake mounted under /api.
type backend struct {
	mu     sync.Mutex
	mux    *http.ServeMux
	bodies map[string][]string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{mux: http.NewServeMux(), bodies: map[string][]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
		b.bodies[key] = append(b.bodies[key], string(raw))
		b.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		b.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

// on registers a handler for "METHOD /auth/...".
func (b *backend) on(pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	b.mux.HandleFunc(method+" /api"+path, h)
}

func (b *backend) reply(pattern string, status int, body string) {
	b.on(pattern, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	})
}

func (b *backend) received(key string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies[key]...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type browserFunc func(string) error

func (f browserFunc) Open(u string) error { return f(u) }

func stubBrowser(t *testing.T, fn browserFunc) {
	t.Helper()
	orig := newBrowser
	newBrowser = func(io.Writer) navigation.Browser { return fn }
	t.Cleanup(func() { newBrowser = orig })
}

func newTestApp(t *testing.T, srv *httptest.Server, input string, mutate ...func(*config.Config)) (*App, *syncBuffer) {
	t.Helper()
	cfg := &config.Config{
		APIBaseURL:     srv.URL + "/api",
		RequestTimeout: 2 * time.Second,
		StorageBackend: config.StorageMemory,
		ResendCooldown: time.Minute,
		LogFormat:      "text",
		LogLevel:       "error",
	}
	for _, m := range mutate {
		m(cfg)
	}

	out := &syncBuffer{}
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) { return fmt.Fprintln(out, a...) }
	stubTerminal(t, false, nil, nil)

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	app.reader = rdr(input)
	app.out = out

	t.Cleanup(func() {
		printlnFn = orig
		_ = app.Close()
	})
	return app, out
}

func seedUser(t *testing.T, app *App) {
	t.Helper()
	var u models.User
	require.NoError(t, json.Unmarshal([]byte(bobJSON), &u))
	require.NoError(t, session.NewRepositoryPersister(app.storage.Metadata).SaveUser(context.Background(), &u))
}

func TestApp_RegisterVerifyLogin(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("POST /auth/register", http.StatusOK, `{"success":true,"message":"Registered","user_id":42}`)
	b.reply("POST /auth/verify-email", http.StatusOK, `{"success":true,"message":"Verified","user_id":42}`)
	b.on("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "tok", Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, `{"user":`+bobJSON+`,"message":"Login successful"}`)
	})
	b.reply("POST /auth/logout", http.StatusOK, `{"message":"Logged out"}`)

	input := strings.Join([]string{
		"register", "bob1", "bob@x.com", "Bob", "Secret123",
		"status",
		"verify", "123 456",
		"login", "", "Secret123",
		"status",
		"logout",
		"exit",
	}, "\n") + "\n"
	app, out := newTestApp(t, srv, input)

	require.NoError(t, app.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Registered with user id 42")
	assert.Contains(t, text, "We've sent a 6-digit verification code to bob@x.com")
	assert.Contains(t, text, "Pending verification for bob@x.com (user id 42)")
	assert.Contains(t, text, services.MsgEmailVerified)
	assert.Contains(t, text, "Logged in as Bob")
	assert.Contains(t, text, "Logged in as Bob <bob@x.com>, role user")
	assert.Contains(t, text, "Logged out.")
	assert.NotContains(t, text, "Error:")

	assert.JSONEq(t, `{"username":"bob1","email":"bob@x.com","password":"Secret123","full_name":"Bob"}`,
		b.received("POST /auth/register")[0])
	assert.JSONEq(t, `{"user_id":42,"code":"123456"}`, b.received("POST /auth/verify-email")[0])
	assert.JSONEq(t, `{"email":"bob@x.com","password":"Secret123"}`, b.received("POST /auth/login")[0])
	assert.Equal(t, navigation.RouteLogin, app.router.Current())
}

func TestApp_LoginWithSecondFactor(t *testing.T) {
	b, srv := newBackend(t)
	b.on("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.TOTPCode == "" {
			writeJSON(w, http.StatusForbidden, `{"detail":"2FA_REQUIRED"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"user":`+bobJSON+`}`)
	})

	app, out := newTestApp(t, srv, "login\nbob@x.com\nSecret123\n123456\nexit\n")
	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, out.String(), services.MsgSecondFactorRequired)
	assert.Contains(t, out.String(), "Logged in as Bob")
	assert.Len(t, b.received("POST /auth/login"), 2)
	assert.True(t, app.session.IsAuthenticated())
}

func TestApp_BadCredentials(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("POST /auth/login", http.StatusUnauthorized, `{"detail":"Invalid email or password"}`)

	app, out := newTestApp(t, srv, "login\nbob@x.com\nwrong\nexit\n")
	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, 1, strings.Count(out.String(), "Error: "+services.MsgBadCredentials))
	assert.NotContains(t, out.String(), "session has expired")
	assert.False(t, app.session.IsAuthenticated())
}

func TestApp_BootstrapRestoresSession(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("GET /auth/me", http.StatusOK, bobJSON)

	app, out := newTestApp(t, srv, "status\nexit\n")
	seedUser(t, app)
	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, out.String(), "Welcome back, Bob")
	assert.Contains(t, out.String(), "authkeeper (bob1 /home)>")
	assert.Len(t, b.received("GET /auth/me"), 1)
}

func TestApp_BootstrapDropsStaleSession(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("GET /auth/me", http.StatusUnauthorized, `{"detail":"Not authenticated"}`)

	app, out := newTestApp(t, srv, "exit\n")
	seedUser(t, app)
	require.NoError(t, app.Run(context.Background()))

	assert.NotContains(t, out.String(), "Welcome back")
	assert.False(t, app.session.IsAuthenticated())
	assert.Equal(t, navigation.RouteLogin, app.router.Current())
}

func TestApp_ExpiredSessionRedirectsToLogin(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("GET /auth/me", http.StatusOK, bobJSON)
	b.reply("GET /auth/2fa/status", http.StatusUnauthorized, `{"detail":"Token expired"}`)

	app, out := newTestApp(t, srv, "2fa\nprofile\nexit\n")
	seedUser(t, app)
	require.NoError(t, app.Run(context.Background()))

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "Your session has expired. Please log in again."))
	assert.Contains(t, text, "Please log in first.")
	assert.False(t, app.session.IsAuthenticated())
	assert.Equal(t, navigation.RouteLogin, app.router.Current())
}

func TestApp_OAuthThroughCallbackListener(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("GET /auth/google/login", http.StatusOK, `{"authorization_url":"https://accounts.google.com/o/oauth2/auth?client_id=x"}`)
	b.on("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("access_token"); err != nil || c.Value != "tok" {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Not authenticated"}`)
			return
		}
		writeJSON(w, http.StatusOK, bobJSON)
	})

	var app *App
	opened := make(chan string, 1)
	stubBrowser(t, func(u string) error {
		opened <- u
		go func() {
			// The browser returns with the cookie the backend set on its redirect.
			req, err := http.NewRequest(http.MethodGet, app.callback.URL()+"?login=success", nil)
			if err != nil {
				return
			}
			req.AddCookie(&http.Cookie{Name: "access_token", Value: "tok"})
			resp, err := http.DefaultClient.Do(req)
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	})

	app, out := newTestApp(t, srv, "google\nstatus\nexit\n", func(c *config.Config) {
		c.CallbackAddr = "127.0.0.1:0"
	})
	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?client_id=x", <-opened)
	assert.Contains(t, out.String(), "Logged in as Bob")
	assert.Contains(t, out.String(), "OAuth callback: http://127.0.0.1:")
	assert.True(t, app.session.IsAuthenticated())
	assert.NotContains(t, out.String(), services.MsgOAuthUserLoad)

	tok, ok := app.jar.Value("access_token")
	require.True(t, ok)
	assert.Equal(t, "tok", tok)
}

func TestApp_OAuthPastedFailure(t *testing.T) {
	_, srv := newBackend(t)

	app, out := newTestApp(t, srv, "callback http://localhost:5173/dashboard?login=failed\nexit\n")
	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, 1, strings.Count(out.String(), "Error: "+services.MsgOAuthFailed))
	assert.False(t, app.session.IsAuthenticated())
}

func TestApp_ResendCooldown(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("POST /auth/resend-verification", http.StatusOK, `{"success":true,"message":"Sent"}`)

	app, out := newTestApp(t, srv, "resend\nresend\nexit\n")
	require.NoError(t, ledger.New(app.storage.Metadata).Save(context.Background(), ledger.Pending{UserID: 42, Email: "bob@x.com"}))
	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, out.String(), "A new code has been sent.")
	assert.Contains(t, out.String(), "Error: Please wait")
	assert.Len(t, b.received("POST /auth/resend-verification"), 1)
	assert.JSONEq(t, `{"user_id":42}`, b.received("POST /auth/resend-verification")[0])
}

func TestApp_VerifyWithoutPending(t *testing.T) {
	_, srv := newBackend(t)

	app, out := newTestApp(t, srv, "verify\nexit\n")
	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, out.String(), "No pending verification found. Please register first.")
	assert.Equal(t, navigation.RouteRegister, app.router.Current())
}

func TestApp_ForgotAndResetFromLink(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("POST /auth/password/forget", http.StatusOK, `{"success":true}`)
	b.reply("POST /auth/password/reset", http.StatusOK, `{"success":true}`)

	input := "forgot\nbob@x.com\nreset http://localhost:5173/reset-password?code=abc\nNewSecret1\nNewSecret1\nexit\n"
	app, out := newTestApp(t, srv, input)
	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, out.String(), "a reset code has been sent")
	assert.Contains(t, out.String(), services.MsgPasswordReset)
	assert.JSONEq(t, `{"email":"bob@x.com"}`, b.received("POST /auth/password/forget")[0])
	assert.JSONEq(t, `{"code":"abc","new_password":"NewSecret1"}`, b.received("POST /auth/password/reset")[0])
	assert.Equal(t, navigation.RouteLogin, app.router.Current())
}

func TestApp_ProfileNoChanges(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("GET /auth/me", http.StatusOK, bobJSON)

	app, out := newTestApp(t, srv, "profile\n\n\nexit\n")
	seedUser(t, app)
	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, out.String(), "Error: "+services.MsgNoChanges)
	assert.Empty(t, b.received("PUT /auth/profile"))
}

func TestApp_TwoFactorSetupAndEnable(t *testing.T) {
	b, srv := newBackend(t)
	b.reply("GET /auth/me", http.StatusOK, bobJSON)
	png := append([]byte("\x89PNG\r\n\x1a\n"), 1, 2, 3)
	b.reply("POST /auth/2fa/setup", http.StatusOK, fmt.Sprintf(
		`{"secret":"JBSWY3DPEHPK3PXP","manual_entry_key":"JBSWY3DPEHPK3PXP","qr_code":"data:image/png;base64,%s"}`,
		base64.StdEncoding.EncodeToString(png)))
	b.reply("POST /auth/2fa/enable", http.StatusOK, `{"success":true,"backup_codes":["AAAA-1111","BBBB-2222"]}`)

	dir := t.TempDir()
	qrPath := filepath.Join(dir, "qr.png")
	codesPath := filepath.Join(dir, "codes.txt")
	input := strings.Join([]string{
		"2fa-setup", qrPath,
		"2fa-enable", "123456", codesPath, "later", "saved",
		"exit",
	}, "\n") + "\n"

	app, out := newTestApp(t, srv, input)
	seedUser(t, app)
	require.NoError(t, app.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "otpauth://totp/")
	assert.Contains(t, text, "AAAA-1111")
	assert.Equal(t, 2, strings.Count(text, "Type 'saved' once the backup codes are stored"))

	gotQR, err := os.ReadFile(qrPath)
	require.NoError(t, err)
	assert.Equal(t, png, gotQR)
	gotCodes, err := os.ReadFile(codesPath)
	require.NoError(t, err)
	assert.Equal(t, "AAAA-1111\nBBBB-2222\n", string(gotCodes))
}
