package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	loading  bool

	calls   []string
	reports int
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) isLoading() bool  { return f.loading }
func (f *fakeExec) report(error)     { f.reports++ }

func (f *fakeExec) call(name string) error {
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeExec) Status(context.Context) error   { return f.call("status") }
func (f *fakeExec) Register(context.Context) error { return f.call("register") }
func (f *fakeExec) Verify(context.Context) error   { return f.call("verify") }
func (f *fakeExec) Resend(context.Context) error   { return f.call("resend") }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.call("login")
}
func (f *fakeExec) LoginWith(_ context.Context, p string) error { return f.call("oauth:" + p) }
func (f *fakeExec) Callback(_ context.Context, u string) error  { return f.call("callback:" + u) }
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.call("logout")
}
func (f *fakeExec) Profile(context.Context) error          { return f.call("profile") }
func (f *fakeExec) ChangePassword(context.Context) error   { return f.call("passwd") }
func (f *fakeExec) TwoFactorStatus(context.Context) error  { return f.call("2fa") }
func (f *fakeExec) TwoFactorSetup(context.Context) error   { return f.call("2fa-setup") }
func (f *fakeExec) TwoFactorEnable(context.Context) error  { return f.call("2fa-enable") }
func (f *fakeExec) TwoFactorDisable(context.Context) error { return f.call("2fa-disable") }
func (f *fakeExec) ForgotPassword(context.Context) error   { return f.call("forgot") }
func (f *fakeExec) ResetPassword(_ context.Context, code string) error {
	return f.call("reset:" + code)
}

func capturePrint(t *testing.T) *strings.Builder {
	t.Helper()
	var out strings.Builder
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) { return fmt.Fprintln(&out, a...) }
	t.Cleanup(func() { printlnFn = orig })
	return &out
}

func TestRunREPL_Dispatch(t *testing.T) {
	capturePrint(t)

	input := strings.Join([]string{
		"status",
		"register",
		"verify",
		"resend",
		"google",
		"facebook",
		"callback http://localhost:5173/dashboard?login=success",
		"forgot",
		"reset",
		"reset abc123",
		"login",
		"profile",
		"passwd",
		"2fa",
		"2fa-setup",
		"2fa-enable",
		"2fa-disable",
		"logout",
		"exit",
		"status",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr(input))

	assert.Equal(t, []string{
		"status", "register", "verify", "resend", "oauth:google", "oauth:facebook",
		"callback:http://localhost:5173/dashboard?login=success", "forgot", "reset:", "reset:abc123",
		"login", "profile", "passwd", "2fa", "2fa-setup", "2fa-enable", "2fa-disable", "logout",
	}, exec.calls)
	assert.Equal(t, len(exec.calls), exec.reports)
}

func TestRunREPL_HelpDependsOnSession(t *testing.T) {
	out := capturePrint(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "s" }, rdr("help\nlogin\nhelp\n"))

	assert.Contains(t, out.String(), helpLoggedOut)
	assert.Contains(t, out.String(), helpLoggedIn)
}

func TestRunREPL_ProtectedCommandsNeedLogin(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("profile\n2fa-setup\npasswd\nquit\n"))

	assert.Empty(t, exec.calls)
	assert.Equal(t, 3, strings.Count(out.String(), "Please log in first."))
	assert.Contains(t, out.String(), "Bye!")
}

func TestRunREPL_RefusesWhileLoading(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{loading: true}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("login\nregister\nhelp\nexit\n"))

	assert.Empty(t, exec.calls)
	assert.Equal(t, 2, strings.Count(out.String(), services.MsgBusy))
	assert.Contains(t, out.String(), helpLoggedOut)
}

func TestRunREPL_UsageAndUnknown(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("callback\nfoobar\n\n"))

	assert.Empty(t, exec.calls)
	assert.Zero(t, exec.reports)
	assert.Contains(t, out.String(), "Usage: callback <redirect url>")
	assert.Contains(t, out.String(), "Unknown command: foobar")
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	capturePrint(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("status"))
	assert.Equal(t, []string{"status"}, exec.calls)
}
