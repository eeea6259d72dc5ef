package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/client/services"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isLoading() bool
	report(err error)

	Status(ctx context.Context) error
	Register(ctx context.Context) error
	Verify(ctx context.Context) error
	Resend(ctx context.Context) error
	Login(ctx context.Context) error
	LoginWith(ctx context.Context, provider string) error
	Callback(ctx context.Context, rawURL string) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	TwoFactorStatus(ctx context.Context) error
	TwoFactorSetup(ctx context.Context) error
	TwoFactorEnable(ctx context.Context) error
	TwoFactorDisable(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	ResetPassword(ctx context.Context, code string) error
}

const (
	helpLoggedOut = "Available commands: status, register, verify, resend, login, google, facebook, callback <url>, forgot, reset [code], exit"
	helpLoggedIn  = "Available commands: status, profile, passwd, 2fa, 2fa-setup, 2fa-enable, 2fa-disable, logout, exit"
)

// protected commands need an authenticated session.
var protected = map[string]bool{
	"profile":     true,
	"passwd":      true,
	"2fa":         true,
	"2fa-setup":   true,
	"2fa-enable":  true,
	"2fa-disable": true,
}

// runREPL starts a simple read-eval-print loop for the authkeeper CLI.
//
// It reads a line from in, parses the first token as the command and
// dispatches to methods on a. While an operation is still loading every
// command is refused. After each command a.report prints the resulting
// error or flash message. The loop exits on EOF or when the user types
// "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("authkeeper %s> ", statusFn()))
		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if cmd == "help" {
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		}
		if a.isLoading() {
			printlnFn(services.MsgBusy)
			continue
		}
		if protected[cmd] && !a.isLoggedIn() {
			printlnFn("Please log in first.")
			continue
		}

		var cmdErr error
		switch cmd {
		case "status":
			cmdErr = a.Status(ctx)
		case "register":
			cmdErr = a.Register(ctx)
		case "verify":
			cmdErr = a.Verify(ctx)
		case "resend":
			cmdErr = a.Resend(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "google", "facebook":
			cmdErr = a.LoginWith(ctx, cmd)
		case "callback":
			if len(args) == 0 {
				printlnFn("Usage: callback <redirect url>")
				continue
			}
			cmdErr = a.Callback(ctx, args[0])
		case "logout":
			cmdErr = a.Logout(ctx)
		case "profile":
			cmdErr = a.Profile(ctx)
		case "passwd":
			cmdErr = a.ChangePassword(ctx)
		case "2fa":
			cmdErr = a.TwoFactorStatus(ctx)
		case "2fa-setup":
			cmdErr = a.TwoFactorSetup(ctx)
		case "2fa-enable":
			cmdErr = a.TwoFactorEnable(ctx)
		case "2fa-disable":
			cmdErr = a.TwoFactorDisable(ctx)
		case "forgot":
			cmdErr = a.ForgotPassword(ctx)
		case "reset":
			code := ""
			if len(args) > 0 {
				code = args[0]
			}
			cmdErr = a.ResetPassword(ctx, code)
		default:
			printlnFn("Unknown command:", cmd)
			continue
		}
		a.report(cmdErr)
	}
}
