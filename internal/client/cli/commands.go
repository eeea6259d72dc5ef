package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// getSimpleText, getPassword and getOptional are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getOptional   = GetOptional
)

// errCancelled means the user abandoned a prompt; nothing is reported.
var errCancelled = errors.New("cancelled")

func (a *App) ask(prompt string) (string, error) {
	s, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return "", errCancelled
	}
	return s, nil
}

func (a *App) askSecret(prompt string) ([]byte, error) {
	pw, err := getPassword(a.reader, prompt, a.out)
	if err != nil {
		return nil, errCancelled
	}
	return pw, nil
}

// Status prints the current screen, the session and any pending
// verification.
func (a *App) Status(ctx context.Context) error {
	printlnFn("Screen:", a.router.Current())

	if u := a.session.User(); u != nil {
		printlnFn(fmt.Sprintf("Logged in as %s <%s>, role %s", u.DisplayName(), u.Email, u.Role))
		if exp, err := a.jar.SessionExpiry(); err == nil {
			printlnFn("Session cookie expires:", exp.Local().Format(time.RFC1123))
		}
	} else {
		printlnFn("Not logged in")
	}

	if p, err := a.ledger.Load(ctx); err == nil {
		printlnFn(fmt.Sprintf("Pending verification for %s (user id %d)", p.Email, p.UserID))
	}
	if a.callback != nil {
		printlnFn("OAuth callback:", a.callback.URL())
	}
	return nil
}

func (a *App) Register(ctx context.Context) error {
	username, err := a.ask("Enter username")
	if err != nil {
		return err
	}
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	fullName, err := a.ask("Enter full name (optional)")
	if err != nil {
		return err
	}
	password, err := a.askSecret("Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.registration.Submit(ctx, services.RegisterInput{
		Username: username,
		Email:    email,
		Password: string(password),
		FullName: fullName,
	})
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("Registered with user id %d. Run 'verify' to enter the code.", p.UserID))
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	p, err := a.verification.Begin(ctx)
	if err != nil {
		return err
	}
	printlnFn("Verifying", p.Email)

	code, err := a.ask("Enter the 6-digit code")
	if err != nil {
		return err
	}
	return a.verification.Submit(ctx, code)
}

func (a *App) Resend(ctx context.Context) error {
	if err := a.verification.Resend(ctx); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("A new code has been sent. You can request another in %d seconds.",
		int(a.verification.CooldownRemaining().Round(time.Second)/time.Second)))
	return nil
}

// Login prompts for credentials. When the account has 2FA enabled the
// server refuses the first attempt and the code is asked for.
func (a *App) Login(ctx context.Context) error {
	prompt := "Enter email"
	if a.email != "" {
		prompt += " [" + a.email + "]"
	}
	email, err := a.ask(prompt)
	if err != nil {
		return err
	}
	if email == "" {
		email = a.email
	}

	password, err := a.askSecret("Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	in := services.LoginInput{Email: email, Password: string(password)}
	u, err := a.auth.Login(ctx, in)
	if errors.Is(err, client.ErrSecondFactorRequired) {
		printlnFn(a.takeError())
		if in.TOTPCode, err = a.ask("Enter the 6-digit code"); err != nil {
			return err
		}
		u, err = a.auth.Login(ctx, in)
	}
	if err != nil {
		return err
	}

	a.email = ""
	printlnFn("Logged in as", u.DisplayName())
	return nil
}

// LoginWith opens the provider's sign-in page and, with the callback
// listener running, waits for the browser to come back.
func (a *App) LoginWith(ctx context.Context, provider string) error {
	a.drainNavigation()

	if err := a.auth.LoginWithProvider(ctx, provider); err != nil {
		return err
	}

	if a.callback == nil {
		printlnFn("After signing in, copy the address the browser lands on and run: callback <url>")
		return nil
	}
	printlnFn("Waiting for the browser to return to", a.callback.URL())
	return a.waitForLogin(ctx)
}

func (a *App) drainNavigation() {
	for {
		select {
		case <-a.navCh:
		default:
			return
		}
	}
}

func (a *App) waitForLogin(ctx context.Context) error {
	timer := time.NewTimer(a.oauthWait)
	defer timer.Stop()

	for {
		select {
		case r := <-a.navCh:
			switch r {
			case navigation.RouteHome:
				if u := a.session.User(); u != nil {
					printlnFn("Logged in as", u.DisplayName())
				}
				return nil
			case navigation.RouteLogin:
				return nil
			}
		case <-timer.C:
			printlnFn("Still waiting for the browser. Finish signing in there, or run: callback <url>")
			return nil
		case <-ctx.Done():
			return errCancelled
		}
	}
}

// Callback completes a provider login from a pasted redirect URL.
func (a *App) Callback(ctx context.Context, rawURL string) error {
	if err := a.oauth.HandleURL(ctx, rawURL); err != nil {
		return err
	}
	if u := a.session.User(); u != nil {
		printlnFn("Logged in as", u.DisplayName())
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	printlnFn("Logged out.")
	return nil
}

// Profile shows the account and edits username and full name. Empty
// answers keep the current values.
func (a *App) Profile(ctx context.Context) error {
	u := a.session.User()
	if u == nil {
		return services.ErrNotLoggedIn
	}
	printlnFn(fmt.Sprintf("Username:  %s\nEmail:     %s\nFull name: %s\nRole:      %s", u.Username, u.Email, u.FullName, u.Role))

	username, err := getOptional(a.reader, "Username", u.Username, a.out)
	if err != nil {
		return errCancelled
	}
	fullName, err := getOptional(a.reader, "Full name", u.FullName, a.out)
	if err != nil {
		return errCancelled
	}

	if _, err := a.auth.UpdateProfile(ctx, services.ProfileChanges{Username: username, FullName: fullName}); err != nil {
		return err
	}
	printlnFn("Profile updated.")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	current, err := a.askSecret("Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)
	next, err := a.askSecret("New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)
	confirm, err := a.askSecret("Confirm new password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if err := a.auth.ChangePassword(ctx, string(current), string(next), string(confirm)); err != nil {
		return err
	}
	printlnFn("Password changed.")
	return nil
}

func (a *App) TwoFactorStatus(ctx context.Context) error {
	enabled, err := a.auth.TwoFactorStatus(ctx)
	if err != nil {
		return err
	}
	if enabled {
		printlnFn("Two-factor authentication is enabled.")
	} else {
		printlnFn("Two-factor authentication is disabled. Run '2fa-setup' to enable it.")
	}
	return nil
}

func (a *App) TwoFactorSetup(ctx context.Context) error {
	setup, err := a.auth.TwoFactorSetup(ctx)
	if err != nil {
		return err
	}

	printlnFn("Add this account to your authenticator app.")
	printlnFn("Manual entry key:", setup.ManualEntryKey)
	account := ""
	if u := a.session.User(); u != nil {
		account = u.Email
	}
	if uri, err := services.ProvisioningURI(setup, account, ""); err == nil {
		printlnFn("Provisioning URI:", uri)
	} else {
		a.logger.Warn(ctx, "cannot build provisioning uri", "error", err)
	}

	path, err := a.ask("Save the QR code as PNG to (empty to skip)")
	if err != nil {
		return err
	}
	if path != "" {
		if err := services.SaveQRCode(setup, path); err != nil {
			printlnFn("Error:", services.Describe(services.OpTwoFactorSetup, err))
		} else {
			printlnFn("QR code saved to", path)
		}
	}

	printlnFn("Then run '2fa-enable' with the code shown by the app.")
	return nil
}

// TwoFactorEnable confirms enrollment and does not return until the user
// acknowledges the backup codes.
func (a *App) TwoFactorEnable(ctx context.Context) error {
	code, err := a.ask("Enter the 6-digit code from your authenticator app")
	if err != nil {
		return err
	}
	resp, err := a.auth.TwoFactorEnable(ctx, code)
	if err != nil {
		return err
	}

	printlnFn("Two-factor authentication enabled.")
	printlnFn("Backup codes (each works once, they will not be shown again):")
	for _, c := range resp.BackupCodes {
		printlnFn("  " + c)
	}

	path, err := a.ask("Export backup codes to file (empty to skip)")
	if err != nil {
		return err
	}
	if path != "" {
		if err := services.ExportBackupCodes(resp.BackupCodes, path); err != nil {
			printlnFn("Error:", services.Describe(services.OpTwoFactorEnable, err))
		} else {
			printlnFn("Backup codes written to", path)
		}
	}
	return a.acknowledgeBackupCodes()
}

func (a *App) acknowledgeBackupCodes() error {
	for {
		s, err := a.ask("Type 'saved' once the backup codes are stored")
		if err != nil {
			return err
		}
		if strings.EqualFold(s, "saved") {
			return nil
		}
	}
}

func (a *App) TwoFactorDisable(ctx context.Context) error {
	password, err := a.askSecret("Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	code, err := a.ask("Enter the 6-digit code from your authenticator app")
	if err != nil {
		return err
	}

	if err := a.auth.TwoFactorDisable(ctx, string(password), code); err != nil {
		return err
	}
	printlnFn("Two-factor authentication disabled.")
	return nil
}

func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := a.ask("Enter your account email")
	if err != nil {
		return err
	}
	if err := a.auth.ForgotPassword(ctx, email); err != nil {
		return err
	}
	a.router.Navigate(navigation.RouteResetPassword, navigation.State{
		Message: "If an account exists for this email, a reset code has been sent. Run 'reset <code>'.",
	})
	return nil
}

// ResetPassword accepts the code or the whole reset link.
func (a *App) ResetPassword(ctx context.Context, code string) error {
	if i := strings.IndexByte(code, '?'); i >= 0 {
		code = services.ResetCodeFromQuery(code[i+1:])
	}
	if code == "" {
		var err error
		if code, err = a.ask("Enter the reset code from the email"); err != nil {
			return err
		}
	}

	next, err := a.askSecret("New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)
	confirm, err := a.askSecret("Confirm new password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	return a.auth.ResetPassword(ctx, code, string(next), string(confirm))
}
