package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// MsgEmailVerified is shown on the login screen after verification.
const MsgEmailVerified = "Email verified! Please log in to continue"

// Registration registers an account and remembers it for verification.
type Registration struct {
	auth   *AuthService
	ledger *ledger.Ledger
	router Navigator
	log    logging.Logger
}

func NewRegistration(auth *AuthService, l *ledger.Ledger, router Navigator, log logging.Logger) *Registration {
	if log == nil {
		log = logging.Nop()
	}
	return &Registration{auth: auth, ledger: l, router: router, log: log}
}

// Submit registers, records the pending verification and moves to the
// verification screen.
func (r *Registration) Submit(ctx context.Context, in RegisterInput) (ledger.Pending, error) {
	resp, err := r.auth.Register(ctx, in)
	if err != nil {
		return ledger.Pending{}, err
	}

	p := ledger.Pending{UserID: resp.UserID, Email: in.Email}
	if err := r.ledger.Save(ctx, p); err != nil {
		r.auth.Store().SetError("Registered, but the verification details could not be saved. Please register again.")
		return ledger.Pending{}, fmt.Errorf("registration: %w", err)
	}

	r.log.Info(ctx, "registered, awaiting verification", "user_id", p.UserID)
	r.router.Navigate(navigation.RouteVerifyEmail, navigation.State{
		Email:   p.Email,
		Message: "We've sent a 6-digit verification code to " + p.Email,
	})
	return p, nil
}

// Verification drives the verification screen from the ledger.
type Verification struct {
	auth     *AuthService
	ledger   *ledger.Ledger
	router   Navigator
	cooldown *Cooldown
	log      logging.Logger
}

func NewVerification(auth *AuthService, l *ledger.Ledger, router Navigator, cooldown *Cooldown, log logging.Logger) *Verification {
	if log == nil {
		log = logging.Nop()
	}
	return &Verification{auth: auth, ledger: l, router: router, cooldown: cooldown, log: log}
}

// Begin loads the pending account. Without one the screen cannot work, so
// it navigates to registration and returns ErrNoPending.
func (v *Verification) Begin(ctx context.Context) (ledger.Pending, error) {
	p, err := v.ledger.Load(ctx)
	if errors.Is(err, ledger.ErrNoPending) {
		v.router.Navigate(navigation.RouteRegister, navigation.State{})
		return ledger.Pending{}, err
	}
	if err != nil {
		return ledger.Pending{}, err
	}
	return p, nil
}

// Submit verifies code for the pending account, forgets it and sends the
// user to log in with the email prefilled.
func (v *Verification) Submit(ctx context.Context, code string) error {
	p, err := v.Begin(ctx)
	if err != nil {
		return err
	}

	if _, err := v.auth.VerifyEmail(ctx, p.UserID, SanitizeCode(code)); err != nil {
		return err
	}

	if err := v.ledger.Clear(ctx); err != nil {
		v.log.Warn(ctx, "verified but failed to clear pending record", "error", err)
	}
	v.router.Navigate(navigation.RouteLogin, navigation.State{Message: MsgEmailVerified, Email: p.Email})
	return nil
}

// Resend requests a new code unless the cooldown is running. The cooldown
// restarts before the request and is not affected by its outcome.
func (v *Verification) Resend(ctx context.Context) error {
	p, err := v.Begin(ctx)
	if err != nil {
		return err
	}

	if rem := v.cooldown.Remaining(); rem > 0 {
		cerr := &CooldownError{Remaining: rem}
		v.auth.Store().SetError(Describe(OpResend, cerr))
		return cerr
	}
	v.cooldown.Start()

	_, err = v.auth.ResendVerification(ctx, p.UserID)
	return err
}

// CooldownRemaining exposes the resend timer for display.
func (v *Verification) CooldownRemaining() time.Duration {
	return v.cooldown.Remaining()
}
