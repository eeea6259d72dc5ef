package services

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
)

// MsgPasswordReset is shown on the login screen after a reset.
const MsgPasswordReset = "Password reset successfully. Please log in with your new password."

// ForgotPassword asks the server to email a reset code.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.run(ctx, OpForgotPassword, func(ctx context.Context) error {
		email = strings.TrimSpace(email)
		if err := check(emailInput{Email: email}); err != nil {
			return err
		}
		return s.api.ForgotPassword(ctx, email)
	})
}

// ResetPassword sets a new password using the emailed code and returns to
// the login screen.
func (s *AuthService) ResetPassword(ctx context.Context, code, newPassword, confirm string) error {
	err := s.run(ctx, OpResetPassword, func(ctx context.Context) error {
		code = strings.TrimSpace(code)
		if code == "" {
			return invalid("code", "Reset code is required")
		}
		if msg := passwordProblem(newPassword); msg != "" {
			return invalid("new_password", msg)
		}
		if newPassword != confirm {
			return invalid("confirm_password", "Passwords do not match")
		}
		return s.api.ResetPassword(ctx, code, newPassword)
	})
	if err != nil {
		return err
	}
	s.router.Navigate(navigation.RouteLogin, navigation.State{Message: MsgPasswordReset})
	return nil
}

// ChangePassword updates the password of the logged-in user through the
// profile endpoint. The cached user is left as is.
func (s *AuthService) ChangePassword(ctx context.Context, current, newPassword, confirm string) error {
	return s.run(ctx, OpChangePassword, func(ctx context.Context) error {
		switch {
		case current == "":
			return invalid("current_password", "Current password is required")
		case newPassword == "":
			return invalid("new_password", "New password is required")
		case newPassword != confirm:
			return invalid("confirm_password", "New passwords do not match")
		case utf8.RuneCountInString(newPassword) < 8:
			return invalid("new_password", "New password must be at least 8 characters")
		}
		if s.store.User() == nil {
			return ErrNotLoggedIn
		}
		_, err := s.api.UpdateProfile(ctx, models.ProfileUpdate{CurrentPassword: &current, NewPassword: &newPassword})
		return err
	})
}

// ResetCodeFromQuery returns the optional "code" parameter of the reset
// password link.
func ResetCodeFromQuery(rawQuery string) string {
	q, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(q.Get("code"))
}
