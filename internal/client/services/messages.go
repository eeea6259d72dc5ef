package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
)

// Op names an auth operation for error translation and logging.
type Op string

const (
	OpRegister         Op = "register"
	OpVerifyEmail      Op = "verify-email"
	OpResend           Op = "resend-verification"
	OpLogin            Op = "login"
	OpOAuth            Op = "oauth"
	OpLogout           Op = "logout"
	OpMe               Op = "me"
	OpUpdateProfile    Op = "update-profile"
	OpChangePassword   Op = "change-password"
	OpTwoFactorStatus  Op = "2fa-status"
	OpTwoFactorSetup   Op = "2fa-setup"
	OpTwoFactorEnable  Op = "2fa-enable"
	OpTwoFactorDisable Op = "2fa-disable"
	OpForgotPassword   Op = "forgot-password"
	OpResetPassword    Op = "reset-password"
)

var genericMessages = map[Op]string{
	OpRegister:         "Registration failed. Please try again.",
	OpVerifyEmail:      "Verification failed. Please try again.",
	OpResend:           "Failed to resend the verification code. Please try again.",
	OpLogin:            "Login failed. Please try again.",
	OpOAuth:            "OAuth login failed. Please try again.",
	OpLogout:           "Logout failed.",
	OpMe:               "Failed to load user data. Please try again.",
	OpUpdateProfile:    "Failed to update profile. Please try again.",
	OpChangePassword:   "Failed to change password. Please try again.",
	OpTwoFactorStatus:  "Failed to load 2FA status",
	OpTwoFactorSetup:   "Failed to setup 2FA",
	OpTwoFactorEnable:  "Failed to enable 2FA",
	OpTwoFactorDisable: "Failed to disable 2FA",
	OpForgotPassword:   "Failed to send reset email. Please try again.",
	OpResetPassword:    "Failed to reset password. Please try again.",
}

// User-facing messages shared by several mappings.
const (
	MsgSecondFactorRequired = "Two-factor authentication is enabled. Enter the 6-digit code from your authenticator app."
	MsgNotVerified          = "Your account is not verified. Please check your email for the verification code."
	MsgBadCredentials       = "Invalid email or password. Please try again."
	MsgRateLimited          = "Too many attempts. Please wait a moment and try again."
	MsgUnavailable          = "Service temporarily unavailable. Please try again later."
	MsgUnreachable          = "Cannot reach the server. Check your connection and try again."
	MsgNoChanges            = "No changes detected"
	MsgBusy                 = "Another request is still in progress. Please wait."
)

// Describe turns err from op into the single message shown to the user.
// Specific statuses win; otherwise the server detail, otherwise a generic
// message for op.
func Describe(op Op, err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	var cerr *CooldownError
	var rej *RejectedError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &rej):
		if rej.Message != "" {
			return rej.Message
		}
		return genericMessage(op)
	case errors.As(err, &cerr):
		return fmt.Sprintf("Please wait %d seconds before requesting a new code.", int(cerr.Remaining.Round(time.Second)/time.Second))
	case errors.Is(err, ErrNoChanges):
		return MsgNoChanges
	case errors.Is(err, ErrBusy):
		return MsgBusy
	case errors.Is(err, ErrNotLoggedIn):
		return "Please log in first."
	case errors.Is(err, ErrNoPending):
		return "No pending verification found. Please register first."
	case errors.Is(err, client.ErrNetwork):
		return MsgUnreachable
	case errors.Is(err, client.ErrInvalidResponse):
		return "The server sent an unexpected response. Please try again."
	}

	detail := client.Detail(err)
	if msg := describeStatus(op, err, detail); msg != "" {
		return msg
	}
	if detail != "" {
		return detail
	}
	return genericMessage(op)
}

func genericMessage(op Op) string {
	if msg, ok := genericMessages[op]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}

func describeStatus(op Op, err error, detail string) string {
	lower := strings.ToLower(detail)

	switch status := client.StatusCode(err); {
	case status == http.StatusBadRequest:
		switch {
		case strings.Contains(lower, "email") && (strings.Contains(lower, "exist") || strings.Contains(lower, "taken")):
			return "This email is already registered. Try logging in instead."
		case strings.Contains(lower, "username") && (strings.Contains(lower, "exist") || strings.Contains(lower, "taken")):
			return "This username is already taken. Please choose another one."
		case detail == "":
			return "Please check your input and try again."
		}
		return ""
	case status == http.StatusUnauthorized:
		switch op {
		case OpLogin:
			return MsgBadCredentials
		case OpTwoFactorDisable, OpChangePassword:
			return "Current password is incorrect."
		}
		return "Your session has expired. Please log in again."
	case status == http.StatusForbidden:
		switch {
		case errors.Is(err, client.ErrSecondFactorRequired):
			return MsgSecondFactorRequired
		case errors.Is(err, client.ErrNotVerified), op == OpLogin:
			return MsgNotVerified
		}
		return "You do not have permission to do that."
	case status == http.StatusNotFound:
		if op == OpVerifyEmail || op == OpResend {
			return "Account not found. Please register again."
		}
		return "The requested resource was not found."
	case status == http.StatusConflict:
		return "Already exists or already subscribed."
	case status == http.StatusGone:
		return "This code has expired. Please request a new one."
	case status == http.StatusUnprocessableEntity:
		if detail != "" {
			return "Invalid format: " + detail
		}
		return "Some fields have an invalid format. Please check your input."
	case status == http.StatusTooManyRequests:
		return MsgRateLimited
	case status >= 500:
		return MsgUnavailable
	}
	return ""
}
