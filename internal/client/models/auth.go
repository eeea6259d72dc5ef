package models

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	UserID  int64  `json:"user_id,omitempty"`
}

type VerifyEmailRequest struct {
	UserID int64  `json:"user_id"`
	Code   string `json:"code"`
}

type ResendVerificationRequest struct {
	UserID int64 `json:"user_id"`
}

// VerificationResponse is returned by both verify-email and
// resend-verification.
type VerificationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	UserID  int64  `json:"user_id,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type LoginResponse struct {
	User    User   `json:"user"`
	Message string `json:"message,omitempty"`
}

type OAuthURLResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// ProfileUpdate is a partial profile change. Nil fields are not sent.
type ProfileUpdate struct {
	Username        *string `json:"username,omitempty"`
	FullName        *string `json:"full_name,omitempty"`
	CurrentPassword *string `json:"current_password,omitempty"`
	NewPassword     *string `json:"new_password,omitempty"`
}

// Empty reports whether u carries no changes at all.
func (u ProfileUpdate) Empty() bool {
	return u.Username == nil && u.FullName == nil && u.CurrentPassword == nil && u.NewPassword == nil
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// MessageResponse is the generic {success, message} acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
