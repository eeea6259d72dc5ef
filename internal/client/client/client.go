package client

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

// OAuth providers with a login endpoint on the backend.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// Client is the backend contract. Methods do not validate their input; that
// is the services layer's job.
type Client interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)
	VerifyEmail(ctx context.Context, req models.VerifyEmailRequest) (*models.VerificationResponse, error)
	ResendVerification(ctx context.Context, userID int64) (*models.VerificationResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.User, error)
	OAuthURL(ctx context.Context, provider string) (string, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error)

	TwoFactorStatus(ctx context.Context) (*models.TwoFactorStatus, error)
	TwoFactorSetup(ctx context.Context) (*models.TwoFactorSetup, error)
	TwoFactorEnable(ctx context.Context, token string) (*models.TwoFactorEnableResponse, error)
	TwoFactorDisable(ctx context.Context, password, token string) error

	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, newPassword string) error

	Close() error
}
