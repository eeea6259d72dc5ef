package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

func (c *HTTPClient) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	var resp models.RegisterResponse
	if err := c.do(ctx, http.MethodPost, PathRegister, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) VerifyEmail(ctx context.Context, req models.VerifyEmailRequest) (*models.VerificationResponse, error) {
	var resp models.VerificationResponse
	if err := c.do(ctx, http.MethodPost, PathVerifyEmail, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ResendVerification(ctx context.Context, userID int64) (*models.VerificationResponse, error) {
	var resp models.VerificationResponse
	req := models.ResendVerificationRequest{UserID: userID}
	if err := c.do(ctx, http.MethodPost, PathResendVerification, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodPost, PathLogin, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.User.Validate(); err != nil {
		return nil, fmt.Errorf("%w: login: %v", ErrInvalidResponse, err)
	}
	return &resp.User, nil
}

// OAuthURL asks the backend for the provider's authorization URL.
func (c *HTTPClient) OAuthURL(ctx context.Context, provider string) (string, error) {
	if provider != ProviderGoogle && provider != ProviderFacebook {
		return "", fmt.Errorf("unsupported oauth provider %q", provider)
	}
	var resp models.OAuthURLResponse
	if err := c.do(ctx, http.MethodGet, oauthLoginPath(provider), nil, &resp); err != nil {
		return "", err
	}
	u, err := url.Parse(resp.AuthorizationURL)
	if err != nil || !u.IsAbs() {
		return "", fmt.Errorf("%w: authorization url %q", ErrInvalidResponse, resp.AuthorizationURL)
	}
	return resp.AuthorizationURL, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.ack(ctx, http.MethodPost, PathLogout, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, PathMe, nil, &u); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("%w: me: %v", ErrInvalidResponse, err)
	}
	return &u, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPut, PathProfile, upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) TwoFactorStatus(ctx context.Context) (*models.TwoFactorStatus, error) {
	var st models.TwoFactorStatus
	if err := c.do(ctx, http.MethodGet, PathTwoFactorStatus, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) TwoFactorSetup(ctx context.Context) (*models.TwoFactorSetup, error) {
	var s models.TwoFactorSetup
	if err := c.do(ctx, http.MethodPost, PathTwoFactorSetup, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) TwoFactorEnable(ctx context.Context, token string) (*models.TwoFactorEnableResponse, error) {
	var resp models.TwoFactorEnableResponse
	if err := c.do(ctx, http.MethodPost, PathTwoFactorEnable, models.TwoFactorEnableRequest{Token: token}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) TwoFactorDisable(ctx context.Context, password, token string) error {
	req := models.TwoFactorDisableRequest{Password: password, Token: token}
	return c.ack(ctx, http.MethodPost, PathTwoFactorDisable, req)
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) error {
	return c.ack(ctx, http.MethodPost, PathForgotPassword, models.ForgotPasswordRequest{Email: email})
}

func (c *HTTPClient) ResetPassword(ctx context.Context, code, newPassword string) error {
	req := models.ResetPasswordRequest{Code: code, NewPassword: newPassword}
	return c.ack(ctx, http.MethodPost, PathResetPassword, req)
}
