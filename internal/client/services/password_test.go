package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForgotPassword(t *testing.T) {
	e := newEnv(t, navigation.RouteForgotPassword)
	var sent string
	e.api.forgotPassword = func(email string) error {
		sent = email
		return nil
	}

	require.NoError(t, e.auth.ForgotPassword(context.Background(), " bob@x.com "))
	assert.Equal(t, "bob@x.com", sent)

	err := e.auth.ForgotPassword(context.Background(), "bob")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, e.api.Calls(), 1)
}

func TestResetPassword(t *testing.T) {
	e := newEnv(t, navigation.RouteResetPassword)
	e.api.resetPassword = func(code, pw string) error {
		assert.Equal(t, "abc123", code)
		assert.Equal(t, "NewSecret1", pw)
		return nil
	}

	require.NoError(t, e.auth.ResetPassword(context.Background(), " abc123 ", "NewSecret1", "NewSecret1"))
	assert.Equal(t, navigation.RouteLogin, e.router.Current())
	assert.Equal(t, MsgPasswordReset, e.router.State().Message)
	assert.False(t, e.store.IsAuthenticated())
}

func TestResetPassword_Validation(t *testing.T) {
	tests := []struct {
		name, code, pw, confirm, msg string
	}{
		{"no code", "", "NewSecret1", "NewSecret1", "Reset code is required"},
		{"weak", "abc", "newsecret1", "newsecret1", "Password must contain at least one uppercase letter"},
		{"mismatch", "abc", "NewSecret1", "NewSecret2", "Passwords do not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, navigation.RouteResetPassword)
			err := e.auth.ResetPassword(context.Background(), tt.code, tt.pw, tt.confirm)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, tt.msg, e.store.Error())
			assert.Equal(t, navigation.RouteResetPassword, e.router.Current())
			assert.Empty(t, e.api.Calls())
		})
	}
}

func TestResetPassword_ExpiredCode(t *testing.T) {
	e := newEnv(t, navigation.RouteResetPassword)
	gone := apiErr(t, http.StatusGone, "")
	e.api.resetPassword = func(string, string) error { return gone }

	err := e.auth.ResetPassword(context.Background(), "abc", "NewSecret1", "NewSecret1")
	require.ErrorIs(t, err, client.ErrGone)
	assert.Equal(t, navigation.RouteResetPassword, e.router.Current())
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t, navigation.RouteProfile)
	e.store.SetUser(bob())
	var sent models.ProfileUpdate
	e.api.updateProfile = func(upd models.ProfileUpdate) (*models.User, error) {
		sent = upd
		return bob(), nil
	}

	require.NoError(t, e.auth.ChangePassword(context.Background(), "OldSecret1", "NewSecret1", "NewSecret1"))
	require.NotNil(t, sent.CurrentPassword)
	require.NotNil(t, sent.NewPassword)
	assert.Equal(t, "OldSecret1", *sent.CurrentPassword)
	assert.Equal(t, "NewSecret1", *sent.NewPassword)
	assert.Nil(t, sent.Username)
	assert.True(t, e.store.IsAuthenticated())
}

func TestChangePassword_Validation(t *testing.T) {
	tests := []struct {
		name, current, pw, confirm, msg string
	}{
		{"no current", "", "NewSecret1", "NewSecret1", "Current password is required"},
		{"no new", "old", "", "", "New password is required"},
		{"mismatch", "old", "NewSecret1", "NewSecret2", "New passwords do not match"},
		{"short", "old", "short", "short", "New password must be at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, navigation.RouteProfile)
			e.store.SetUser(bob())
			err := e.auth.ChangePassword(context.Background(), tt.current, tt.pw, tt.confirm)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, tt.msg, e.store.Error())
			assert.Empty(t, e.api.Calls())
		})
	}
}

func TestResetCodeFromQuery(t *testing.T) {
	assert.Equal(t, "abc", ResetCodeFromQuery("?code=abc"))
	assert.Equal(t, "abc", ResetCodeFromQuery("email=x&code=+abc+"))
	assert.Empty(t, ResetCodeFromQuery(""))
	assert.Empty(t, ResetCodeFromQuery("%zz"))
}
