package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthCallback_Success(t *testing.T) {
	e := newEnv(t, navigation.RouteOAuthCallback)
	e.api.me = func() (*models.User, error) { return bob(), nil }
	h := NewOAuthCallback(e.api, e.store, e.router, nil)

	require.NoError(t, h.Handle(context.Background(), "?login=success"))
	assert.True(t, e.store.IsAuthenticated())
	assert.Equal(t, navigation.RouteHome, e.router.Current())
}

func TestOAuthCallback_ProviderFailure(t *testing.T) {
	for _, q := range []string{"", "login=failed", "error=access_denied", "login=SUCCESS"} {
		t.Run(q, func(t *testing.T) {
			e := newEnv(t, navigation.RouteOAuthCallback)
			h := NewOAuthCallback(e.api, e.store, e.router, nil)

			err := h.Handle(context.Background(), q)
			require.ErrorIs(t, err, ErrOAuthFailed)
			assert.False(t, e.store.IsAuthenticated())
			assert.Equal(t, navigation.RouteLogin, e.router.Current())
			assert.Equal(t, MsgOAuthFailed, e.router.State().Error)
			assert.Empty(t, e.api.Calls())
		})
	}
}

func TestOAuthCallback_UserLoadFailure(t *testing.T) {
	e := newEnv(t, navigation.RouteOAuthCallback)
	unauthorized := apiErr(t, http.StatusUnauthorized, "")
	e.api.me = func() (*models.User, error) { return nil, unauthorized }
	h := NewOAuthCallback(e.api, e.store, e.router, nil)

	err := h.Handle(context.Background(), "login=success")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.False(t, e.store.IsAuthenticated())
	assert.Equal(t, navigation.RouteLogin, e.router.Current())
	assert.Equal(t, MsgOAuthUserLoad, e.router.State().Error)
}

func TestOAuthCallback_RunsOncePerQuery(t *testing.T) {
	e := newEnv(t, navigation.RouteOAuthCallback)
	e.api.me = func() (*models.User, error) { return bob(), nil }
	h := NewOAuthCallback(e.api, e.store, e.router, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Handle(context.Background(), "login=success"))
		}()
	}
	wg.Wait()
	require.NoError(t, h.Handle(context.Background(), "?login=success"))

	assert.Equal(t, []string{"me"}, e.api.Calls())
	assert.Equal(t, []navigation.Route{navigation.RouteOAuthCallback, navigation.RouteHome}, e.router.History())
}

func TestOAuthCallback_HandleURL(t *testing.T) {
	e := newEnv(t, navigation.RouteOAuthCallback)
	e.api.me = func() (*models.User, error) { return bob(), nil }
	h := NewOAuthCallback(e.api, e.store, e.router, nil)

	require.NoError(t, h.HandleURL(context.Background(), " http://localhost:5173/dashboard?login=success "))
	assert.True(t, e.store.IsAuthenticated())

	err := h.HandleURL(context.Background(), "http://[::1")
	require.ErrorIs(t, err, ErrInvalidInput)
}
