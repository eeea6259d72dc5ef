package client

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("no session cookie")

// SessionExpiry reads the exp claim of the access_token cookie. The token is
// not verified; the result is informational only (the server decides).
func (j *Jar) SessionExpiry() (time.Time, error) {
	raw, ok := j.Value(common.SessionCookieName)
	if !ok {
		return time.Time{}, ErrNoSession
	}
	return tokenExpiry(raw)
}

func tokenExpiry(raw string) (time.Time, error) {
	raw = strings.Trim(raw, `"`)
	raw = strings.TrimPrefix(raw, "Bearer ")

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse session token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("session token exp: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("session token has no exp claim")
	}
	return exp.Time, nil
}
