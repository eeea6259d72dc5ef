package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrBadRequest           = errors.New("bad request")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrSecondFactorRequired = errors.New("second factor required")
	ErrNotVerified          = errors.New("account not verified")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrGone                 = errors.New("gone")
	ErrUnprocessable        = errors.New("unprocessable input")
	ErrRateLimited          = errors.New("rate limited")
	ErrUnavailable          = errors.New("server unavailable")
	ErrUnexpectedStatus     = errors.New("unexpected status")

	ErrNetwork         = errors.New("network error")
	ErrInvalidResponse = errors.New("invalid response")
)

// SecondFactorDetail is the 403 detail the backend sends when a login needs
// a TOTP code.
const SecondFactorDetail = "2FA_REQUIRED"

// APIError is a non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Detail is the server-provided message, if any.
	Detail string

	kind error
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *APIError) Unwrap() error { return e.kind }

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, StatusCode: status, Detail: parseDetail(body)}
	e.kind = classify(status, e.Detail)
	return e
}

func classify(status int, detail string) error {
	switch {
	case status == http.StatusBadRequest:
		return ErrBadRequest
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return classifyForbidden(detail)
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusGone:
		return ErrGone
	case status == http.StatusUnprocessableEntity:
		return ErrUnprocessable
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrUnexpectedStatus
	}
}

// classifyForbidden splits 403s on the server discriminator. Only the
// exact SecondFactorDetail (case-insensitive) means a code is needed.
func classifyForbidden(detail string) error {
	d := strings.TrimSpace(detail)
	switch {
	case strings.EqualFold(d, SecondFactorDetail):
		return ErrSecondFactorRequired
	case strings.Contains(strings.ToLower(d), "not verified"):
		return ErrNotVerified
	default:
		return ErrForbidden
	}
}

// parseDetail extracts a message from FastAPI-style error bodies:
// {"detail": "text"} or {"detail": [{"msg": "..."}]} for validation errors.
// Non-JSON bodies yield "".
func parseDetail(body []byte) string {
	var env struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}

	if len(env.Detail) > 0 {
		var s string
		if err := json.Unmarshal(env.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(env.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return env.Message
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Detail returns the server-provided detail carried by err, or "".
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}
