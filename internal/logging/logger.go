// Package logging defines the structured-logging interface used across
// AuthKeeper and its slog and zap backends.
package logging

import (
	"context"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are key/value pairs:
//
//	log.Info(ctx, "login succeeded", "user_id", u.ID)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

// Redacted replaces the value of any pair whose key names a secret.
const Redacted = "[REDACTED]"

var secretKeys = map[string]bool{
	"password":         true,
	"current_password": true,
	"new_password":     true,
	"code":             true,
	"totp_code":        true,
	"cookie":           true,
	"access_token":     true,
}

// redact returns args with secret values masked. args is not modified.
func redact(args []any) []any {
	var out []any
	for i := 0; i+1 < len(args); i += 2 {
		k, ok := args[i].(string)
		if !ok || !secretKeys[strings.ToLower(k)] {
			continue
		}
		if out == nil {
			out = append([]any(nil), args...)
		}
		out[i+1] = Redacted
	}
	if out == nil {
		return args
	}
	return out
}
