package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Endpoint paths relative to the API base URL.
const (
	PathRegister           = "/auth/register"
	PathVerifyEmail        = "/auth/verify-email"
	PathResendVerification = "/auth/resend-verification"
	PathLogin              = "/auth/login"
	PathLogout             = "/auth/logout"
	PathMe                 = "/auth/me"
	PathProfile            = "/auth/profile"
	PathTwoFactorStatus    = "/auth/2fa/status"
	PathTwoFactorSetup     = "/auth/2fa/setup"
	PathTwoFactorEnable    = "/auth/2fa/enable"
	PathTwoFactorDisable   = "/auth/2fa/disable"
	PathForgotPassword     = "/auth/password/forget"
	PathResetPassword      = "/auth/password/reset"
)

func oauthLoginPath(provider string) string {
	return "/auth/" + provider + "/login"
}

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	tracer  trace.Tracer
	log     logging.Logger

	transport http.RoundTripper
	guard     *UnauthorizedGuard
	tp        trace.TracerProvider
}

type Option func(*HTTPClient)

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) { c.transport = rt }
}

// WithTracerProvider sets where request spans go. The global provider is
// used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *HTTPClient) { c.tp = tp }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// WithUnauthorizedGuard installs the 401 guard in front of the transport.
func WithUnauthorizedGuard(g *UnauthorizedGuard) Option {
	return func(c *HTTPClient) { c.guard = g }
}

// NewHTTPClient builds a client for baseURL, which includes the API base
// path (for example http://localhost:8000/fullstack_authentication).
func NewHTTPClient(baseURL string, timeout time.Duration, jar http.CookieJar, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL:   u,
		log:       logging.Nop(),
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tp == nil {
		c.tp = otel.GetTracerProvider()
	}
	c.tracer = c.tp.Tracer(common.AppName + "/client")

	rt := c.transport
	if c.guard != nil {
		c.guard.basePath = u.Path
		c.guard.next = rt
		rt = c.guard
	}
	c.http = &http.Client{Transport: rt, Jar: jar, Timeout: timeout}
	return c, nil
}

// BaseURL returns the configured API base URL.
func (c *HTTPClient) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// do sends in as JSON (when non-nil) and decodes a successful body into out
// (when non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) (err error) {
	reqID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
			attribute.String("request.id", reqID),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "api request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.log.Debug(ctx, "api request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(method, path, resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	allowEmpty := false
	if o, ok := out.(optionalBody); ok {
		out, allowEmpty = o.v, true
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s %s: empty body", ErrInvalidResponse, method, path)
		}
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, method, path, err)
	}
	return nil
}

// optionalBody marks a response body that may be absent.
type optionalBody struct{ v any }

// ack sends a request answered by a {success, message} acknowledgement, or
// by nothing at all, and logs the server's message.
func (c *HTTPClient) ack(ctx context.Context, method, path string, in any) error {
	var resp models.MessageResponse
	if err := c.do(ctx, method, path, in, optionalBody{&resp}); err != nil {
		return err
	}
	if resp.Message != "" {
		c.log.Debug(ctx, "api acknowledged", "path", path, "message", resp.Message)
	}
	return nil
}
