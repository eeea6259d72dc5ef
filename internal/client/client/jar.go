package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"golang.org/x/net/publicsuffix"
)

// CookiesKey is the metadata key holding the persisted cookies.
const CookiesKey = "cookies"

type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// Jar is an http.CookieJar that keeps the API origin's cookies in a
// metadata repository so a session survives process restarts. Cookies for
// other origins are held in memory only.
type Jar struct {
	mu      sync.Mutex
	inner   *cookiejar.Jar
	origin  *url.URL
	repo    metadata.Repository
	log     logging.Logger
	cookies map[string]storedCookie
	now     func() time.Time
}

// NewJar restores the persisted cookies for origin.
func NewJar(ctx context.Context, repo metadata.Repository, origin string, log logging.Logger) (*Jar, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if log == nil {
		log = logging.Nop()
	}
	j := &Jar{
		origin:  &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		repo:    repo,
		log:     log,
		cookies: map[string]storedCookie{},
		now:     time.Now,
	}
	if j.inner, err = newCookieJar(); err != nil {
		return nil, err
	}

	raw, err := repo.Get(ctx, CookiesKey)
	if err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	if raw == nil {
		return j, nil
	}

	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.Warn(ctx, "discarding unreadable cookie state", "error", err)
		return j, nil
	}
	replay := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		if !sc.Expires.IsZero() && !sc.Expires.After(j.now()) {
			continue
		}
		j.cookies[sc.Name] = sc
		replay = append(replay, sc.cookie())
	}
	j.inner.SetCookies(j.origin, replay)
	return j, nil
}

func newCookieJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return jar, nil
}

func (sc storedCookie) cookie() *http.Cookie {
	return &http.Cookie{
		Name: sc.Name, Value: sc.Value, Path: sc.Path, Domain: sc.Domain,
		Expires: sc.Expires, Secure: sc.Secure, HttpOnly: sc.HttpOnly,
	}
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	sameOrigin := u.Scheme == j.origin.Scheme && u.Host == j.origin.Host
	if sameOrigin && isLoopbackHTTP(u) {
		// Loopback http counts as a secure context.
		relaxed := make([]*http.Cookie, len(cookies))
		for i, c := range cookies {
			cp := *c
			cp.Secure = false
			relaxed[i] = &cp
		}
		cookies = relaxed
	}
	j.inner.SetCookies(u, cookies)
	if !sameOrigin {
		return
	}

	now := j.now()
	for _, c := range cookies {
		expires := c.Expires
		switch {
		case c.MaxAge < 0:
			delete(j.cookies, c.Name)
			continue
		case c.MaxAge > 0:
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if !expires.IsZero() && !expires.After(now) {
			delete(j.cookies, c.Name)
			continue
		}
		j.cookies[c.Name] = storedCookie{
			Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain,
			Expires: expires, Secure: c.Secure, HttpOnly: c.HttpOnly,
		}
	}
	j.persistLocked(context.Background())
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// Adopt stores a cookie obtained outside the API client for the API origin,
// such as the session cookie a browser carries back from an OAuth redirect.
// Only the name and value are kept.
func (j *Jar) Adopt(c *http.Cookie) {
	j.SetCookies(j.origin, []*http.Cookie{{Name: c.Name, Value: c.Value, Path: "/"}})
}

// Clear forgets every cookie, in memory and in the repository.
func (j *Jar) Clear(ctx context.Context) error {
	inner, err := newCookieJar()
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner = inner
	j.cookies = map[string]storedCookie{}
	if err := j.repo.Delete(ctx, CookiesKey); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	return nil
}

// Value returns the live value of the named origin cookie.
func (j *Jar) Value(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	sc, ok := j.cookies[name]
	if !ok || (!sc.Expires.IsZero() && !sc.Expires.After(j.now())) {
		return "", false
	}
	return sc.Value, true
}

func (j *Jar) persistLocked(ctx context.Context) {
	list := make([]storedCookie, 0, len(j.cookies))
	for _, sc := range j.cookies {
		list = append(list, sc)
	}
	raw, err := json.Marshal(list)
	if err == nil {
		err = j.repo.Set(ctx, CookiesKey, raw)
	}
	if err != nil {
		j.log.Warn(ctx, "failed to persist cookies", "error", err)
	}
}

func isLoopbackHTTP(u *url.URL) bool {
	if u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
