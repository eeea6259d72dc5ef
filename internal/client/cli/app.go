package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/callback"
	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/authkeeper/internal/client/navigation"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/dmitrijs2005/authkeeper/internal/client/session"
	"github.com/dmitrijs2005/authkeeper/internal/client/storage"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// newBrowser is a test seam for the system browser.
var newBrowser = func(w io.Writer) navigation.Browser {
	return navigation.SystemBrowser{Out: w}
}

const defaultOAuthWait = 2 * time.Minute

type App struct {
	config *config.Config
	logger logging.Logger

	storage *storage.Store
	session *session.Store
	router  *navigation.Router
	jar     *client.Jar
	api     client.Client
	ledger  *ledger.Ledger

	auth         *services.AuthService
	registration *services.Registration
	verification *services.Verification
	bootstrap    *services.Bootstrap
	oauth        *services.OAuthCallback
	callback     *callback.Server

	reader    *bufio.Reader
	out       io.Writer
	oauthWait time.Duration
	navCh     chan navigation.Route

	// email is prefilled into the next login prompt.
	email string

	errMu   sync.Mutex
	lastErr string
	errSeen bool
}

// NewApp wires every component from c. The caller owns the App and must
// call Run (which closes it) or Close.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.LogLevel, os.Stderr)

	st, err := storage.Open(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	a := &App{
		config:    c,
		logger:    logger,
		storage:   st,
		router:    navigation.NewRouter(navigation.RouteLogin),
		ledger:    ledger.New(st.Metadata),
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
		oauthWait: defaultOAuthWait,
		navCh:     make(chan navigation.Route, 1),
	}
	a.session = session.NewStore(session.NewRepositoryPersister(st.Metadata), logger)

	a.jar, err = client.NewJar(ctx, st.Metadata, c.APIBaseURL, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("cookie jar init error: %w", err)
	}

	guard := client.NewUnauthorizedGuard(a.router, a.session, logger).WithCookies(a.jar)
	api, err := client.NewHTTPClient(c.APIBaseURL, c.RequestTimeout, a.jar,
		client.WithLogger(logger), client.WithUnauthorizedGuard(guard))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	a.api = api

	a.auth = services.NewAuthService(services.Deps{
		API:     api,
		Store:   a.session,
		Router:  a.router,
		Browser: newBrowser(a.out),
		Cookies: a.jar,
		Log:     logger,
	})
	a.registration = services.NewRegistration(a.auth, a.ledger, a.router, logger)
	a.verification = services.NewVerification(a.auth, a.ledger, a.router, services.NewCooldown(c.ResendCooldown), logger)
	a.bootstrap = services.NewBootstrap(api, a.session, logger)
	a.oauth = services.NewOAuthCallback(api, a.session, a.router, logger)
	if c.CallbackAddr != "" {
		a.callback = callback.NewServer(c.CallbackAddr, a.oauth, a.jar, logger)
	}

	a.router.OnNavigate(func(r navigation.Route, _ navigation.State) {
		select {
		case a.navCh <- r:
		default:
		}
	})
	a.session.Subscribe(a.trackError)

	return a, nil
}

// trackError remembers the latest store error so it is printed once.
func (a *App) trackError(s session.Snapshot) {
	a.errMu.Lock()
	defer a.errMu.Unlock()
	if s.Error != a.lastErr {
		a.lastErr = s.Error
		a.errSeen = s.Error == ""
	}
}

// takeError returns the store error not yet shown to the user.
func (a *App) takeError() string {
	a.errMu.Lock()
	defer a.errMu.Unlock()
	if a.errSeen || a.lastErr == "" {
		return ""
	}
	a.errSeen = true
	return a.lastErr
}

func (a *App) Close() error {
	var errs []error
	if a.api != nil {
		errs = append(errs, a.api.Close())
	}
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	return errors.Join(errs...)
}

// Run resolves the session, starts the callback listener and blocks in the
// REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn("Welcome to authkeeper CLI (type 'help' for commands)")

	if err := a.bootstrap.Run(ctx); err != nil {
		a.logger.Info(ctx, "starting logged out", "reason", err)
	}
	if a.session.IsAuthenticated() {
		a.router.Navigate(navigation.RouteHome, navigation.State{})
		printlnFn("Welcome back,", a.session.User().DisplayName())
	}

	var wg sync.WaitGroup
	if a.callback != nil {
		if err := a.callback.Listen(); err != nil {
			a.logger.Warn(ctx, "oauth callback listener disabled", "error", err)
			a.callback = nil
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := a.callback.Run(ctx); err != nil {
					a.logger.Error(ctx, err.Error())
				}
			}()
		}
	}

	runREPL(ctx, a, a.getStatus, a.reader)

	cancel()
	wg.Wait()
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) isLoading() bool {
	return a.session.IsLoading()
}

func (a *App) getStatus() string {
	s := string(a.router.Current())
	if u := a.session.User(); u != nil {
		s = u.Username + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

// report prints the outcome of a command: the store error if one appeared,
// otherwise err, followed by any flash state left by navigation.
func (a *App) report(err error) {
	st := a.router.TakeState()
	if st.Email != "" {
		a.email = st.Email
	}

	msg := a.takeError()
	if msg == "" && st.Error == "" && err != nil && !errors.Is(err, errCancelled) {
		msg = services.Describe("", err)
	}
	if msg != "" {
		printlnFn("Error:", msg)
	}
	if st.Error != "" && st.Error != msg {
		printlnFn("Error:", st.Error)
	}
	if st.Message != "" {
		printlnFn(st.Message)
	}
}
