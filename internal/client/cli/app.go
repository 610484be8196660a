package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/zyplyctl/internal/client/api"
	"github.com/dmitrijs2005/zyplyctl/internal/client/callback"
	"github.com/dmitrijs2005/zyplyctl/internal/client/config"
	"github.com/dmitrijs2005/zyplyctl/internal/client/credentials"
	"github.com/dmitrijs2005/zyplyctl/internal/client/gateway"
	"github.com/dmitrijs2005/zyplyctl/internal/client/services"
	"github.com/dmitrijs2005/zyplyctl/internal/logging"
)

// callbackWaiter is the part of callback.Listener the app drives.
type callbackWaiter interface {
	CallbackURL() string
	Wait(ctx context.Context) error
}

type App struct {
	config  *config.Config
	session *services.SessionManager
	api     *api.Client
	tokens  credentials.Store
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	newListener func(addr string, ing callback.Ingester) callbackWaiter
	closers     []func()
}

// NewApp wires logging, the credential store, the API gateway and the
// session manager from c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, closeLog := logging.New(logging.Options{Level: c.LogLevel, Format: c.LogFormat, File: c.LogFile})

	store, closeStore, err := openStore(ctx, c)
	if err != nil {
		closeLog()
		return nil, err
	}

	gw := gateway.New(c.APIBaseURL, store,
		gateway.WithTimeout(c.RequestTimeout),
		gateway.WithLogger(logger.With("component", "gateway")),
	)

	a := newApp(c, api.NewClient(gw), store, logger)
	a.closers = append(a.closers, closeStore, closeLog)
	return a, nil
}

func newApp(c *config.Config, client *api.Client, store credentials.Store, logger logging.Logger) *App {
	a := &App{
		config:  c,
		api:     client,
		tokens:  store,
		logger:  logger,
		session: services.NewSessionManager(client, store, logger.With("component", "session"), c.RestoreTimeout),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
	a.newListener = func(addr string, ing callback.Ingester) callbackWaiter {
		return callback.NewListener(addr, ing, logger.With("component", "callback"))
	}
	return a
}

func openStore(ctx context.Context, c *config.Config) (credentials.Store, func(), error) {
	switch c.StoreKind {
	case config.StoreMemory:
		return credentials.NewMemoryStore(), func() {}, nil
	case config.StoreSQLite, "":
		store, db, err := credentials.OpenSQLiteStore(ctx, c.StorePath, c.Profile,
			credentials.WithPassphrase(c.TokenPassphrase))
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", c.StoreKind)
	}
}

// Close releases the store and flushes the logger.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) isLoggedIn() bool {
	return a.session.Snapshot().Authenticated()
}

// WatchSession reports session changes that happen outside a command,
// such as the end of a background restore.
func (a *App) WatchSession(ctx context.Context) {
	ch, cancel := a.session.Subscribe()
	defer cancel()

	var last services.State
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return
			}
			state := s.State()
			if state != last {
				a.logger.Debug(ctx, "session state changed", "from", last, "to", state, "epoch", s.Epoch)
				last = state
			}
		case <-ctx.Done():
			return
		}
	}
}
