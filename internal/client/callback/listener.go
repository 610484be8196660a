// Package callback receives the token at the end of a redirect-based
// (Google/GitHub) login.
//
// The backend finishes the provider handshake and redirects the browser to
// <frontend>/auth/callback?token=...; the listener plays the frontend on a
// loopback address, hands the token to the session and shuts down.
package callback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/zyplyctl/internal/client/services"
	"github.com/dmitrijs2005/zyplyctl/internal/logging"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const (
	Path = "/auth/callback"

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// ErrAlreadyCompleted is returned to late callbacks once one has been
// handled.
var ErrAlreadyCompleted = errors.New("sign-in already completed")

// Ingester accepts a token delivered by the redirect.
type Ingester interface {
	IngestExternalToken(ctx context.Context, token string) error
}

// Listener serves a single callback.
type Listener struct {
	addr     string
	ingester Ingester
	logger   logging.Logger

	done    atomic.Bool
	results chan error
}

func NewListener(addr string, ingester Ingester, logger logging.Logger) *Listener {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Listener{
		addr:     addr,
		ingester: ingester,
		logger:   logger,
		results:  make(chan error, 1),
	}
}

// CallbackURL is the address the backend must redirect to.
func (l *Listener) CallbackURL() string {
	return "http://" + l.addr + Path
}

func (l *Listener) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(Path, l.handleCallback)
	return r
}

func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !l.done.CompareAndSwap(false, true) {
		http.Error(w, ErrAlreadyCompleted.Error(), http.StatusConflict)
		return
	}

	token := r.URL.Query().Get("token")
	// The request context dies with the browser tab; the session write
	// must not.
	err := l.ingester.IngestExternalToken(context.WithoutCancel(r.Context()), token)
	l.results <- err

	var degraded *services.DegradedError
	switch {
	case err == nil:
		writeText(w, http.StatusOK, "Signed in. You can close this window and return to the terminal.")
	case token == "":
		http.Error(w, "Sign-in failed: "+err.Error(), http.StatusBadRequest)
	case errors.As(err, &degraded):
		writeText(w, http.StatusOK, "Signed in, but your profile could not be loaded. Return to the terminal for details.")
	default:
		http.Error(w, "Sign-in failed: "+err.Error(), http.StatusInternalServerError)
	}
}

// Wait listens on the configured address and blocks until a callback has
// been handled or ctx is done. It returns the ingestion result.
func (l *Listener) Wait(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("callback listener: %w", err)
	}
	return l.Serve(ctx, ln)
}

// Serve is Wait on an existing listener, which it closes before returning.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           l.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var result error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		var err error
		select {
		case result = <-l.results:
		case <-gctx.Done():
			err = gctx.Err()
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			l.logger.Warn(ctx, "callback listener shutdown", "error", serr)
		}
		return err
	})

	l.logger.Debug(ctx, "waiting for callback", "addr", ln.Addr().String())
	if err := g.Wait(); err != nil {
		return err
	}
	return result
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintln(w, msg)
}
