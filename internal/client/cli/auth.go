package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/zyplyctl/internal/client/api"
	"github.com/dmitrijs2005/zyplyctl/internal/client/services"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// oauthTimeout bounds the wait for a redirect callback.
const oauthTimeout = 5 * time.Minute

var errAlreadySignedIn = errors.New("already signed in, logout first")

func (a *App) readPassword() (string, error) {
	pw, err := getPassword(os.Stdout)
	if err != nil {
		return "", err
	}
	defer clear(pw)
	return string(pw), nil
}

// Signup prompts for name, email and password and creates an account.
func (a *App) Signup(ctx context.Context) error {
	if a.isLoggedIn() {
		return errAlreadySignedIn
	}
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}

	if err := a.session.Signup(ctx, name, email, password); err != nil {
		return err
	}
	a.printf("Welcome, %s!\n", a.session.Snapshot().User.Name)
	return nil
}

// Login prompts for email and password.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		return errAlreadySignedIn
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}

	if err := a.session.Login(ctx, email, password); err != nil {
		return err
	}
	a.printf("Signed in as %s\n", a.session.Snapshot().User.Email)
	return nil
}

// ForgotPassword requests a reset link. The reply is the same for known
// and unknown addresses.
func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	res, err := a.api.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	a.printf("%s\n", res.Message)
	return nil
}

// OAuth prints the provider URL and waits for the backend to redirect the
// browser back to the local callback listener.
func (a *App) OAuth(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: oauth <google|github>")
	}
	provider, err := api.ParseProvider(strings.ToLower(args[0]))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, oauthTimeout)
	defer cancel()

	l := a.newListener(a.config.CallbackAddr, a.session)
	a.printf("Open this URL in your browser to continue:\n  %s\n", a.api.FederatedURL(provider))
	a.printf("Waiting for the redirect on %s ...\n", l.CallbackURL())

	return a.reportIngest(l.Wait(ctx))
}

// Callback completes a redirect login by hand, for when the browser
// cannot reach the local listener.
func (a *App) Callback(ctx context.Context, args []string) error {
	token := ""
	if len(args) > 0 {
		token = args[0]
	}
	return a.reportIngest(a.session.IngestExternalToken(ctx, token))
}

func (a *App) reportIngest(err error) error {
	var degraded *services.DegradedError
	switch {
	case err == nil:
		a.printf("Signed in as %s\n", a.session.Snapshot().User.Email)
		return nil
	case errors.As(err, &degraded):
		a.printf("Signed in, but the profile could not be loaded (%v). Try 'refresh'.\n", degraded.Err)
		return nil
	default:
		return err
	}
}

// Logout always succeeds from the user's point of view.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	a.printf("Signed out\n")
	return nil
}

// WhoAmI prints the cached user without calling the backend.
func (a *App) WhoAmI(ctx context.Context) error {
	u := a.session.Snapshot().User
	if u == nil {
		return errors.New("not signed in")
	}
	a.printf("#%d %s <%s>\n", u.ID, u.Name, u.Email)
	return nil
}

// Refresh re-fetches the user; a failure signs the session out.
func (a *App) Refresh(ctx context.Context) error {
	err := a.session.RefreshUser(ctx)
	switch {
	case errors.Is(err, services.ErrNotRestored), errors.Is(err, services.ErrSessionSuperseded):
		return err
	case err != nil:
		return fmt.Errorf("refresh failed, signed out: %w", err)
	}
	return a.WhoAmI(ctx)
}
