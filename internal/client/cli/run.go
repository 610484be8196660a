package cli

import (
	"context"
)

// Run restores the previous session, then serves the REPL on stdin until
// the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.printf("Zyply CLI (type 'help' for commands)\n")
	a.printf("Restoring session...\n")

	s := a.session.Restore(ctx)
	if s.User != nil {
		a.printf("Welcome back, %s\n", s.User.Name)
	}

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	go a.WatchSession(watchCtx)

	runREPL(ctx, a, a.getStatus, a.reader)
}
