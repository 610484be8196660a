package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	OAuth(ctx context.Context, args []string) error
	Callback(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Profile(ctx context.Context, args []string) error
	Status(ctx context.Context) error
	Logout(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: signup, login, forgot, oauth <google|github>, callback <token>, status, exit"
	helpSignedIn  = "Available commands: whoami, refresh, profile [edit], status, logout, exit"
)

// runREPL reads commands from in and dispatches them to a until EOF or
// "exit"/"quit". Commands that prompt must read from the same in, so no
// typed-ahead line is lost between two buffers. The prompt shows
// statusFn(). A command error is printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("zyply %s> ", statusFn()))
		line, readErr := in.ReadString('\n')
		if readErr != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpSignedOut)
			}

		case "signup", "register":
			err = a.Signup(ctx)

		case "login":
			err = a.Login(ctx)

		case "forgot":
			err = a.ForgotPassword(ctx)

		case "oauth":
			err = a.OAuth(ctx, args)

		case "callback":
			err = a.Callback(ctx, args)

		case "whoami", "me":
			err = a.WhoAmI(ctx)

		case "refresh":
			err = a.Refresh(ctx)

		case "profile":
			err = a.Profile(ctx, args)

		case "status":
			err = a.Status(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
