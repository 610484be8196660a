package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/zyplyctl/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   backend API base URL
//	-t int      request timeout (seconds)
//	-r int      session restore timeout (seconds)
//	-s string   session database path
//	-p string   storage profile
//	-l string   host:port for the login callback listener
//
// os.Args is filtered with flagx.FilterArgs first, so flags that belong to
// other loaders (-c) are ignored here.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-r", "-s", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "backend API base URL")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	restoreTimeout := fs.Int("r", int(cfg.RestoreTimeout.Seconds()), "session restore timeout (in seconds)")
	fs.StringVar(&cfg.StorePath, "s", cfg.StorePath, "session database path")
	fs.StringVar(&cfg.Profile, "p", cfg.Profile, "storage profile")
	fs.StringVar(&cfg.CallbackAddr, "l", cfg.CallbackAddr, "login callback listener address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.RestoreTimeout = time.Duration(*restoreTimeout) * time.Second
}
