package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables understood by parseEnv.
const (
	EnvAPIURL          = "ZYPLY_API_URL"
	EnvAPIURLFallback  = "NEXT_PUBLIC_API_URL"
	EnvCallbackAddr    = "ZYPLY_CALLBACK_ADDR"
	EnvStoreKind       = "ZYPLY_STORE_KIND"
	EnvStorePath       = "ZYPLY_STORE_PATH"
	EnvProfile         = "ZYPLY_PROFILE"
	EnvTokenPassphrase = "ZYPLY_TOKEN_PASSPHRASE"
	EnvLogLevel        = "ZYPLY_LOG_LEVEL"
	EnvLogFormat       = "ZYPLY_LOG_FORMAT"
	EnvLogFile         = "ZYPLY_LOG_FILE"
)

// parseEnv overlays cfg with non-empty environment variables.
//
// The given dotenv files (".env" when none are given) are loaded first; a
// missing file is not an error, and variables already set in the process
// environment are never overridden by them.
func parseEnv(cfg *Config, envFiles ...string) {
	_ = godotenv.Load(envFiles...)

	if v := firstEnv(EnvAPIURL, EnvAPIURLFallback); v != "" {
		cfg.APIBaseURL = v
	}

	for name, dst := range map[string]*string{
		EnvCallbackAddr:    &cfg.CallbackAddr,
		EnvStoreKind:       &cfg.StoreKind,
		EnvStorePath:       &cfg.StorePath,
		EnvProfile:         &cfg.Profile,
		EnvTokenPassphrase: &cfg.TokenPassphrase,
		EnvLogLevel:        &cfg.LogLevel,
		EnvLogFormat:       &cfg.LogFormat,
		EnvLogFile:         &cfg.LogFile,
	} {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}
