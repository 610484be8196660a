package config

import "time"

// Store kinds.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds runtime settings for the session client.
//
// Units: RequestTimeout and RestoreTimeout are time.Duration values.
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	RestoreTimeout time.Duration

	StoreKind       string
	StorePath       string
	Profile         string
	TokenPassphrase string

	CallbackAddr string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8080/api"
	c.RequestTimeout = 15 * time.Second
	c.RestoreTimeout = 10 * time.Second
	c.StoreKind = StoreSQLite
	c.StorePath = "session.db"
	c.Profile = "default"
	c.CallbackAddr = "127.0.0.1:3000"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, a JSON file (if given) and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
