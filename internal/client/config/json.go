package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/zyplyctl/internal/flagx"
	"github.com/dmitrijs2005/zyplyctl/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Durations go through timex.Duration so the file may say "15s" or give
// integer nanoseconds.
type JsonConfig struct {
	APIBaseURL      string         `json:"api_base_url"`
	RequestTimeout  timex.Duration `json:"request_timeout"`
	RestoreTimeout  timex.Duration `json:"restore_timeout"`
	StoreKind       string         `json:"store_kind"`
	StorePath       string         `json:"store_path"`
	Profile         string         `json:"profile"`
	TokenPassphrase string         `json:"token_passphrase"`
	CallbackAddr    string         `json:"callback_addr"`
	LogLevel        string         `json:"log_level"`
	LogFormat       string         `json:"log_format"`
	LogFile         string         `json:"log_file"`
}

// parseJson overlays cfg with the fields present in the JSON file named by
// -c or -config. Absent or empty fields keep their current value.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.StoreKind, jc.StoreKind)
	setString(&cfg.StorePath, jc.StorePath)
	setString(&cfg.Profile, jc.Profile)
	setString(&cfg.TokenPassphrase, jc.TokenPassphrase)
	setString(&cfg.CallbackAddr, jc.CallbackAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogFile, jc.LogFile)

	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RestoreTimeout.Duration > 0 {
		cfg.RestoreTimeout = jc.RestoreTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
