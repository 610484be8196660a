// Package config loads runtime configuration for the session client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment, after loading an optional .env file (see parseEnv).
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   backend API base URL
//	-t int      request timeout (seconds)
//	-r int      session restore timeout (seconds)
//	-s string   session database path
//	-p string   storage profile
//	-l string   host:port for the login callback listener
//
// # Environment
//
// ZYPLY_API_URL (falling back to NEXT_PUBLIC_API_URL), ZYPLY_CALLBACK_ADDR,
// ZYPLY_STORE_KIND, ZYPLY_STORE_PATH, ZYPLY_PROFILE, ZYPLY_TOKEN_PASSPHRASE,
// ZYPLY_LOG_LEVEL, ZYPLY_LOG_FORMAT, ZYPLY_LOG_FILE.
//
// # JSON schema
//
//	{
//	  "api_base_url": "http://localhost:8080/api",
//	  "request_timeout": "15s",
//	  "restore_timeout": "10s",
//	  "store_kind": "sqlite",
//	  "store_path": "session.db",
//	  "profile": "default",
//	  "callback_addr": "127.0.0.1:3000",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "log_file": ""
//	}
//
// The token passphrase can be set in JSON too (token_passphrase), though the
// environment is the better place for it.
package config
