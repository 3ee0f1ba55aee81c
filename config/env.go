package config

import (
	"log/slog"
	"os"
	"strings"
)

const (
	// DefaultBackendURL is the local signal service.
	DefaultBackendURL = "http://localhost:27301"

	// DefaultProxyURL is the OAuth2 proxy used by legacy applets.
	DefaultProxyURL = "https://oauth-proxy.daskeyboard.net"
)

// Environment variables read by [FromEnv].
const (
	EnvBackendURL     = "QAPPLET_BACKEND_URL"
	EnvProxyURL       = "QAPPLET_OAUTH2_PROXY_URL"
	EnvLegacyProxyURL = "oAuth2ProxyBaseUrlDefault"
	EnvLogLevel       = "QAPPLET_LOG_LEVEL"
	EnvLogFile        = "QAPPLET_LOG_FILE"
)

// Env holds settings that come from the process environment rather than
// the host-supplied configuration.
type Env struct {
	BackendURL string
	ProxyURL   string
	LogLevel   slog.Level
	LogFile    string
}

// FromEnv reads [Env] from the environment, applying defaults.
// An unrecognised log level falls back to info.
func FromEnv() Env {
	env := Env{
		BackendURL: DefaultBackendURL,
		ProxyURL:   DefaultProxyURL,
		LogLevel:   slog.LevelInfo,
		LogFile:    os.Getenv(EnvLogFile),
	}

	if v := os.Getenv(EnvBackendURL); v != "" {
		env.BackendURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv(EnvProxyURL); v != "" {
		env.ProxyURL = strings.TrimRight(v, "/")
	} else if v := os.Getenv(EnvLegacyProxyURL); v != "" {
		env.ProxyURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			env.LogLevel = lvl
		}
	}

	return env
}
