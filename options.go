package applet

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/qdesktop/qapplet/config"
	"github.com/qdesktop/qapplet/storage"
)

// StoreOpener opens the key-value store for a storage location.
type StoreOpener func(location string) (storage.Store, error)

// FileStoreOpener opens a [storage.FileStore] with the default quota.
func FileStoreOpener(location string) (storage.Store, error) {
	return storage.OpenFileStore(location, 0)
}

// MemoryStoreOpener opens a fresh [storage.MemoryStore], ignoring the
// location. Useful for tests and dev mode.
func MemoryStoreOpener(string) (storage.Store, error) {
	return storage.NewMemoryStore(0), nil
}

// appletConfig holds mutable state during Applet construction.
type appletConfig struct {
	logger          *slog.Logger
	pollingInterval time.Duration
	root            *config.Root
	args            []string
	hasArgs         bool
	channel         Channel
	clock           clockz.Clock
	backendURL      string
	proxyURL        string
	openStore       StoreOpener
	inspectorPort   int
	inspector       bool
}

// Option configures an [Applet] during construction.
//
// Options return an error if validation fails, which makes [New] fail.
type Option func(*appletConfig) error

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *appletConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithPollingInterval sets how often the runner is polled after
// [Applet.Start]. Defaults to 5 minutes.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *appletConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithConfig supplies the initial configuration directly, taking precedence
// over [WithArgs].
func WithConfig(root *config.Root) Option {
	return func(cfg *appletConfig) error {
		if root == nil {
			return errors.New("config cannot be nil")
		}
		cfg.root = root
		return nil
	}
}

// WithArgs reads the initial configuration from command-line arguments
// (without the program name), as the host passes them. See
// [config.FromArgs].
//
// Example:
//
//	a, err := applet.New(runner, applet.WithArgs(os.Args[1:]))
func WithArgs(args []string) Option {
	return func(cfg *appletConfig) error {
		cfg.args = args
		cfg.hasArgs = true
		return nil
	}
}

// WithChannel sets the host channel used by [Applet.Serve] and for message
// replies.
func WithChannel(ch Channel) Option {
	return func(cfg *appletConfig) error {
		if ch == nil {
			return errors.New("channel cannot be nil")
		}
		cfg.channel = ch
		return nil
	}
}

// WithClock sets the clock driving the polling scheduler. Tests use a
// clockz fake clock.
func WithClock(clock clockz.Clock) Option {
	return func(cfg *appletConfig) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = clock
		return nil
	}
}

// WithBackendURL sets the signal service base URL. Defaults to
// $QAPPLET_BACKEND_URL or [config.DefaultBackendURL].
func WithBackendURL(url string) Option {
	return func(cfg *appletConfig) error {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return errors.New("backend url must start with http:// or https://")
		}
		cfg.backendURL = url
		return nil
	}
}

// WithProxyURL sets the OAuth2 proxy base URL used by
// [Applet.ProxyRequest]. Defaults to $QAPPLET_OAUTH2_PROXY_URL or
// [config.DefaultProxyURL].
func WithProxyURL(url string) Option {
	return func(cfg *appletConfig) error {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return errors.New("proxy url must start with http:// or https://")
		}
		cfg.proxyURL = url
		return nil
	}
}

// WithStoreOpener replaces how the key-value store is opened for the
// configured storage location. Defaults to [FileStoreOpener].
func WithStoreOpener(open StoreOpener) Option {
	return func(cfg *appletConfig) error {
		if open == nil {
			return errors.New("store opener cannot be nil")
		}
		cfg.openStore = open
		return nil
	}
}

// WithInspector serves the inspector API on 127.0.0.1:port while
// [Applet.Serve] runs. Port 0 picks a free port.
//
// Returns an error if the port is outside 0-65535.
func WithInspector(port int) Option {
	return func(cfg *appletConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.inspectorPort = port
		cfg.inspector = true
		return nil
	}
}
