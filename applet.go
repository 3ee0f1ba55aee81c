package applet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/qdesktop/qapplet/config"
	"github.com/qdesktop/qapplet/internal/poller"
	"github.com/qdesktop/qapplet/internal/store"
	"github.com/qdesktop/qapplet/internal/transport"
	"github.com/qdesktop/qapplet/storage"
)

const defaultPollingInterval = 5 * time.Minute

// pollState is the poll concurrency token.
type pollState int

const (
	pollIdle pollState = iota
	pollRunning
)

func (s pollState) String() string {
	if s == pollRunning {
		return "running"
	}
	return "idle"
}

// Applet drives a [Runner]: it applies configuration, polls the runner on a
// timer, clamps the signals it produces to the configured geometry, sends
// them to the signal service and reacts to control messages from the host.
//
// The typical lifecycle is:
//
//	a, err := applet.New(runner,
//	    applet.WithArgs(os.Args[1:]),
//	    applet.WithChannel(applet.NewLineChannel(os.Stdin, os.Stdout)),
//	)
//	if err != nil {
//	    slog.Error("failed to create applet", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	a.Serve(ctx) // blocks until the host disconnects or ctx is cancelled
//
// All methods are safe for concurrent use.
type Applet struct {
	runner        Runner
	logger        *slog.Logger
	clock         clockz.Clock
	interval      time.Duration
	client        *transport.Client
	proxyURL      string
	channel       Channel
	openStore     StoreOpener
	inspector     bool
	inspectorPort int
	signalLog     *store.MemoryLog[LogEntry]

	mu         sync.Mutex
	snapshot   *config.Snapshot
	store      storage.Store
	configured bool
	gate       chan struct{} // closed when configured; nil when no waiter is pending
	paused     bool
	inFlight   int
	errorState error
	scheduler  *poller.Scheduler
	hooks      []func(context.Context) error
	closed     bool

	work         sync.WaitGroup
	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an [Applet] around runner and applies the initial
// configuration: the one given with [WithConfig], else the one parsed from
// [WithArgs], else a minimal one.
//
// Returns an error if runner is nil, an option is invalid or the initial
// configuration is rejected.
func New(runner Runner, opts ...Option) (*Applet, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}

	env := config.FromEnv()
	cfg := &appletConfig{
		pollingInterval: defaultPollingInterval,
		clock:           clockz.RealClock,
		backendURL:      env.BackendURL,
		proxyURL:        env.ProxyURL,
		openStore:       FileStoreOpener,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	root := cfg.root
	if root == nil && cfg.hasArgs {
		var err error
		if root, err = config.FromArgs(cfg.args); err != nil {
			logger.Error("error while processing config", "error", err)
			return nil, err
		}
	}

	a := &Applet{
		runner:        runner,
		logger:        logger,
		clock:         cfg.clock,
		interval:      cfg.pollingInterval,
		client:        transport.NewClient(cfg.backendURL, logger),
		proxyURL:      cfg.proxyURL,
		channel:       cfg.channel,
		openStore:     cfg.openStore,
		inspector:     cfg.inspector,
		inspectorPort: cfg.inspectorPort,
		signalLog:     store.NewMemoryLog[LogEntry](store.DefaultCapacity),
	}

	if err := a.Configure(context.Background(), root); err != nil {
		a.client.Close()
		return nil, err
	}
	return a, nil
}

// Config returns the current configuration snapshot. It is never nil after
// [New] succeeds.
func (a *Applet) Config() *config.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

// Geometry returns the configured geometry. Origin is never nil.
func (a *Applet) Geometry() config.Geometry {
	snap := a.Config()
	if snap == nil {
		return config.Geometry{Width: 1, Height: 1, Origin: &config.Origin{X: 1, Y: 1}}
	}
	return snap.Geometry()
}

// Width returns the configured width in zones.
func (a *Applet) Width() int { return a.Geometry().Width }

// Height returns the configured height in zones.
func (a *Applet) Height() int { return a.Geometry().Height }

// OriginX returns the x coordinate of the applet's top-left zone.
func (a *Applet) OriginX() int { return a.Geometry().Origin.X }

// OriginY returns the y coordinate of the applet's top-left zone.
func (a *Applet) OriginY() int { return a.Geometry().Origin.Y }

// ExtensionID returns the host-assigned extension id.
func (a *Applet) ExtensionID() string {
	if snap := a.Config(); snap != nil {
		return snap.ExtensionID()
	}
	return ""
}

// Authorization returns the credentials supplied by the host.
func (a *Applet) Authorization() config.Authorization {
	if snap := a.Config(); snap != nil {
		return snap.Authorization()
	}
	return config.Authorization{}
}

// DevMode reports whether the applet was started outside a host.
func (a *Applet) DevMode() bool {
	snap := a.Config()
	return snap != nil && snap.DevMode()
}

// Store returns the key-value store for the configured storage location.
func (a *Applet) Store() storage.Store {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store
}

// SignalLog returns recently sent signals, most recent first. At most 100
// entries are kept. The entries hold copies; changing them does not affect
// the log.
func (a *Applet) SignalLog() []LogEntry {
	entries := a.signalLog.All()
	for i := range entries {
		entries[i].Signal = entries[i].Signal.Clone()
	}
	return entries
}

// ErrorState returns the error of the last failed run, or nil if the last
// run succeeded.
func (a *Applet) ErrorState() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errorState
}

// Paused reports whether scheduled polls are suspended.
func (a *Applet) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// Configured reports whether a configuration is currently applied.
func (a *Applet) Configured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.configured
}

// Running reports whether a poll is in progress.
func (a *Applet) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pollStateLocked() == pollRunning
}

func (a *Applet) pollStateLocked() pollState {
	if a.inFlight > 0 {
		return pollRunning
	}
	return pollIdle
}
