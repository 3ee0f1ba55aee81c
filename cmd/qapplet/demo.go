package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zoobzio/capitan"

	applet "github.com/qdesktop/qapplet"
	"github.com/qdesktop/qapplet/config"
	"github.com/qdesktop/qapplet/storage"
)

// demoCmd runs a small counter applet against the host channel.
var demoCmd = &cobra.Command{
	Use:   "demo [DEV] [config-json]",
	Short: "Run the demo applet",
	Long: `Run a demo applet that lights one more key on every poll until the
configured width is full, then starts over. The count survives restarts in
the applet's key-value store.

Host messages are read from stdin and replies written to stdout, one JSON
document per line. Logs go to stderr. Without --config the configuration
is read from the arguments the way a host passes them; "DEV" starts polling
without waiting for a START message.

The key color comes from the "color" value of the applet configuration.

Example:
  qapplet demo DEV '{"geometry":{"width":4,"height":1,"origin":{"x":1,"y":1}}}'
  qapplet demo -c applet.yaml --watch --inspect-port 8080`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	f := demoCmd.Flags()
	f.StringP("config", "c", "", "path to config file (yaml, json or toml)")
	f.Bool("watch", false, "reconfigure when the config file changes (requires --config)")
	f.Int("inspect-port", 0, "serve the inspector API on 127.0.0.1:<port>")
	f.Duration("interval", 10*time.Second, "polling interval")
}

func runDemo(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	f := cmd.Flags()
	configFile, _ := f.GetString("config")
	watch, _ := f.GetBool("watch")
	inspectPort, _ := f.GetInt("inspect-port")
	interval, _ := f.GetDuration("interval")

	if watch && configFile == "" {
		return fmt.Errorf("--watch requires --config")
	}

	opts := []applet.Option{
		applet.WithLogger(logger),
		applet.WithPollingInterval(interval),
		applet.WithChannel(applet.NewLineChannel(cmd.InOrStdin(), cmd.OutOrStdout())),
	}
	if configFile != "" {
		root, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		opts = append(opts, applet.WithConfig(root))
	} else {
		opts = append(opts, applet.WithArgs(args))
	}
	if f.Changed("inspect-port") {
		opts = append(opts, applet.WithInspector(inspectPort))
	}

	hookEvents(logger)
	defer capitan.Shutdown()

	runner := &demoRunner{logger: logger}
	a, err := applet.New(runner, opts...)
	if err != nil {
		return fmt.Errorf("failed to create applet: %w", err)
	}
	runner.attach(a)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watch {
		updates, err := config.Watch(ctx, configFile)
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		go applyUpdates(ctx, a, updates, logger)
	}

	logger.Info("demo applet running",
		"extension_id", a.ExtensionID(),
		"width", a.Width(),
		"height", a.Height(),
		"interval", interval.String(),
	)
	return a.Serve(ctx)
}

// applyUpdates reconfigures a from config file changes. The first update
// repeats the configuration already applied and is skipped.
func applyUpdates(ctx context.Context, a *applet.Applet, updates <-chan config.Update, logger *slog.Logger) {
	first := true
	for u := range updates {
		if first {
			first = false
			continue
		}
		if u.Err != nil {
			logger.Warn("config reload rejected", "error", u.Err)
			continue
		}
		if err := a.Configure(ctx, u.Root); err != nil {
			logger.Warn("config reload failed", "error", err)
			continue
		}
		logger.Info("config reloaded")
	}
}

// hookEvents logs applet lifecycle events.
func hookEvents(logger *slog.Logger) {
	capitan.Hook(applet.SignalSent, func(_ context.Context, e *capitan.Event) {
		id, _ := applet.KeySignalID.From(e)
		latency, _ := applet.KeyLatency.From(e)
		logger.Debug("event: signal sent", "id", id, "latency_ms", latency.Milliseconds())
	})
	capitan.Hook(applet.SignalFailed, func(_ context.Context, e *capitan.Event) {
		msg, _ := applet.KeyError.From(e)
		logger.Warn("event: signal failed", "error", msg)
	})
	capitan.Hook(applet.RunFailed, func(_ context.Context, e *capitan.Event) {
		msg, _ := applet.KeyError.From(e)
		id, _ := applet.KeyCorrelationID.From(e)
		logger.Warn("event: run failed", "error", msg, "correlation_id", id)
	})
	capitan.Hook(applet.PollSkipped, func(_ context.Context, e *capitan.Event) {
		reason, _ := applet.KeyReason.From(e)
		logger.Debug("event: poll skipped", "reason", reason)
	})
}

const (
	demoCountKey     = "count"
	demoDefaultColor = "#00FF00"
)

// demoRunner lights count keys in the first row, one more per poll.
type demoRunner struct {
	logger *slog.Logger

	mu     sync.Mutex
	applet *applet.Applet
	color  string
}

func (r *demoRunner) attach(a *applet.Applet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applet = a
}

// ApplyConfig picks up the key color.
func (r *demoRunner) ApplyConfig(_ context.Context, snap *config.Snapshot) error {
	color, _ := snap.String("color")
	if color == "" {
		color = demoDefaultColor
	}
	if !strings.HasPrefix(color, "#") || len(color) != 7 {
		return fmt.Errorf("color %q is not #RRGGBB", color)
	}

	r.mu.Lock()
	r.color = color
	r.mu.Unlock()
	return nil
}

// Run advances the persisted counter and renders it.
func (r *demoRunner) Run(context.Context) (*applet.Signal, error) {
	r.mu.Lock()
	a, color := r.applet, r.color
	r.mu.Unlock()
	if a == nil {
		return nil, nil
	}

	st := a.Store()
	var count int
	if _, err := storage.GetJSON(st, demoCountKey, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	count = count%a.Width() + 1
	if err := st.Put(demoCountKey, count); err != nil {
		return nil, fmt.Errorf("save count: %w", err)
	}

	row := make([]applet.Point, a.Width())
	for x := range row {
		row[x] = applet.NewPoint("#000000")
		if x < count {
			row[x] = applet.NewPoint(color)
		}
	}

	r.logger.Debug("demo tick", "count", count)
	return applet.NewSignal([][]applet.Point{row},
		applet.WithName("Demo"),
		applet.WithMessage(fmt.Sprintf("%d of %d", count, a.Width())),
	), nil
}

// Options offers a few colors for the host's configuration UI.
func (r *demoRunner) Options(_ context.Context, fieldName, search string) ([]applet.OptionItem, error) {
	if fieldName != "color" {
		return nil, nil
	}
	all := []applet.OptionItem{
		{Key: "#00FF00", Value: "Green"},
		{Key: "#0000FF", Value: "Blue"},
		{Key: "#FF8800", Value: "Orange"},
		{Key: "#FFFFFF", Value: "White"},
	}
	var out []applet.OptionItem
	for _, o := range all {
		if search == "" || strings.Contains(strings.ToLower(o.Value), strings.ToLower(search)) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Shutdown clears the demo's keys.
func (r *demoRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	a := r.applet
	r.mu.Unlock()
	if a == nil {
		return nil
	}

	log := a.SignalLog()
	if len(log) == 0 || log[0].Signal.ID == 0 {
		return nil
	}
	if _, err := a.Client().Delete(ctx, log[0].Signal); err != nil {
		r.logger.Warn("failed to clear demo keys", "error", err)
	}
	return nil
}
