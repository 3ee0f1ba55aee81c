// Package applet is an SDK for desktop applets: small programs that poll a
// data source and light up zones of a keyboard-style device through the
// local signal service.
//
// An applet supplies a [Runner]. The [Applet] calls it on a timer, clamps
// the [Signal] it returns to the zones the host assigned, and posts it to
// the signal service. The host process steers the applet with control
// messages (CONFIGURE, START, PAUSE, POLL, FLASH, OPTIONS) over a
// [Channel].
//
// # Quick Start
//
//	runner := applet.RunnerFunc(func(ctx context.Context) (*applet.Signal, error) {
//	    return applet.NewSignal(
//	        [][]applet.Point{{applet.NewPoint("#00FF00")}},
//	        applet.WithMessage("all good"),
//	    ), nil
//	})
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
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	a.Serve(ctx) // blocks until the host disconnects or ctx is cancelled
//
// Running the program with the argument "DEV" starts polling immediately
// without a host.
//
// # Extension Points
//
// Besides [Runner], a runner may implement [ConfigApplier] to validate or
// post-process configuration, [OptionsProvider] to offer values for
// configuration fields and [ShutdownHook] to release resources. Additional
// shutdown handlers can be registered with [Applet.OnShutdown].
//
// # Observability
//
// The applet logs through log/slog ([WithLogger]) and emits capitan events
// ([Configured], [RunFailed], [SignalSent], ...) for programmatic hooks.
// [WithInspector] serves the recent signal log and state over HTTP.
//
// # Architecture
//
//   - config: configuration parsing, merging and snapshots
//   - storage: the applet's persistent key-value store
//   - internal/poller: the polling timer
//   - internal/transport: the signal service and OAuth2 proxy HTTP client
//   - internal/store: the bounded signal log with pub/sub
//   - internal/server: the inspector HTTP server
//   - dashboard: the inspector page
package applet
