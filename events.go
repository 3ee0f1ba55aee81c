package applet

import "github.com/zoobzio/capitan"

// Lifecycle signals emitted through capitan. Hook them to observe an applet:
//
//	capitan.Hook(applet.RunFailed, func(_ context.Context, e *capitan.Event) {
//	    msg, _ := applet.KeyError.From(e)
//	    slog.Warn("applet run failed", "error", msg)
//	})
var (
	// Configured is emitted after a configuration is applied.
	Configured = capitan.NewSignal(
		"qapplet.configured",
		"Configuration applied",
	)

	// ConfigureFailed is emitted when a configuration is rejected.
	ConfigureFailed = capitan.NewSignal(
		"qapplet.configure.failed",
		"Configuration rejected",
	)

	// PollSkipped is emitted when a scheduled poll is skipped because the
	// applet is paused or a poll is already running.
	PollSkipped = capitan.NewSignal(
		"qapplet.poll.skipped",
		"Poll skipped",
	)

	// RunFailed is emitted when the runner returns an error or panics.
	RunFailed = capitan.NewSignal(
		"qapplet.run.failed",
		"Runner failed",
	)

	// SignalSent is emitted when the signal service accepts a signal.
	SignalSent = capitan.NewSignal(
		"qapplet.signal.sent",
		"Signal accepted by the signal service",
	)

	// SignalFailed is emitted when a signal could not be delivered.
	SignalFailed = capitan.NewSignal(
		"qapplet.signal.failed",
		"Signal delivery failed",
	)

	// Paused is emitted when the host pauses the applet.
	Paused = capitan.NewSignal(
		"qapplet.paused",
		"Polling paused",
	)

	// ShutdownStarted is emitted once when the applet begins shutting down.
	ShutdownStarted = capitan.NewSignal(
		"qapplet.shutdown",
		"Shutdown started",
	)
)

// Field keys for lifecycle events.
var (
	// KeyExtensionID is the applet's extension id.
	KeyExtensionID = capitan.NewStringKey("extension_id")

	// KeyError is the error message of a failure.
	KeyError = capitan.NewStringKey("error")

	// KeyReason explains why a poll was skipped ("paused" or "busy").
	KeyReason = capitan.NewStringKey("reason")

	// KeyAction is the action of the signal involved.
	KeyAction = capitan.NewStringKey("action")

	// KeySignalID is the id assigned by the signal service.
	KeySignalID = capitan.NewIntKey("signal_id")

	// KeyStatusCode is the signal service's HTTP status.
	KeyStatusCode = capitan.NewIntKey("status_code")

	// KeyLatency is the signal service round-trip time.
	KeyLatency = capitan.NewDurationKey("latency")

	// KeyCorrelationID ties a recovered panic to its log entry.
	KeyCorrelationID = capitan.NewStringKey("correlation_id")
)
