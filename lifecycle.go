package applet

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"

	"github.com/qdesktop/qapplet/config"
	"github.com/qdesktop/qapplet/internal/poller"
)

// Configure applies a new configuration.
//
// The applet is marked unconfigured, root is normalised into a fresh
// [config.Snapshot], the store for its storage location is opened and the
// runner's [ConfigApplier] hook (if any) is called. On success the applet is
// marked configured and every caller waiting in [Applet.Start] is released.
// On failure the applet stays unconfigured and the error is returned.
//
// A nil root is treated as an empty configuration.
func (a *Applet) Configure(ctx context.Context, root *config.Root) error {
	a.mu.Lock()
	a.configured = false
	if a.gate == nil {
		a.gate = make(chan struct{})
	}
	a.mu.Unlock()

	snap, err := config.Normalize(root)
	if err != nil {
		return a.configureFailed(ctx, err)
	}
	a.logger.Debug("applying configuration",
		"extension_id", snap.ExtensionID(),
		"storage_location", snap.StorageLocation(),
		"dev_mode", snap.DevMode(),
	)

	st, err := a.openStore(snap.StorageLocation())
	if err != nil {
		return a.configureFailed(ctx, fmt.Errorf("open store %s: %w", snap.StorageLocation(), err))
	}

	a.mu.Lock()
	a.snapshot = snap
	a.store = st
	a.mu.Unlock()

	if applier, ok := a.runner.(ConfigApplier); ok {
		if err := applier.ApplyConfig(ctx, snap); err != nil {
			return a.configureFailed(ctx, fmt.Errorf("apply config: %w", err))
		}
	}

	a.mu.Lock()
	a.configured = true
	if a.gate != nil {
		close(a.gate)
		a.gate = nil
	}
	a.mu.Unlock()

	a.logger.Info("configuration applied", "extension_id", snap.ExtensionID())
	capitan.Emit(ctx, Configured, KeyExtensionID.Field(snap.ExtensionID()))
	return nil
}

func (a *Applet) configureFailed(ctx context.Context, err error) error {
	a.logger.Error("error while processing config", "error", err)
	capitan.Emit(ctx, ConfigureFailed, KeyError.Field(err.Error()))
	return err
}

// awaitConfigured blocks until the applet is configured or ctx ends. All
// waiters share one gate and are released together.
func (a *Applet) awaitConfigured(ctx context.Context) error {
	a.mu.Lock()
	if a.configured {
		a.mu.Unlock()
		return nil
	}
	if a.gate == nil {
		a.gate = make(chan struct{})
	}
	gate := a.gate
	a.mu.Unlock()

	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotConfigured, ctx.Err())
	}
}

// Start resumes polling: it clears the paused flag, waits until the applet
// is configured, polls once immediately and then polls every interval
// until ctx is cancelled or [Applet.Shutdown] is called.
//
// Calling Start again replaces the running timer; there is never more than
// one. Start returns after the first poll, or with an error if ctx ends
// before the applet is configured.
func (a *Applet) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrShutdown
	}
	a.paused = false
	a.mu.Unlock()

	if err := a.awaitConfigured(ctx); err != nil {
		return err
	}

	a.stopScheduler()
	a.Poll(ctx, false)

	sched := poller.NewScheduler(a.interval, func(tickCtx context.Context) {
		// in-flight polls run to completion even when the timer is replaced
		a.Poll(context.WithoutCancel(tickCtx), false)
	}, a.clock, a.logger)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrShutdown
	}
	old := a.scheduler
	a.scheduler = sched
	a.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	sched.Start(ctx)

	a.logger.Info("polling started", "interval", a.interval.String())
	return nil
}

// stopScheduler stops the current timer, if any. It must not be called with
// a.mu held: Stop waits for a running tick, which takes the lock.
func (a *Applet) stopScheduler() {
	a.mu.Lock()
	sched := a.scheduler
	a.scheduler = nil
	a.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
}

// Pause suspends scheduled polls. A poll already in progress is not
// affected, and forced polls still run.
func (a *Applet) Pause() {
	a.mu.Lock()
	a.paused = true
	a.mu.Unlock()

	a.logger.Info("polling paused")
	capitan.Emit(context.Background(), Paused, KeyExtensionID.Field(a.ExtensionID()))
}

// Resume clears the paused flag and polls once. The timer armed by a
// previous [Applet.Start] keeps running.
func (a *Applet) Resume(ctx context.Context) {
	a.mu.Lock()
	a.paused = false
	a.mu.Unlock()

	a.Poll(ctx, false)
}

// Poll runs the runner once and sends the signal it returns.
//
// Unless force is set, Poll does nothing while the applet is paused or
// while another poll is running. A forced poll runs regardless and may
// overlap a poll already in progress.
//
// A runner error or panic is recorded as the error state and reported to
// the device as an [ActionError] signal; a successful run clears the error
// state.
func (a *Applet) Poll(ctx context.Context, force bool) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if !force && a.paused {
		a.mu.Unlock()
		a.logger.Debug("polling paused, skipping run")
		capitan.Emit(ctx, PollSkipped, KeyReason.Field("paused"))
		return
	}
	if !force && a.pollStateLocked() == pollRunning {
		a.mu.Unlock()
		a.logger.Info("skipping run, previous poll still in progress")
		capitan.Emit(ctx, PollSkipped, KeyReason.Field("busy"))
		return
	}
	a.inFlight++
	a.work.Add(1)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inFlight--
		a.mu.Unlock()
		a.work.Done()
	}()

	sig, err := a.safeRun(ctx)
	if err != nil {
		a.mu.Lock()
		a.errorState = err
		a.mu.Unlock()

		a.logger.Error("applet encountered an error in its main loop", "error", err)
		capitan.Emit(ctx, RunFailed, KeyError.Field(err.Error()))
		_, _ = a.SignalError(ctx, []string{err.Error()})
		return
	}

	a.mu.Lock()
	a.errorState = nil
	a.mu.Unlock()

	if sig != nil {
		_, _ = a.Signal(ctx, sig)
	}
}

// safeRun calls the runner, converting a panic into a [*PanicError] whose
// correlation id is also logged with the stack.
func (a *Applet) safeRun(ctx context.Context) (sig *Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			id := uuid.NewString()
			a.logger.Error("applet run panic",
				"correlation_id", id,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			capitan.Emit(ctx, RunFailed,
				KeyError.Field(fmt.Sprintf("%v", r)),
				KeyCorrelationID.Field(id),
			)
			sig, err = nil, &PanicError{Value: r, CorrelationID: id}
		}
	}()
	return a.runner.Run(ctx)
}

// OnShutdown registers fn to run during [Applet.Shutdown], after the
// runner's [ShutdownHook]. Handlers run in registration order.
func (a *Applet) OnShutdown(fn func(context.Context) error) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Shutdown stops polling, waits for polls in progress, then runs the
// runner's [ShutdownHook] and the handlers registered with
// [Applet.OnShutdown].
//
// Shutdown runs once; later calls return the first call's result. Errors
// from hooks are joined.
func (a *Applet) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown(ctx)
	})
	return a.shutdownErr
}

func (a *Applet) shutdown(ctx context.Context) error {
	a.logger.Info("handling shutdown")
	capitan.Emit(ctx, ShutdownStarted, KeyExtensionID.Field(a.ExtensionID()))

	a.mu.Lock()
	a.closed = true
	hooks := append([]func(context.Context) error(nil), a.hooks...)
	a.mu.Unlock()

	a.stopScheduler()

	done := make(chan struct{})
	go func() {
		a.work.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("shutdown timed out waiting for in-flight work", "error", ctx.Err())
	}

	var errs []error
	if hook, ok := a.runner.(ShutdownHook); ok {
		if err := hook.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("runner shutdown: %w", err))
		}
	}
	for _, fn := range hooks {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	a.client.Close()

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Error("shutdown completed with errors", "error", err)
	}
	return err
}
