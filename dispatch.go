package applet

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"
)

const (
	errorColor = "#FF0000"
	flashColor = "#000000"
)

// Signal sends sig to the signal service on behalf of the applet.
//
// Before sending, the signal's ExtensionID and Origin are overwritten from
// the configuration and its points are clamped to the configured geometry.
// An [ActionError] signal has its points replaced by a full grid of solid
// red. sig itself is not modified; the sent copy, with its assigned id, is
// pushed to the front of the signal log.
//
// Transport failures are logged and reported through the result and an
// error wrapping [ErrSignalNotAccepted]. A response without an id is
// logged as an entry but still reported as not accepted.
func (a *Applet) Signal(ctx context.Context, sig *Signal) (SignalResult, error) {
	if sig == nil {
		return SignalResult{}, fmt.Errorf("signal is nil")
	}
	snap := a.Config()
	if snap == nil {
		return SignalResult{}, ErrNotConfigured
	}
	geom := snap.Geometry()

	out := sig.Clone()
	out.ExtensionID = snap.ExtensionID()
	out.Origin = Origin{X: geom.Origin.X, Y: geom.Origin.Y}
	out.Points = ClampGrid(out.Points, geom.Width, geom.Height)
	if out.Action == ActionError {
		out.Points = FillGrid(geom.Width, geom.Height, NewPoint(errorColor, EffectSetColor))
	}

	result := fromTransportResponse(a.client.Send(ctx, toTransportSignal(out)))
	if result.Err != nil {
		capitan.Emit(ctx, SignalFailed,
			KeyAction.Field(string(out.Action)),
			KeyStatusCode.Field(result.StatusCode),
			KeyError.Field(result.Err.Error()),
		)
		return result, fmt.Errorf("%w: %w", ErrSignalNotAccepted, result.Err)
	}

	out.ID = result.ID
	a.signalLog.Push(LogEntry{Signal: out, Result: result, Time: a.clock.Now()})

	if result.ID == 0 {
		capitan.Emit(ctx, SignalFailed,
			KeyAction.Field(string(out.Action)),
			KeyStatusCode.Field(result.StatusCode),
			KeyError.Field("no id assigned"),
		)
		return result, fmt.Errorf("%w: no id assigned", ErrSignalNotAccepted)
	}

	a.logger.Debug("signal sent", "id", result.ID, "action", out.Action, "latency_ms", result.Latency.Milliseconds())
	capitan.Emit(ctx, SignalSent,
		KeyAction.Field(string(out.Action)),
		KeySignalID.Field(int(result.ID)),
		KeyStatusCode.Field(result.StatusCode),
		KeyLatency.Field(result.Latency),
	)
	return result, nil
}

// SignalError sends an [ActionError] signal carrying messages.
func (a *Applet) SignalError(ctx context.Context, messages []string) (SignalResult, error) {
	return a.Signal(ctx, ErrorSignal(messages...))
}

// Flash renders an all-off [ActionFlash] grid over the applet's zones, then
// re-sends the most recently logged signal. Neither send is logged.
func (a *Applet) Flash(ctx context.Context) error {
	snap := a.Config()
	if snap == nil {
		return ErrNotConfigured
	}
	geom := snap.Geometry()

	flash := NewSignal(
		FillGrid(geom.Width, geom.Height, NewPoint(flashColor)),
		WithAction(ActionFlash),
		WithMuted(false),
		WithOrigin(geom.Origin.X, geom.Origin.Y),
		WithExtensionID(snap.ExtensionID()),
	)

	a.logger.Info("flashing", "width", geom.Width, "height", geom.Height)
	resp := a.client.Send(ctx, toTransportSignal(flash))
	if resp.Error != nil {
		return fmt.Errorf("%w: flash: %w", ErrSignalNotAccepted, resp.Error)
	}

	latest, ok := a.signalLog.Latest()
	if !ok {
		return nil
	}
	if resp := a.client.Send(ctx, toTransportSignal(latest.Signal.Clone())); resp.Error != nil {
		return fmt.Errorf("%w: resend after flash: %w", ErrSignalNotAccepted, resp.Error)
	}
	return nil
}
