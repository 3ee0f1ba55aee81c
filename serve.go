package applet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/qdesktop/qapplet/dashboard"
	"github.com/qdesktop/qapplet/internal/server"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the applet against its host channel until the host
// disconnects or ctx is cancelled, then calls [Applet.Shutdown].
//
// Messages are read one at a time. START, POLL and FLASH run in the
// background so a long poll does not hold up later messages such as PAUSE;
// CONFIGURE, OPTIONS and PAUSE are handled in order. In dev mode polling
// starts immediately without waiting for a START message.
//
// Returns nil on disconnect or cancellation, or the channel's read error.
func (a *Applet) Serve(ctx context.Context) error {
	if a.channel == nil {
		return errors.New("no host channel configured, use WithChannel")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.inspector {
		if err := a.startInspector(ctx); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	background := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if a.DevMode() {
		a.logger.Info("starting in dev mode")
		background(func() {
			if err := a.Start(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("start failed", "error", err)
			}
		})
	}

	var serveErr error
loop:
	for {
		raw, err := a.channel.Receive(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				a.logger.Info("host disconnected")
			case ctx.Err() != nil:
				a.logger.Info("serve cancelled")
			default:
				serveErr = fmt.Errorf("receive: %w", err)
			}
			break loop
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			a.logger.Error("could not parse message as JSON", "error", err)
			continue
		}

		switch msg.Data.Type {
		case MessageStart, MessagePoll, MessageFlash:
			background(func() {
				if _, err := a.dispatch(ctx, msg); err != nil {
					a.logger.Error("message handling failed", "type", msg.Data.Type, "error", err)
				}
			})
		default:
			if _, err := a.dispatch(ctx, msg); err != nil {
				a.logger.Error("message handling failed", "type", msg.Data.Type, "error", err)
			}
		}
	}

	cancel()
	if closer, ok := a.channel.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("failed to close host channel", "error", err)
		}
	}
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return errors.Join(serveErr, a.Shutdown(shutdownCtx))
}

// State is the snapshot served by the inspector at /api/state.
type State struct {
	ExtensionID string `json:"extensionId"`
	Configured  bool   `json:"configured"`
	Paused      bool   `json:"paused"`
	Running     bool   `json:"running"`
	DevMode     bool   `json:"devMode"`
	ErrorState  string `json:"errorState,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Origin      Origin `json:"origin"`
	LogSize     int    `json:"logSize"`
}

// State returns a snapshot of the applet's lifecycle state.
func (a *Applet) State() State {
	g := a.Geometry()
	s := State{
		ExtensionID: a.ExtensionID(),
		DevMode:     a.DevMode(),
		Width:       g.Width,
		Height:      g.Height,
		Origin:      Origin{X: g.Origin.X, Y: g.Origin.Y},
		LogSize:     a.signalLog.Len(),
	}

	a.mu.Lock()
	s.Configured = a.configured
	s.Paused = a.paused
	s.Running = a.pollStateLocked() == pollRunning
	if a.errorState != nil {
		s.ErrorState = a.errorState.Error()
	}
	a.mu.Unlock()
	return s
}

func (a *Applet) startInspector(ctx context.Context) error {
	srv := server.NewServer[LogEntry](a.signalLog, func() any { return a.State() }, a.inspectorPort, a.logger).
		WithPage(dashboard.Assets, "qapplet: "+a.ExtensionID())
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start inspector: %w", err)
	}
	return nil
}
