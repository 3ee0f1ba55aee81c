package applet

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when an operation needs a configuration
	// that has not been applied.
	ErrNotConfigured = errors.New("applet is not configured")

	// ErrSignalNotAccepted is returned when the signal service could not be
	// reached, rejected the signal, or did not assign it an id.
	ErrSignalNotAccepted = errors.New("signal not accepted by the signal service")

	// ErrShutdown is returned by operations attempted after [Applet.Shutdown].
	ErrShutdown = errors.New("applet is shut down")
)

// PanicError wraps a value recovered from a panicking runner.
type PanicError struct {
	Value         any
	CorrelationID string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("applet run panicked: %v (correlation_id %s)", e.Value, e.CorrelationID)
}
