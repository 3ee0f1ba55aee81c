package applet

import (
	"context"

	"github.com/qdesktop/qapplet/config"
)

// Runner produces the applet's next signal. It is the one extension point
// every applet must supply.
//
// Run is called once per polling interval. Returning a nil signal sends
// nothing. Returning an error (or panicking) records the error as the
// applet's error state and sends an [ActionError] signal carrying it.
type Runner interface {
	Run(ctx context.Context) (*Signal, error)
}

// RunnerFunc adapts a function to the [Runner] interface.
type RunnerFunc func(ctx context.Context) (*Signal, error)

// Run calls f(ctx).
func (f RunnerFunc) Run(ctx context.Context) (*Signal, error) {
	return f(ctx)
}

// ConfigApplier is implemented by runners that post-process configuration.
// A non-nil error rejects the configuration and leaves the applet
// unconfigured.
type ConfigApplier interface {
	ApplyConfig(ctx context.Context, cfg *config.Snapshot) error
}

// OptionsProvider is implemented by runners that offer selectable values
// for a configuration field, for example a list of repositories. search
// carries the user's filter text, if any.
type OptionsProvider interface {
	Options(ctx context.Context, fieldName, search string) ([]OptionItem, error)
}

// ShutdownHook is implemented by runners that release resources before the
// process exits.
type ShutdownHook interface {
	Shutdown(ctx context.Context) error
}

// OptionItem is one selectable value returned by an [OptionsProvider].
type OptionItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
