package applet

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/qdesktop/qapplet/internal/transport"
)

// Client sends and deletes signals without an [Applet] lifecycle, for
// one-off tools such as the qapplet CLI. Unlike [Applet.Signal] it sends
// signals as given: no geometry clamping, origin or extension id injection.
type Client struct {
	t *transport.Client
}

// NewClient creates a [Client] for the signal service at baseURL.
// A nil logger selects [slog.Default].
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{t: transport.NewClient(baseURL, logger)}
}

// Client returns a [Client] sharing the applet's connection to the signal
// service.
func (a *Applet) Client() *Client {
	return &Client{t: a.client}
}

// Send posts sig and, on success, stores the assigned id in sig.ID.
func (c *Client) Send(ctx context.Context, sig *Signal) (SignalResult, error) {
	if sig == nil {
		return SignalResult{}, fmt.Errorf("signal is nil")
	}
	result := fromTransportResponse(c.t.Send(ctx, toTransportSignal(sig)))
	if result.Err != nil {
		return result, fmt.Errorf("%w: %w", ErrSignalNotAccepted, result.Err)
	}
	if result.ID == 0 {
		return result, fmt.Errorf("%w: no id assigned", ErrSignalNotAccepted)
	}
	sig.ID = result.ID
	return result, nil
}

// Delete removes a previously sent signal using its ID.
func (c *Client) Delete(ctx context.Context, sig *Signal) (SignalResult, error) {
	if sig == nil || sig.ID == 0 {
		return SignalResult{}, fmt.Errorf("signal has no id")
	}
	return c.DeleteID(ctx, strconv.FormatInt(sig.ID, 10))
}

// DeleteID removes a previously sent signal by id.
func (c *Client) DeleteID(ctx context.Context, id string) (SignalResult, error) {
	result := fromTransportResponse(c.t.Delete(ctx, id))
	if result.Err != nil {
		return result, fmt.Errorf("delete signal %s: %w", id, result.Err)
	}
	return result, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.t.Close()
}
