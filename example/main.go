// Command example is a status applet: it lights one key per service, green
// when healthy, orange when degraded and red when down.
//
// Run it against the mock signal service:
//
//	go run ./example/cmd/mockservice
//	QAPPLET_BACKEND_URL=http://localhost:27301 go run ./example DEV
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	applet "github.com/qdesktop/qapplet"
	"github.com/qdesktop/qapplet/config"
	"github.com/zoobzio/clockz"
)

var statusColors = map[string]string{
	"ok":       "#00FF00",
	"degraded": "#FF8800",
	"down":     "#FF0000",
}

// statusRunner polls a health endpoint for each configured service.
type statusRunner struct {
	baseURL  string
	services []string
	client   *http.Client
}

// ApplyConfig reads the comma-separated "services" value.
func (r *statusRunner) ApplyConfig(_ context.Context, snap *config.Snapshot) error {
	if list, ok := snap.String("services"); ok && list != "" {
		r.services = strings.Split(list, ",")
	}
	if u, ok := snap.String("healthUrl"); ok && u != "" {
		r.baseURL = u
	}
	return nil
}

func (r *statusRunner) Run(ctx context.Context) (*applet.Signal, error) {
	row := make([]applet.Point, 0, len(r.services))
	var down []string
	for _, svc := range r.services {
		status, err := r.status(ctx, svc)
		if err != nil {
			return nil, err
		}
		color, ok := statusColors[status]
		if !ok {
			color = "#FFFFFF"
		}
		effect := applet.EffectSetColor
		if status == "down" {
			effect = applet.EffectBlink
			down = append(down, svc)
		}
		row = append(row, applet.NewPoint(color, effect))
	}

	msg := "all services healthy"
	if len(down) > 0 {
		msg = "down: " + strings.Join(down, ", ")
	}
	return applet.NewSignal([][]applet.Point{row},
		applet.WithName("Service status"),
		applet.WithMessage(msg),
		applet.WithMuted(len(down) == 0),
	), nil
}

func (r *statusRunner) status(ctx context.Context, svc string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health?svc="+url.QueryEscape(svc), nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("health check %s: %w", svc, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health check %s: status %d", svc, resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("health check %s: %w", svc, err)
	}
	return body.Status, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	// local health endpoint for the default services (see mock_server.go)
	go serveHealth(":9999", newHealthSource(clockz.RealClock, logger))
	time.Sleep(100 * time.Millisecond)

	runner := &statusRunner{
		baseURL:  "http://localhost:9999",
		services: []string{"users", "orders", "billing"},
		client:   &http.Client{Timeout: 5 * time.Second},
	}

	a, err := applet.New(runner,
		applet.WithLogger(logger),
		applet.WithArgs(os.Args[1:]),
		applet.WithPollingInterval(15*time.Second),
		applet.WithChannel(applet.NewLineChannel(os.Stdin, os.Stdout)),
	)
	if err != nil {
		logger.Error("failed to create applet", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Serve(ctx); err != nil {
		logger.Error("applet error", "error", err)
		os.Exit(1)
	}
}
