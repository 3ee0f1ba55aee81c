package applet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qdesktop/qapplet/config"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// zone is one decoded entry of a posted actionValue.
type zone struct {
	ZoneID string `json:"zoneId"`
	Effect string `json:"effect"`
	Color  string `json:"color"`
}

// posted is a signal as received by the fake signal service.
type posted struct {
	Action      string   `json:"action"`
	ActionValue string   `json:"actionValue"`
	ClientName  string   `json:"clientName"`
	Errors      []string `json:"errors"`
	IsMuted     bool     `json:"isMuted"`
	Message     string   `json:"message"`
	Name        string   `json:"name"`
	PID         string   `json:"pid"`
}

func (p posted) zones(t *testing.T) []zone {
	t.Helper()
	var zs []zone
	if err := json.Unmarshal([]byte(p.ActionValue), &zs); err != nil {
		t.Fatalf("actionValue is not a JSON list: %v", err)
	}
	return zs
}

// fakeService is an in-process signal service.
type fakeService struct {
	srv    *httptest.Server
	nextID atomic.Int64
	omitID atomic.Bool

	mu      sync.Mutex
	signals []posted
	deleted []string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	fs := &fakeService{}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeService) URL() string {
	return fs.srv.URL
}

func (fs *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/2.0/signals":
		var p posted
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		fs.signals = append(fs.signals, p)
		fs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fs.omitID.Load() {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"id": %d}`, fs.nextID.Add(1))

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/2.0/signals/"):
		fs.mu.Lock()
		fs.deleted = append(fs.deleted, strings.TrimPrefix(r.URL.Path, "/api/2.0/signals/"))
		fs.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, r)
	}
}

func (fs *fakeService) Signals() []posted {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]posted(nil), fs.signals...)
}

func (fs *fakeService) Deleted() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.deleted...)
}

// testRoot is a 3x2 geometry at origin {5,5}.
func testRoot() *config.Root {
	return &config.Root{
		ExtensionID: "ext-test",
		Geometry: &config.Geometry{
			Width:  3,
			Height: 2,
			Origin: &config.Origin{X: 5, Y: 5},
		},
	}
}

// newTestApplet builds an applet wired to svc with an in-memory store.
func newTestApplet(t *testing.T, runner Runner, svc *fakeService, opts ...Option) *Applet {
	t.Helper()
	base := []Option{
		WithLogger(testLogger()),
		WithBackendURL(svc.URL()),
		WithStoreOpener(MemoryStoreOpener),
		WithConfig(testRoot()),
	}
	a, err := New(runner, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

// countingRunner counts runs and returns the configured signal or error.
type countingRunner struct {
	runs   atomic.Int32
	signal func() *Signal
	err    error
}

func (r *countingRunner) Run(context.Context) (*Signal, error) {
	r.runs.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	if r.signal != nil {
		return r.signal(), nil
	}
	return nil, nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// chanChannel is a Channel fed from a Go channel; closing in ends the
// session with io.EOF.
type chanChannel struct {
	in chan []byte

	mu   sync.Mutex
	sent [][]byte
}

func newChanChannel() *chanChannel {
	return &chanChannel{in: make(chan []byte, 16)}
}

func (c *chanChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-c.in:
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *chanChannel) Send(_ context.Context, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), msg...))
	return nil
}

func (c *chanChannel) Replies(t *testing.T) []Reply {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Reply, 0, len(c.sent))
	for _, raw := range c.sent {
		var r Reply
		if err := json.Unmarshal(raw, &r); err != nil {
			t.Fatalf("reply is not JSON: %s", raw)
		}
		out = append(out, r)
	}
	return out
}
