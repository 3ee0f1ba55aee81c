package main

import (
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"net/http"
	"time"

	"github.com/zoobzio/clockz"
)

var healthStates = []string{"ok", "degraded", "down"}

// healthSource answers GET /health?svc=<name> for any service name. Each
// service steps through ok, degraded and down on its own period of 20 to 60
// seconds, derived from its name so reruns behave the same.
type healthSource struct {
	clock   clockz.Clock
	started time.Time
	logger  *slog.Logger
}

func newHealthSource(clock clockz.Clock, logger *slog.Logger) *healthSource {
	return &healthSource{clock: clock, started: clock.Now(), logger: logger}
}

// period is how long svc stays in each state.
func (h *healthSource) period(svc string) time.Duration {
	f := fnv.New32a()
	_, _ = f.Write([]byte(svc))
	return time.Duration(20+f.Sum32()%41) * time.Second
}

func (h *healthSource) status(svc string) string {
	steps := int(h.clock.Since(h.started) / h.period(svc))
	return healthStates[steps%len(healthStates)]
}

func (h *healthSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	svc := r.URL.Query().Get("svc")
	if svc == "" {
		http.Error(w, "missing svc parameter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"svc": svc, "status": h.status(svc)}); err != nil {
		h.logger.Error("failed to write health response", "svc", svc, "error", err)
	}
}

// serveHealth runs src on addr until the listener fails.
func serveHealth(addr string, src *healthSource) {
	mux := http.NewServeMux()
	mux.Handle("/health", src)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		src.logger.Error("health source stopped", "addr", addr, "error", err)
	}
}
