// Standalone mock signal service for trying applets without a keyboard.
//
// Usage:
//
//	go run ./example/cmd/mockservice
//
// Then in another terminal:
//
//	qapplet send --color "#00FF00" --message hello
//	qapplet demo DEV '{"geometry":{"width":4,"height":1}}'
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
)

type signalBody struct {
	Action      string `json:"action"`
	ActionValue string `json:"actionValue"`
	ClientName  string `json:"clientName"`
	Message     string `json:"message"`
	Name        string `json:"name"`
}

type zone struct {
	ZoneID string `json:"zoneId"`
	Effect string `json:"effect"`
	Color  string `json:"color"`
}

func main() {
	addr := ":27301"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	fmt.Printf("Mock signal service starting on %s\n", addr)
	fmt.Println("Signals are logged instead of lighting keys")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu     sync.Mutex
		nextID int64
		live   = make(map[string]signalBody)
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/2.0/signals", func(w http.ResponseWriter, r *http.Request) {
		var body signalBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var zones []zone
		if err := json.Unmarshal([]byte(body.ActionValue), &zones); err != nil {
			http.Error(w, "actionValue must be a JSON list", http.StatusBadRequest)
			return
		}

		mu.Lock()
		nextID++
		id := nextID
		live[fmt.Sprint(id)] = body
		mu.Unlock()

		cells := make([]string, len(zones))
		for i, z := range zones {
			cells[i] = z.ZoneID + "=" + z.Color
		}
		slog.Info("signal",
			"id", id,
			"action", body.Action,
			"client", body.ClientName,
			"message", body.Message,
			"zones", strings.Join(cells, " "),
		)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int64{"id": id})
	})
	mux.HandleFunc("DELETE /api/2.0/signals/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		mu.Lock()
		_, ok := live[id]
		delete(live, id)
		mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		slog.Info("signal deleted", "id", id)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
