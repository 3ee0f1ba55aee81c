package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/qdesktop/qapplet/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	defaultTitle     = "qapplet inspector"
	titlePlaceholder = "{{.Title}}"
)

// StateFunc returns a JSON-serialisable snapshot of the applet state.
type StateFunc func() any

// Server serves the inspector API for a log of entries of type T.
type Server[T any] struct {
	log        store.Log[T]
	state      StateFunc
	port       int
	httpServer *http.Server
	addr       net.Addr
	logger     *slog.Logger
	assets     fs.FS
	title      string
}

// NewServer creates a new inspector [Server].
//
// Parameters:
//   - log: the entry log to expose
//   - state: state snapshot function (may be nil)
//   - port: TCP port on 127.0.0.1; 0 picks a free port
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer[T any](log store.Log[T], state StateFunc, port int, logger *slog.Logger) *Server[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server[T]{
		log:    log,
		state:  state,
		port:   port,
		logger: logger,
	}
}

// WithPage serves assets/index.html from assets at "/", with every
// {{.Title}} replaced by the HTML-escaped title. It must be called before
// [Server.Start].
func (s *Server[T]) WithPage(assets fs.FS, title string) *Server[T] {
	s.assets = assets
	s.title = title
	return s
}

// Handler returns the inspector's HTTP routes.
func (s *Server[T]) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/signals", s.handleSignals)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/events", s.handleEvents)
	if s.assets != nil {
		mux.HandleFunc("/", s.handlePage)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. The server
// runs until ctx is cancelled, then shuts down gracefully.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server[T]) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// request contexts end with ctx, which releases SSE handlers on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("inspector server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("inspector shutdown error", "error", err)
		}
	}()

	s.logger.Info("inspector listening", "url", "http://"+s.addr.String())
	return nil
}

// Addr returns the bound address, or nil before [Server.Start].
func (s *Server[T]) Addr() net.Addr {
	return s.addr
}

// handlePage serves the inspector page.
func (s *Server[T]) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Inspector page not found", http.StatusInternalServerError)
		return
	}

	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write inspector page", "error", err)
	}
}

func (s *Server[T]) handleSignals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.log.All())
}

func (s *Server[T]) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var state any = map[string]any{}
	if s.state != nil {
		state = s.state()
	}
	s.writeJSON(w, state)
}

func (s *Server[T]) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode inspector response", "error", err)
	}
}

// handleEvents streams log entries via Server-Sent Events: the current log
// oldest first, then each new entry as it is pushed.
//
// Writes carry a deadline so a stalled client cannot pin the handler.
func (s *Server[T]) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.log.Subscribe()
	defer s.log.Unsubscribe(ch)

	backlog := s.log.All()
	for i := len(backlog) - 1; i >= 0; i-- {
		data, err := json.Marshal(backlog[i])
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown (BaseContext)
			return
		}
	}
}
