package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jpalmerr/jobwatch/internal/store"
)

// sseWriteTimeout is the maximum time allowed for a single SSE write
// operation. This prevents goroutine leaks when clients are slow or
// disconnected. Must be <= shutdown timeout to ensure clean shutdown.
const sseWriteTimeout = 5 * time.Second

// Server handles HTTP requests for the JobWatch status API.
//
// Server provides two endpoints:
//   - GET /api/jobs: Returns the last observed snapshot of every job as JSON
//   - GET /api/sse: Server-Sent Events stream for real-time snapshot updates
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	port       int
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// The server reads snapshots from st and listens on the given TCP port.
// It is not started until [Server.Start] is called.
func NewServer(st store.Store, port int, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		port:   port,
		logger: logger,
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the
// server is listening. The server continues running until the context is
// cancelled, at which point it initiates a graceful shutdown with a
// 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", s.handleJobs)
	mux.HandleFunc("/api/sse", s.handleSSE)

	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: mux,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleJobs returns the last observed snapshot of every job as JSON.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshots := s.store.GetAll()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(snapshots); err != nil {
		s.logger.Error("failed to encode jobs response", "error", err)
	}
}

// handleSSE streams snapshot updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients
// are slow or disconnected. Without deadlines, a blocked Fprintf call
// would prevent the handler from detecting context cancellation or channel
// closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some
	// ResponseWriter impls)
	deadlinesSupported := true

	// writeAndFlush writes SSE data with a deadline to prevent blocking
	// forever. If the client is slow or disconnected, the write times out
	// rather than blocking indefinitely, allowing the handler to detect
	// shutdown signals.
	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe to store updates
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send the current snapshots first (also protected by write deadline)
	for _, snap := range s.store.GetAll() {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	// stream updates
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
