package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/entity"
	"github.com/abramin/compatlens/internal/logging"
	"github.com/abramin/compatlens/internal/metrics"
)

// Server is the compatlens HTTP lookup server.
type Server struct {
	lists      *catalog.Lazy
	recorder   *metrics.Recorder
	logger     *slog.Logger
	httpServer *http.Server
}

// Config holds server configuration.
type Config struct {
	Port  int
	Lists *catalog.Lazy
	// Metrics is optional; without it /metrics is not served.
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// New creates a new server instance.
func New(cfg Config) *Server {
	s := &Server{
		lists:    cfg.Lists,
		recorder: cfg.Metrics,
		logger:   logging.OrDiscard(cfg.Logger),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/stats", s.corsMiddleware(s.handleStats))
	mux.HandleFunc("/api/lookup", s.corsMiddleware(s.handleLookup))
	mux.HandleFunc("/api/parse", s.corsMiddleware(s.handleParse))

	// Health check
	mux.HandleFunc("/api/health", s.corsMiddleware(s.handleHealth))

	if s.recorder != nil {
		mux.Handle("/metrics", s.recorder.Handler())
	}

	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Start serves until ctx is done or the process receives SIGINT or SIGTERM,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", "http://"+ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// corsMiddleware adds CORS headers for local development.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding JSON", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// index returns the list index, building it on first use.
func (s *Server) index(w http.ResponseWriter, r *http.Request) (*catalog.Index, bool) {
	idx, err := s.lists.GetContext(r.Context())
	if err != nil {
		s.logger.Error("list index unavailable", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "list index unavailable: "+err.Error())
		return nil, false
	}
	return idx, true
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statsResponse is returned by /api/stats.
type statsResponse struct {
	Source string         `json:"source"`
	Total  int            `json:"total"`
	ByKind map[string]int `json:"by_kind"`
}

// handleStats returns entry counts per kind.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idx, ok := s.index(w, r)
	if !ok {
		return
	}

	resp := statsResponse{
		Source: s.lists.Source(),
		Total:  idx.Len(),
		ByKind: make(map[string]int),
	}
	for kind, n := range idx.Counts() {
		resp.ByKind[kind.String()] = n
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleLookup handles GET /api/lookup?id=<canonical id> or ?raw=<raw line>.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var kind entity.Kind
	var id string
	q := r.URL.Query()
	switch {
	case q.Get("raw") != "":
		parsed, err := entity.Parse(q.Get("raw"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kind, id = parsed.Kind(), parsed.ID()
	case q.Get("id") != "":
		// A malformed canonical ID is a miss, not an error.
		id = q.Get("id")
		kind = entity.KindOfID(id)
	default:
		s.writeError(w, http.StatusBadRequest, "id or raw parameter required")
		return
	}

	idx, ok := s.index(w, r)
	if !ok {
		return
	}
	hit, found := idx.Lookup(kind, id)
	if s.recorder != nil {
		s.recorder.ObserveLookup(kind, found)
	}
	if !found {
		s.writeError(w, http.StatusNotFound, "not listed: "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, hit)
}

// handleParse handles GET /api/parse?raw=<raw line>.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := r.URL.Query().Get("raw")
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, "raw parameter required")
		return
	}
	parsed, err := entity.Parse(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, parsed)
}
