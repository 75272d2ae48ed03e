// Package httpapi serves the bridge operations as JSON over HTTP and streams
// live notifications as server-sent events.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cris2986/calendar-pulse/internal/bridge"
)

// Server is the HTTP front end of a bridge.Controller.
type Server struct {
	controller *bridge.Controller
	hub        *Hub
	router     *mux.Router
	http       *http.Server
	cancel     context.CancelFunc
	logger     *slog.Logger
}

// NewServer creates a Server listening on addr. Events published on hub are
// streamed at /events.
func NewServer(addr string, controller *bridge.Controller, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		controller: controller,
		hub:        hub,
		router:     mux.NewRouter(),
		logger:     logger,
	}
	s.routes()

	// Request contexts derive from baseCtx so Shutdown can end event streams.
	baseCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/permission", s.handlePermission).Methods(http.MethodGet)
	s.router.HandleFunc("/permission/request", s.handleRequestPermission).Methods(http.MethodPost)
	s.router.HandleFunc("/listening/start", s.handleStartListening).Methods(http.MethodPost)
	s.router.HandleFunc("/listening/stop", s.handleStopListening).Methods(http.MethodPost)
	s.router.HandleFunc("/queue/drain", s.handleDrain).Methods(http.MethodPost)
	s.router.HandleFunc("/queue/size", s.handleQueueSize).Methods(http.MethodGet)
	s.router.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}

	s.logger.Info("HTTP bridge listening", "addr", ln.Addr().String())
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "error", err)
		}
	}()
	return nil
}

// Shutdown closes event streams and stops the server, waiting for in-flight
// requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.controller.IsPermissionGranted())
}

func (s *Server) handleRequestPermission(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.controller.RequestPermission(r.Context()))
}

func (s *Server) handleStartListening(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.controller.StartListening())
}

func (s *Server) handleStopListening(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.controller.StopListening())
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.controller.GetQueuedNotifications())
}

func (s *Server) handleQueueSize(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.controller.GetQueueSize())
}

// handleEvents streams hub events until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()
	s.logger.Debug("event subscriber connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("event subscriber disconnected", "remote", r.RemoteAddr)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Name, ev.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
