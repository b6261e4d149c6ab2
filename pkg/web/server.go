package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/ritzau/graph-editor/pkg/cycles"
	"github.com/ritzau/graph-editor/pkg/editor"
	"github.com/ritzau/graph-editor/pkg/logging"
	"github.com/ritzau/graph-editor/pkg/pubsub"
)

//go:embed static/*
var staticFiles embed.FS

// maxEventBytes bounds the size of a posted event envelope
const maxEventBytes = 1 << 20

// Subscriber opens topic subscriptions for SSE clients
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (pubsub.Subscription, error)
}

// Server represents the web server
type Server struct {
	router     *mux.Router
	shell      *editor.Shell
	subscriber Subscriber
	validate   *validator.Validate
}

// CyclesResponse is the body of GET /api/graph/cycles
type CyclesResponse struct {
	Version uint64         `json:"version"`
	Cycles  []cycles.Cycle `json:"cycles"`
}

// NewServer creates a new web server. Events posted by the renderer are
// dispatched to shell, which must be running its event loop.
func NewServer(shell *editor.Shell, subscriber Subscriber) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		shell:      shell,
		subscriber: subscriber,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/graph", s.handleSubscribe(pubsub.TopicGraph)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/style", s.handleSubscribe(pubsub.TopicStyle)).Methods("GET")

	// API routes - more specific routes must come first
	s.router.HandleFunc("/api/graph/cycles", s.handleCycles).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/style", s.handleStyle).Methods("GET")
	s.router.HandleFunc("/api/events", s.handleEvent).Methods("POST")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("failed to open embedded static files", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// Handler returns the server's root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		sub, err := s.subscriber.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		// Send initial comment to establish connection (Safari compatibility)
		fmt.Fprintf(w, ": connected\n\n")

		// Graph subscribers start from a full frame and patch it with the diffs
		// that follow. Anything queued before the frame is older and skipped.
		if topic == pubsub.TopicGraph {
			if err := s.writeFrame(w); err != nil {
				logging.WarnContext(r.Context(), "failed to send initial frame", "error", err)
				return
			}
		}
		flush(w)

		for event := range sub.Events() {
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "SSE client went away", "topic", topic, "error", err)
				return
			}
			flush(w)
		}
	}
}

func (s *Server) writeFrame(w http.ResponseWriter) error {
	data, err := json.Marshal(s.shell.RenderState())
	if err != nil {
		return fmt.Errorf("failed to marshal render state: %w", err)
	}
	return pubsub.WriteSSE(w, pubsub.Event{
		Topic: pubsub.TopicGraph,
		Type:  pubsub.EventRenderState,
		Data:  data,
	})
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.shell.RenderState())
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	snap := s.shell.Store().Snapshot()
	writeJSON(w, r, CyclesResponse{Version: snap.Version, Cycles: cycles.Find(snap)})
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.shell.RenderState().Style)
}

// handleEvent accepts one renderer event. Malformed envelopes are rejected;
// anything well-formed is applied and acknowledged with 204 whatever its
// effect on the graph, since domain failures are silent no-ops.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var cmd editor.Command
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err := dec.Decode(&cmd); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&cmd); err != nil {
		http.Error(w, "invalid event: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.shell.Dispatch(r.Context(), cmd); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			http.Error(w, "editor unavailable", http.StatusServiceUnavailable)
			return
		}
		logging.WarnContext(r.Context(), "event rejected", "type", cmd.Type, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.WarnContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Start serves on port until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
