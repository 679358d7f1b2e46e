package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hedge/vaultsync/internal/hub"
	"github.com/hedge/vaultsync/internal/service"
	"go.uber.org/zap"
)

const defaultEventLimit = 50

// HTTPServer serves the SSE stream and status endpoints to the front-end
type HTTPServer struct {
	svc    *service.Service
	hub    *hub.SSEHub
	logger *zap.Logger
	mux    *http.ServeMux
	server *http.Server

	pingInterval time.Duration
}

// NewHTTPServer creates a new HTTP server. The hub must be running.
func NewHTTPServer(svc *service.Service, h *hub.SSEHub, port int, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &HTTPServer{
		svc:    svc,
		hub:    h,
		logger: logger,
		mux:    mux,
		server: &http.Server{
			Addr:        fmt.Sprintf(":%d", port),
			Handler:     mux,
			ReadTimeout: 30 * time.Second,
			// No WriteTimeout: SSE responses stay open
			IdleTimeout: 120 * time.Second,
		},
		pingInterval: 30 * time.Second,
	}

	mux.HandleFunc("/sse", s.handleSSE)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/events", s.handleEvents)

	return s
}

// Handler returns the route multiplexer
func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	topics := topicsFromRequest(r)
	client := s.hub.NewClient(topics...)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	s.logger.Info("SSE client connected", zap.String("client", client.ID), zap.Strings("topics", topics))

	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", client.ID)
	flusher.Flush()

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			data := msg.Data
			if data == "" {
				data = "{}"
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data)
			flusher.Flush()

		case <-ping.C:
			fmt.Fprintf(w, "event: ping\ndata: %s\n\n", time.Now().Format(time.RFC3339))
			flusher.Flush()

		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", zap.String("client", client.ID))
			return
		}
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	watching, target := s.svc.Watching()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"clients":   s.hub.ClientCount(),
		"watching":  watching,
		"vault":     target,
	})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": s.svc.SyncStatus()})
}

func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.svc.RecentEvents(r.Context(), limit)
	if errors.Is(err, service.ErrJournalDisabled) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to read journal", zap.Error(err))
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}

	events := make([]service.EventPayload, 0, len(records))
	for _, rec := range records {
		events = append(events, service.EventPayload{
			Kind:      rec.Kind,
			Timestamp: rec.Timestamp.UnixMilli(),
			Path:      rec.Path,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// topicsFromRequest reads a comma separated topics query parameter,
// defaulting to all topics
func topicsFromRequest(r *http.Request) []string {
	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return []string{"*"}
	}
	return topics
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Start serves until Stop is called
func (s *HTTPServer) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server gracefully
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
