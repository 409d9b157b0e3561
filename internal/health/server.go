package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AgentInfo describes the running agent for heartbeat responses.
type AgentInfo struct {
	AgentID      string   `json:"agent_id"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// Server provides HTTP endpoints for health monitoring and heartbeats.
type Server struct {
	manager   *Manager
	server    *http.Server
	info      AgentInfo
	startedAt time.Time
}

// NewServer creates a health server on the given port.
func NewServer(manager *Manager, port int, info AgentInfo) *Server {
	mux := http.NewServeMux()
	s := &Server{
		manager: manager,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		info:      info,
		startedAt: time.Now(),
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.HandleFunc("/heartbeat", s.handleHeartbeat)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	summary := s.manager.RunAll(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if summary.Overall == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]string{"status": string(summary.Overall)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.manager.LastSummary()
	if !ok {
		summary = s.manager.RunAll(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":         "alive",
		"timestamp":      time.Now().Unix(),
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
		"agent_id":       s.info.AgentID,
		"name":           s.info.Name,
		"capabilities":   s.info.Capabilities,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
