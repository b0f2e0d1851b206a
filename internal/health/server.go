// Package health serves the liveness endpoint. It plays no part in message
// flow: one static route proving the process is alive, plus a JSON status
// snapshot. No authentication.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"wabridge/internal/bridge"
)

// Server is the liveness HTTP responder.
type Server struct {
	host   string
	port   int
	runID  string
	logger *slog.Logger
	server *http.Server

	startedAt       time.Time
	conversationSID string
	stats           func() bridge.Stats
}

type ServerConfig struct {
	Host            string
	Port            int
	RunID           string
	ConversationSID string
	Stats           func() bridge.Stats
	Logger          *slog.Logger
}

type statusResponse struct {
	Status          string       `json:"status"`
	RunID           string       `json:"run_id"`
	UptimeSeconds   int64        `json:"uptime_seconds"`
	ConversationSID string       `json:"conversation_sid"`
	Poll            bridge.Stats `json:"poll"`
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		startedAt:       time.Now().UTC(),
		host:            cfg.Host,
		port:            cfg.Port,
		runID:           cfg.RunID,
		conversationSID: cfg.ConversationSID,
		stats:           cfg.Stats,
		logger:          cfg.Logger.With("component", "health"),
	}
}

// Start runs the liveness server until ctx is cancelled. Context cancellation
// returns nil after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("liveness server started", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
		s.logger.Info("liveness server stopped")
		return nil
	case err := <-errCh:
		return fmt.Errorf("liveness server: %w", err)
	}
}

// Handler returns the route mux without starting a listener. Used by tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /status", s.handleStatus)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "wabridge is running")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:          "running",
		RunID:           s.runID,
		UptimeSeconds:   int64(time.Since(s.startedAt).Seconds()),
		ConversationSID: s.conversationSID,
	}
	if s.stats != nil {
		resp.Poll = s.stats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
