// Package server exposes the provider callback webhook and a liveness
// endpoint.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ResultHandler dispatches a provider callback body to its chat.
type ResultHandler interface {
	DeliverResult(body []byte) error
}

// Server is the inbound HTTP surface: the secret-bearing callback path and
// a health check.
type Server struct {
	callbackPath string
	results      ResultHandler
	logger       *slog.Logger
	httpServer   *http.Server
}

// New creates the callback server. callbackPath must include the webhook
// secret segment.
func New(port int, callbackPath string, results ResultHandler, logger *slog.Logger) *Server {
	s := &Server{
		callbackPath: callbackPath,
		results:      results,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, s.handleCallback)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleCallback receives the provider's asynchronous result. A delivery
// failure answers 500 so the provider may retry per its own policy; the
// correlation entry is released either way by the delivery path.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("read callback body", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("provider callback received", "body_length", len(body))

	if err := s.results.DeliverResult(body); err != nil {
		s.logger.Error("callback delivery failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
