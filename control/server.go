// Package control exposes a playback controller over HTTP.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tailored-agentic-units/audioplayer/player"
)

// Controller is the playback surface the server drives.
type Controller interface {
	PlayURL(ctx context.Context, url string) error
	Stop()
	TogglePlayback()
	Status() player.Snapshot
}

// Ensure the playback controller satisfies Controller
var _ Controller = (*player.Player)(nil)

// PlayRequest is the optional body of POST /play.
type PlayRequest struct {
	URL string `json:"url,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for failures that happen after the response
// status is written. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server routes control requests to a Controller.
type Server struct {
	Controller Controller
	logger     *slog.Logger
}

// NewHandler creates the HTTP handler. A nil gatherer serves the default
// Prometheus registry on /metrics.
func NewHandler(c Controller, gatherer prometheus.Gatherer, opts ...Option) http.Handler {
	s := &Server{Controller: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Post("/play", s.Play)
	r.Post("/stop", s.Stop)
	r.Post("/toggle", s.Toggle)
	r.Get("/status", s.Status)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// Play handles POST /play.
func (s *Server) Play(w http.ResponseWriter, r *http.Request) {
	var body PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Controller.PlayURL(r.Context(), body.URL); err != nil {
		http.Error(w, fmt.Sprintf("Play error: %v", err), statusFor(err))
		return
	}
	s.writeStatus(w, http.StatusAccepted)
}

// Stop handles POST /stop.
func (s *Server) Stop(w http.ResponseWriter, r *http.Request) {
	s.Controller.Stop()
	s.writeStatus(w, http.StatusOK)
}

// Toggle handles POST /toggle.
func (s *Server) Toggle(w http.ResponseWriter, r *http.Request) {
	s.Controller.TogglePlayback()
	s.writeStatus(w, http.StatusOK)
}

// Status handles GET /status.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w, http.StatusOK)
}

func (s *Server) writeStatus(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(s.Controller.Status()); err != nil {
		s.logger.Error("status encode failed", "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, player.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, player.ErrNoURL):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
