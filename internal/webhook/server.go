// Package webhook exposes an HTTP ingest for presence and power events, as
// an alternative to the MQTT source, plus a read-only status endpoint.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/presenced/internal/eventbus"
	"github.com/dokzlo13/presenced/internal/light"
)

// StatusReporter exposes what the controller believes the lights show.
type StatusReporter interface {
	Commanded() light.Flag
	BlinkActive() bool
}

// Server is an HTTP server that receives presence/power webhooks and
// publishes them to the event bus.
type Server struct {
	addr       string
	bus        *eventbus.Bus
	reporter   StatusReporter
	httpServer *http.Server
}

// NewServer creates a new webhook server.
func NewServer(host string, port int, bus *eventbus.Bus, reporter StatusReporter) *Server {
	return &Server{
		addr:     fmt.Sprintf("%s:%d", host, port),
		bus:      bus,
		reporter: reporter,
	}
}

// Run starts the webhook server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	r := mux.NewRouter()
	r.HandleFunc("/presence", s.handlePresence).Methods(http.MethodPost)
	r.HandleFunc("/power", s.handlePower).Methods(http.MethodPost)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: r,
	}

	log.Info().Str("addr", s.addr).Msg("Starting webhook server")

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Webhook server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

type presenceRequest struct {
	Status    string `json:"status"`
	SourceErr string `json:"error,omitempty"`
}

// handlePresence accepts {"status": "Busy"} or {"error": "notsignedin"}.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Status == "" && req.SourceErr == "" {
		http.Error(w, "status or error required", http.StatusBadRequest)
		return
	}

	log.Debug().Str("status", req.Status).Str("error", req.SourceErr).Msg("Received presence webhook")

	s.bus.Publish(eventbus.Event{
		Type:      eventbus.EventTypePresence,
		Status:    req.Status,
		SourceErr: req.SourceErr,
		Source:    "webhook",
	})

	writeOK(w)
}

type powerRequest struct {
	Mode string `json:"mode"`
}

// handlePower accepts {"mode": "suspend"} or {"mode": "resume"}.
func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	var req powerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Mode != eventbus.PowerSuspend && req.Mode != eventbus.PowerResume {
		http.Error(w, "mode must be suspend or resume", http.StatusBadRequest)
		return
	}

	log.Debug().Str("mode", req.Mode).Msg("Received power webhook")

	s.bus.Publish(eventbus.Event{
		Type:   eventbus.EventTypePower,
		Mode:   req.Mode,
		Source: "webhook",
	})

	writeOK(w)
}

type statusResponse struct {
	Lights   []string `json:"lights"`
	Blinking bool     `json:"blinking"`
}

// handleStatus reports the commanded state: the controller's cached belief,
// not a fresh device read.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	commanded := s.reporter.Commanded()
	resp := statusResponse{
		Lights:   []string{},
		Blinking: s.reporter.BlinkActive(),
	}
	for _, f := range light.Order() {
		if commanded.Has(f) {
			resp.Lights = append(resp.Lights, f.String())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
