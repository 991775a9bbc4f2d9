// Package api serves read-only JSON views of a simulation run over HTTP.
// All endpoints are GET; the core owns no mutation surface.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maculab/amdsim/internal/engine"
	"github.com/maculab/amdsim/internal/patient"
	"github.com/maculab/amdsim/internal/validate"
)

// Server serves simulation state over HTTP.
type Server struct {
	Sim    *engine.Simulation
	Report *validate.Report // nil until validation has run
	Port   int
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/summary", s.handleSummary)
	mux.HandleFunc("/api/v1/validation", s.handleValidation)
	mux.HandleFunc("/api/v1/patients/", s.handlePatient)

	addr := fmt.Sprintf(":%d", s.Port)
	go func() {
		slog.Info("api server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("api server stopped", "error", err)
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"run_id":    s.Sim.RunID,
		"fortnight": s.Sim.LastFortnight,
		"sim_time":  engine.SimTime(s.Sim.LastFortnight),
		"cohort":    len(s.Sim.Cohort),
		"active":    s.Sim.Stats.Active,
		"seed":      s.Sim.Config.Seed,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"run_id": s.Sim.RunID,
		"stats":  s.Sim.Stats,
		"guards": s.Sim.Engine.Guards,
	})
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	if s.Report == nil {
		http.Error(w, "validation not yet run", http.StatusNotFound)
		return
	}
	writeJSON(w, s.Report)
}

func (s *Server) handlePatient(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/patients/")
	if id == "" {
		http.Error(w, "patient id required", http.StatusBadRequest)
		return
	}

	var found *patient.State
	for _, p := range s.Sim.Cohort {
		if p.ID == id {
			found = p
			break
		}
	}
	if found == nil {
		http.Error(w, "patient not found", http.StatusNotFound)
		return
	}
	writeJSON(w, found)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}
