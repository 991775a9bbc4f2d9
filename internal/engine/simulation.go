// Simulation ties enrollment, scheduling, and the progression engine together
// and runs a cohort to its horizon.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/patient"
)

// progressEvery controls how often the run logs a progress report, in
// fortnights (26 ≈ one year).
const progressEvery = 26

// SimStats tracks aggregate cohort statistics.
type SimStats struct {
	Active          int     `json:"active"`
	Discontinued    int     `json:"discontinued"`
	MeanVision      float64 `json:"mean_vision"`
	MeanChange      float64 `json:"mean_change"`
	TotalTreatments int     `json:"total_treatments"`
	TotalEvents     int     `json:"total_events"`
}

// Simulation holds the cohort and drives it forward in lockstep fortnights.
type Simulation struct {
	RunID    string
	Config   *config.Config
	Engine   *Engine
	Schedule TreatmentSchedule
	Cohort   []*patient.State

	LastFortnight int
	Stats         SimStats
}

// NewSimulation wires a run over an enrolled cohort.
func NewSimulation(cfg *config.Config, eng *Engine, schedule TreatmentSchedule, cohort []*patient.State) *Simulation {
	sim := &Simulation{
		RunID:    uuid.NewString(),
		Config:   cfg,
		Engine:   eng,
		Schedule: schedule,
		Cohort:   cohort,
	}
	sim.updateStats()
	return sim
}

// StepFortnight advances every active patient by one fortnight. Patients are
// updated in enrollment order; their streams are independent, so order only
// matters for log determinism.
func (s *Simulation) StepFortnight(fortnight int) {
	s.LastFortnight = fortnight
	for _, p := range s.Cohort {
		if !p.Active() {
			continue
		}

		treated := s.Schedule.Treat(p, fortnight)
		s.Engine.Step(p, treated, fortnight)

		if outcome := s.Engine.Evaluate(p); !outcome.Continue() {
			p.Discontinue(fortnight, outcome.Reason)
		}
	}
}

// Run advances the cohort to the configured horizon.
func (s *Simulation) Run() {
	horizon := s.Config.HorizonFortnights
	slog.Info("simulation started",
		"run_id", s.RunID,
		"cohort", len(s.Cohort),
		"horizon_fortnights", horizon,
		"seed", s.Config.Seed,
	)

	for fortnight := 1; fortnight <= horizon; fortnight++ {
		s.StepFortnight(fortnight)

		if fortnight%progressEvery == 0 || fortnight == horizon {
			s.updateStats()
			slog.Info("progress report",
				"fortnight", fortnight,
				"time", SimTime(fortnight),
				"active", s.Stats.Active,
				"discontinued", s.Stats.Discontinued,
				"mean_vision", fmt.Sprintf("%.2f", s.Stats.MeanVision),
				"mean_change", fmt.Sprintf("%.2f", s.Stats.MeanChange),
				"treatments", s.Stats.TotalTreatments,
				"events", s.Stats.TotalEvents,
			)
		}
	}

	g := s.Engine.Guards
	slog.Info("simulation finished",
		"run_id", s.RunID,
		"fortnights", s.LastFortnight,
		"vision_clamped", g.VisionClamped,
		"ceiling_floored", g.CeilingFloored,
		"event_prob_capped", g.EventProbCapped,
	)
}

func (s *Simulation) updateStats() {
	active := 0
	discontinued := 0
	totalVision := 0.0
	totalChange := 0.0
	treatments := 0
	events := 0

	for _, p := range s.Cohort {
		if p.Active() {
			active++
		} else {
			discontinued++
		}
		totalVision += p.CurrentVision
		totalChange += p.VisionChange()
		treatments += p.TreatmentsReceived
		events += len(p.Events)
	}

	s.Stats.Active = active
	s.Stats.Discontinued = discontinued
	s.Stats.TotalTreatments = treatments
	s.Stats.TotalEvents = events
	if n := len(s.Cohort); n > 0 {
		s.Stats.MeanVision = totalVision / float64(n)
		s.Stats.MeanChange = totalChange / float64(n)
	}
}

// SimTime renders a fortnight count as a human-readable duration.
func SimTime(fortnight int) string {
	days := fortnight * config.DaysPerFortnight
	years := days / 364
	weeks := (days % 364) / 7
	return fmt.Sprintf("year %d, week %d", years, weeks)
}
