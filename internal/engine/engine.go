// Package engine advances patients through fortnightly disease-progression
// steps: treatment effect with ceiling and resistance decay, background
// decline, measurement noise, catastrophic events, and disease-state
// transitions.
package engine

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/dist"
	"github.com/maculab/amdsim/internal/entropy"
	"github.com/maculab/amdsim/internal/patient"
)

// monthsPerFortnight converts per-month event probabilities to the 14-day
// grid (mean Gregorian month of 30.4375 days).
const monthsPerFortnight = 14.0 / 30.4375

// GuardCounters tally numeric edge cases handled by clamping. They are
// diagnostics, not errors.
type GuardCounters struct {
	VisionClamped   int `json:"vision_clamped"`    // new vision clipped to the configured bounds
	CeilingFloored  int `json:"ceiling_floored"`   // achievable ceiling at or below zero during a treated step
	EventProbCapped int `json:"event_prob_capped"` // scaled event probability clipped to 1
}

// perPatient holds the engine's per-patient stream state. Each patient's
// sources are derived from their index alone, so draws are independent of
// cohort composition.
type perPatient struct {
	noise    dist.Sampler
	eventRng *rand.Rand
	eventMag []dist.Sampler
	activity *activityField
}

// Engine computes fortnightly updates for active patients. It never decides
// treatment timing or discontinuation policy; both are inputs.
type Engine struct {
	cfg     *config.Config
	streams *entropy.Streams
	state   map[uint64]*perPatient

	Guards GuardCounters
}

// New creates a progression engine for the given configuration.
func New(cfg *config.Config, streams *entropy.Streams) *Engine {
	return &Engine{
		cfg:     cfg,
		streams: streams,
		state:   make(map[uint64]*perPatient),
	}
}

func (e *Engine) patientState(p *patient.State) *perPatient {
	if ps, ok := e.state[p.Index]; ok {
		return ps
	}

	noiseSampler, err := dist.New(e.cfg.MeasurementNoise, e.streams.Patient(entropy.PurposeNoise, p.Index))
	if err != nil {
		// Specs are validated at load; an invalid one here is a logic bug.
		panic(&config.ValidationError{Invariant: "measurement noise spec valid at step time", Value: e.cfg.MeasurementNoise.Kind})
	}

	eventRng := e.streams.Patient(entropy.PurposeEvent, p.Index)
	mags := make([]dist.Sampler, len(e.cfg.CatastrophicEvts))
	for i, ev := range e.cfg.CatastrophicEvts {
		s, err := dist.New(ev.Magnitude, eventRng)
		if err != nil {
			panic(&config.ValidationError{Invariant: "event magnitude spec valid at step time", Value: ev.Magnitude.Kind})
		}
		mags[i] = s
	}

	ps := &perPatient{
		noise:    noiseSampler,
		eventRng: eventRng,
		eventMag: mags,
		activity: newActivityField(e.streams.Seed(entropy.PurposeActivity, p.Index), e.cfg.Progression.Activity),
	}
	e.state[p.Index] = ps
	return ps
}

// Step advances one active patient by one fortnight. treated reports whether a
// dose was administered this step. Discontinued patients are never stepped.
func (e *Engine) Step(p *patient.State, treated bool, fortnight int) {
	if !p.Active() {
		return
	}
	ps := e.patientState(p)

	benefit := 0.0
	if treated {
		benefit = e.treatmentBenefit(p)
		p.TreatmentsReceived++
		p.LastTreatedAt = fortnight
		p.EverTreated = true
	}

	decline := e.cfg.Progression.BaseDeclinePerFortnight *
		p.ProgressionMultiplier() *
		stateMultiplier(e.cfg.Progression.StateMultipliers, p.Disease)

	noise := ps.noise.Rand()

	impact := e.sampleEvents(p, ps, fortnight)

	newVision := p.CurrentVision + benefit - decline + noise - impact
	clipped := clamp(newVision, e.cfg.VisionFloor, e.cfg.VisionCeiling)
	if clipped != newVision {
		e.Guards.VisionClamped++
	}
	p.CurrentVision = clipped

	p.Disease = ps.activity.stateAt(fortnight, p)

	p.Visits = append(p.Visits, patient.Visit{
		Fortnight:          fortnight,
		Vision:             p.CurrentVision,
		Disease:            p.Disease,
		Treated:            treated,
		TreatmentsReceived: p.TreatmentsReceived,
	})
}

// treatmentBenefit computes the per-dose gain: base effect scaled by the
// patient's multiplier, the ceiling headroom, and exponential resistance
// decay over prior doses.
func (e *Engine) treatmentBenefit(p *patient.State) float64 {
	if p.Ceiling <= 0 {
		// Ceiling driven to zero by repeated catastrophic events; no headroom
		// and no division.
		e.Guards.CeilingFloored++
		return 0
	}
	ceilingFactor := clamp(1.0-p.CurrentVision/p.Ceiling, 0, 1)
	raw := e.cfg.Treatment.BaseEffectPerDose * p.EffectMultiplier() * ceilingFactor
	resistance := math.Exp(-p.ResistanceRate() * float64(p.TreatmentsReceived))
	return raw * resistance
}

// sampleEvents runs one Bernoulli trial per configured catastrophic event and
// returns the summed acute impact. A permanent event also reduces the
// patient's achievable ceiling, at most once per event type; repeat firings
// apply the acute impact only.
func (e *Engine) sampleEvents(p *patient.State, ps *perPatient, fortnight int) float64 {
	total := 0.0
	for i, ev := range e.cfg.CatastrophicEvts {
		prob := ev.ProbabilityPerMonth * monthsPerFortnight
		if prob > 1 {
			prob = 1
			e.Guards.EventProbCapped++
		}
		if prob <= 0 || ps.eventRng.Float64() >= prob {
			continue
		}

		magnitude := math.Abs(ps.eventMag[i].Rand())
		total += magnitude

		p.RecordEvent(patient.CatastrophicRecord{
			Fortnight: fortnight,
			Event:     ev.Name,
			Magnitude: magnitude,
			Permanent: ev.Permanent,
		})

		if ev.Permanent && p.MarkPermanentApplied(ev.Name) {
			p.Ceiling = math.Max(0, p.Ceiling-magnitude*ev.CeilingFraction)
		}
	}
	return total
}

func stateMultiplier(m config.StateMultipliers, s patient.DiseaseState) float64 {
	switch s {
	case patient.StateStable:
		return m.Stable
	case patient.StateActive:
		return m.Active
	case patient.StateHighlyActive:
		return m.HighlyActive
	default:
		return m.Naive
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
