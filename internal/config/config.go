// Package config holds the typed simulation configuration and the shared error
// taxonomy. Everything is validated eagerly at load time; no defaults are
// substituted for missing required fields.
package config

import (
	"fmt"
	"math"
)

// DaysPerFortnight is the calibration time unit. All modeled clinical visit
// intervals are multiples of 14 days, so the engine advances on this grid.
const DaysPerFortnight = 14

// ProportionTolerance is the allowed floating-point slack when trajectory
// class proportions are checked against 1.0.
const ProportionTolerance = 1e-6

// TrajectoryClass is a latent responder category with its population
// proportion and per-parameter distributions. Immutable once loaded.
type TrajectoryClass struct {
	Name                string   `yaml:"name" json:"name"`
	Proportion          float64  `yaml:"proportion" json:"proportion"`
	TreatmentEffect     DistSpec `yaml:"treatment_effect" json:"treatment_effect"`
	DiseaseProgression  DistSpec `yaml:"disease_progression" json:"disease_progression"`
	ResistanceRate      DistSpec `yaml:"resistance_rate" json:"resistance_rate"`
	VisionCeilingOffset DistSpec `yaml:"vision_ceiling_offset" json:"vision_ceiling_offset"`
}

// BaselineCorrelation adjusts drawn parameters against baseline vision:
// patients above Threshold letters respond better and progress slower.
// Applied deterministically, exactly once per patient.
type BaselineCorrelation struct {
	Threshold         float64 `yaml:"threshold" json:"threshold"`
	EffectFactor      float64 `yaml:"effect_factor" json:"effect_factor"`
	ProgressionFactor float64 `yaml:"progression_factor" json:"progression_factor"`
}

// CatastrophicEvent defines a rare large insult (e.g. geographic atrophy).
// Trials recur every fortnight; a permanent event additionally reduces the
// patient's achievable ceiling, at most once per event type.
type CatastrophicEvent struct {
	Name                string   `yaml:"name" json:"name"`
	ProbabilityPerMonth float64  `yaml:"probability_per_month" json:"probability_per_month"`
	Magnitude           DistSpec `yaml:"magnitude" json:"magnitude"`
	Permanent           bool     `yaml:"permanent" json:"permanent"`
	CeilingFraction     float64  `yaml:"ceiling_fraction" json:"ceiling_fraction"` // fraction of magnitude applied to the ceiling (permanent events)
}

// Treatment holds the fixed-interval dosing schedule and per-dose effect.
type Treatment struct {
	BaseEffectPerDose   float64 `yaml:"base_effect_per_dose" json:"base_effect_per_dose"`
	IntervalDays        int     `yaml:"interval_days" json:"interval_days"`
	LoadingDoses        int     `yaml:"loading_doses" json:"loading_doses"`
	LoadingIntervalDays int     `yaml:"loading_interval_days" json:"loading_interval_days"`
}

// StateMultipliers scale the background decline rate per disease state.
type StateMultipliers struct {
	Naive        float64 `yaml:"naive" json:"naive"`
	Stable       float64 `yaml:"stable" json:"stable"`
	Active       float64 `yaml:"active" json:"active"`
	HighlyActive float64 `yaml:"highly_active" json:"highly_active"`
}

// Activity controls the smooth per-patient lesion-activity signal that drives
// disease-state transitions.
type Activity struct {
	Frequency             float64 `yaml:"frequency" json:"frequency"`                             // noise frequency per fortnight
	ActiveThreshold       float64 `yaml:"active_threshold" json:"active_threshold"`               // signal above this → ACTIVE
	HighlyActiveThreshold float64 `yaml:"highly_active_threshold" json:"highly_active_threshold"` // signal above this → HIGHLY_ACTIVE
	TreatmentDamping      float64 `yaml:"treatment_damping" json:"treatment_damping"`             // signal reduction while recently treated
	DampingFortnights     int     `yaml:"damping_fortnights" json:"damping_fortnights"`           // how long a dose suppresses activity
}

// Progression holds background decline and the disease-state model.
type Progression struct {
	BaseDeclinePerFortnight float64          `yaml:"base_decline_per_fortnight" json:"base_decline_per_fortnight"`
	StateMultipliers        StateMultipliers `yaml:"state_multipliers" json:"state_multipliers"`
	Activity                Activity         `yaml:"activity" json:"activity"`
}

// ValidationTarget is a named population statistic with its expected value and
// tolerance band. Consumed only by the validation engine.
type ValidationTarget struct {
	Name      string  `yaml:"name" json:"name"`
	Expected  float64 `yaml:"expected" json:"expected"`
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
	Threshold float64 `yaml:"threshold" json:"threshold"` // for proportion targets: the letters cutoff
}

// Validation configures the population-statistics comparison.
type Validation struct {
	MinPopulation      int                `yaml:"min_population" json:"min_population"`
	EndpointFortnights int                `yaml:"endpoint_fortnights" json:"endpoint_fortnights"`
	EarlyFortnights    int                `yaml:"early_fortnights" json:"early_fortnights"`
	Targets            []ValidationTarget `yaml:"targets" json:"targets"`
}

// Config is the complete simulation configuration.
type Config struct {
	Seed              int64   `yaml:"seed" json:"seed"`
	CohortSize        int     `yaml:"cohort_size" json:"cohort_size"`
	HorizonFortnights int     `yaml:"horizon_fortnights" json:"horizon_fortnights"`
	VisionCeiling     float64 `yaml:"vision_ceiling" json:"vision_ceiling"`
	VisionFloor       float64 `yaml:"vision_floor" json:"vision_floor"`

	BaselineVision      DistSpec            `yaml:"baseline_vision" json:"baseline_vision"`
	BaselineCorrelation BaselineCorrelation `yaml:"baseline_correlation" json:"baseline_correlation"`

	TrajectoryClasses []TrajectoryClass   `yaml:"trajectory_classes" json:"trajectory_classes"`
	Treatment         Treatment           `yaml:"treatment" json:"treatment"`
	Progression       Progression         `yaml:"progression" json:"progression"`
	MeasurementNoise  DistSpec            `yaml:"measurement_noise" json:"measurement_noise"`
	CatastrophicEvts  []CatastrophicEvent `yaml:"catastrophic_events" json:"catastrophic_events"`

	// Patients below this vision are flagged for discontinuation by the cohort
	// runner. Zero disables the check.
	DiscontinueBelowVision float64 `yaml:"discontinue_below_vision" json:"discontinue_below_vision"`

	Validation Validation `yaml:"validation" json:"validation"`
}

// Validate checks the whole configuration. It returns the first problem found
// as a *ConfigurationError; the simulation must not proceed past a failure.
func (c *Config) Validate() error {
	if c.CohortSize <= 0 {
		return &ConfigurationError{Field: "cohort_size", Value: c.CohortSize, Constraint: "must be > 0"}
	}
	if c.HorizonFortnights <= 0 {
		return &ConfigurationError{Field: "horizon_fortnights", Value: c.HorizonFortnights, Constraint: "must be > 0"}
	}
	if c.VisionCeiling <= c.VisionFloor {
		return &ConfigurationError{
			Field:      "vision_ceiling",
			Value:      c.VisionCeiling,
			Constraint: fmt.Sprintf("must be > vision_floor (%v)", c.VisionFloor),
		}
	}

	if err := c.BaselineVision.Validate("baseline_vision"); err != nil {
		return err
	}
	if err := c.MeasurementNoise.Validate("measurement_noise"); err != nil {
		return err
	}

	if len(c.TrajectoryClasses) == 0 {
		return &ConfigurationError{Field: "trajectory_classes", Value: 0, Constraint: "at least one class required"}
	}
	sum := 0.0
	for i, tc := range c.TrajectoryClasses {
		field := fmt.Sprintf("trajectory_classes[%d]", i)
		if tc.Name == "" {
			return &ConfigurationError{Field: field + ".name", Value: "", Constraint: "required"}
		}
		if tc.Proportion < 0 {
			return &ConfigurationError{Field: field + ".proportion", Value: tc.Proportion, Constraint: "must be >= 0"}
		}
		sum += tc.Proportion
		for _, spec := range []struct {
			name string
			d    DistSpec
		}{
			{"treatment_effect", tc.TreatmentEffect},
			{"disease_progression", tc.DiseaseProgression},
			{"resistance_rate", tc.ResistanceRate},
			{"vision_ceiling_offset", tc.VisionCeilingOffset},
		} {
			if err := spec.d.Validate(field + "." + spec.name); err != nil {
				return err
			}
		}
	}
	if math.Abs(sum-1.0) > ProportionTolerance {
		return &ConfigurationError{Field: "trajectory_classes", Value: sum, Constraint: "proportions must sum to 1.0"}
	}

	if c.Treatment.BaseEffectPerDose < 0 {
		return &ConfigurationError{Field: "treatment.base_effect_per_dose", Value: c.Treatment.BaseEffectPerDose, Constraint: "must be >= 0"}
	}
	for _, iv := range []struct {
		name string
		days int
	}{
		{"treatment.interval_days", c.Treatment.IntervalDays},
		{"treatment.loading_interval_days", c.Treatment.LoadingIntervalDays},
	} {
		if iv.days <= 0 {
			return &ConfigurationError{Field: iv.name, Value: iv.days, Constraint: "must be > 0"}
		}
		if iv.days%DaysPerFortnight != 0 {
			return &ConfigurationError{Field: iv.name, Value: iv.days, Constraint: "must be a multiple of 14 days"}
		}
	}

	if c.Progression.BaseDeclinePerFortnight < 0 {
		return &ConfigurationError{Field: "progression.base_decline_per_fortnight", Value: c.Progression.BaseDeclinePerFortnight, Constraint: "must be >= 0"}
	}
	act := c.Progression.Activity
	if act.HighlyActiveThreshold < act.ActiveThreshold {
		return &ConfigurationError{
			Field:      "progression.activity.highly_active_threshold",
			Value:      act.HighlyActiveThreshold,
			Constraint: fmt.Sprintf("must be >= active_threshold (%v)", act.ActiveThreshold),
		}
	}

	for i, ev := range c.CatastrophicEvts {
		field := fmt.Sprintf("catastrophic_events[%d]", i)
		if ev.Name == "" {
			return &ConfigurationError{Field: field + ".name", Value: "", Constraint: "required"}
		}
		if ev.ProbabilityPerMonth < 0 || ev.ProbabilityPerMonth > 1 {
			return &ConfigurationError{Field: field + ".probability_per_month", Value: ev.ProbabilityPerMonth, Constraint: "must be in [0, 1]"}
		}
		if ev.Permanent && (ev.CeilingFraction <= 0 || ev.CeilingFraction > 1) {
			return &ConfigurationError{Field: field + ".ceiling_fraction", Value: ev.CeilingFraction, Constraint: "must be in (0, 1] for permanent events"}
		}
		if err := ev.Magnitude.Validate(field + ".magnitude"); err != nil {
			return err
		}
	}

	v := c.Validation
	if v.EndpointFortnights > c.HorizonFortnights {
		return &ConfigurationError{
			Field:      "validation.endpoint_fortnights",
			Value:      v.EndpointFortnights,
			Constraint: fmt.Sprintf("must be <= horizon_fortnights (%d)", c.HorizonFortnights),
		}
	}
	if v.EarlyFortnights > v.EndpointFortnights {
		return &ConfigurationError{
			Field:      "validation.early_fortnights",
			Value:      v.EarlyFortnights,
			Constraint: "must be <= endpoint_fortnights",
		}
	}

	return nil
}

// FortnightsFromDays snaps an elapsed duration in days down to the 14-day
// grid. Intervals that pass Validate are always exact multiples.
func FortnightsFromDays(days int) int {
	if days < 0 {
		return 0
	}
	return days / DaysPerFortnight
}
