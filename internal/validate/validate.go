// Package validate computes population statistics over a finished cohort and
// compares them against calibration targets (the Seven-UP outcome set). It is
// a pure read-only aggregator.
package validate

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/patient"
)

// Statistic names a target may use.
const (
	StatMeanChange       = "mean_change"        // mean vision change, baseline → endpoint
	StatSDChange         = "sd_change"          // standard deviation of that change
	StatEarlyCorrelation = "early_correlation"  // Pearson r, early change vs endpoint change
	StatProportionAbove  = "proportion_above"   // fraction with endpoint vision > Threshold
	StatProportionBelow  = "proportion_below"   // fraction with endpoint vision < Threshold
)

// Result is one computed statistic compared against its target.
type Result struct {
	Name      string  `json:"name"`
	Expected  float64 `json:"expected"`
	Tolerance float64 `json:"tolerance"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// Report is the full validation summary.
type Report struct {
	Population int      `json:"population"`
	Used       int      `json:"used"` // patients with an endpoint observation
	Results    []Result `json:"results"`
	Pass       bool     `json:"pass"`
	Warning    string   `json:"warning,omitempty"`
}

// Engine evaluates validation targets over a cohort.
type Engine struct {
	cfg config.Validation
}

// New checks that every target names a known statistic and returns the
// engine.
func New(cfg config.Validation) (*Engine, error) {
	for i, t := range cfg.Targets {
		switch t.Name {
		case StatMeanChange, StatSDChange, StatEarlyCorrelation, StatProportionAbove, StatProportionBelow:
		default:
			return nil, &config.ConfigurationError{
				Field:      fmt.Sprintf("validation.targets[%d].name", i),
				Value:      t.Name,
				Constraint: "unknown statistic",
			}
		}
		if t.Tolerance < 0 {
			return nil, &config.ConfigurationError{
				Field:      fmt.Sprintf("validation.targets[%d].tolerance", i),
				Value:      t.Tolerance,
				Constraint: "must be >= 0",
			}
		}
	}
	return &Engine{cfg: cfg}, nil
}

// Run computes every target statistic. When the population is below the
// configured minimum the report is still produced, alongside an
// *InsufficientDataError the caller may choose to treat as a warning.
func (e *Engine) Run(cohort []*patient.State) (*Report, error) {
	var endpointVision, endpointChange, earlyChange []float64
	for _, p := range cohort {
		v, ok := p.VisionAt(e.cfg.EndpointFortnights)
		if !ok {
			continue
		}
		endpointVision = append(endpointVision, v)
		endpointChange = append(endpointChange, v-p.BaselineVision)

		early, ok := p.VisionAt(e.cfg.EarlyFortnights)
		if !ok {
			early = p.BaselineVision
		}
		earlyChange = append(earlyChange, early-p.BaselineVision)
	}

	report := &Report{
		Population: len(cohort),
		Used:       len(endpointChange),
		Pass:       true,
	}

	for _, t := range e.cfg.Targets {
		actual := e.compute(t, endpointVision, endpointChange, earlyChange)
		pass := actual >= t.Expected-t.Tolerance && actual <= t.Expected+t.Tolerance
		if !pass {
			report.Pass = false
		}
		report.Results = append(report.Results, Result{
			Name:      t.Name,
			Expected:  t.Expected,
			Tolerance: t.Tolerance,
			Actual:    actual,
			Pass:      pass,
		})
	}

	if min := e.cfg.MinPopulation; min > 0 && len(cohort) < min {
		err := &config.InsufficientDataError{Population: len(cohort), Minimum: min}
		report.Warning = err.Error()
		return report, err
	}
	return report, nil
}

func (e *Engine) compute(t config.ValidationTarget, endpointVision, endpointChange, earlyChange []float64) float64 {
	if len(endpointChange) == 0 {
		return 0
	}
	switch t.Name {
	case StatMeanChange:
		return stat.Mean(endpointChange, nil)
	case StatSDChange:
		return stat.StdDev(endpointChange, nil)
	case StatEarlyCorrelation:
		return stat.Correlation(earlyChange, endpointChange, nil)
	case StatProportionAbove:
		return proportion(endpointVision, func(v float64) bool { return v > t.Threshold })
	case StatProportionBelow:
		return proportion(endpointVision, func(v float64) bool { return v < t.Threshold })
	}
	return 0
}

func proportion(xs []float64, pred func(float64) bool) float64 {
	n := 0
	for _, x := range xs {
		if pred(x) {
			n++
		}
	}
	return float64(n) / float64(len(xs))
}
