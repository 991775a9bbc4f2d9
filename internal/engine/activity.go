package engine

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/patient"
)

// activityField produces a smooth per-patient lesion-activity signal over
// simulation time. Simplex noise gives coherent waxing and waning; white noise
// would flip the disease state every step.
type activityField struct {
	noise opensimplex.Noise
	cfg   config.Activity
}

func newActivityField(seed int64, cfg config.Activity) *activityField {
	return &activityField{noise: opensimplex.New(seed), cfg: cfg}
}

// signalAt returns the raw activity signal at a fortnight, in roughly [-1, 1].
func (f *activityField) signalAt(fortnight int) float64 {
	return f.noise.Eval2(float64(fortnight)*f.cfg.Frequency, 0.5)
}

// stateAt maps the damped activity signal to a discrete disease state. A
// recent dose suppresses activity for a configured number of fortnights.
// Patients stay NAIVE until their first dose.
func (f *activityField) stateAt(fortnight int, p *patient.State) patient.DiseaseState {
	if !p.EverTreated {
		return patient.StateNaive
	}

	signal := f.signalAt(fortnight)
	if f.cfg.DampingFortnights > 0 && fortnight-p.LastTreatedAt < f.cfg.DampingFortnights {
		signal -= f.cfg.TreatmentDamping
	}

	switch {
	case signal >= f.cfg.HighlyActiveThreshold:
		return patient.StateHighlyActive
	case signal >= f.cfg.ActiveThreshold:
		return patient.StateActive
	default:
		return patient.StateStable
	}
}
