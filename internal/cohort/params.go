package cohort

import (
	"fmt"
	"math"

	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/dist"
	"github.com/maculab/amdsim/internal/entropy"
	"github.com/maculab/amdsim/internal/patient"
)

// Parameter ordinals within a trajectory class. Each (class, parameter) pair
// owns one pre-sample pool.
const (
	paramEffect = iota
	paramProgression
	paramResistance
	paramCeilingOffset
	numParams
)

// minMultiplier guards the strict-positivity invariant against extreme draws
// from unbounded distributions (e.g. a normal spec with a large std).
const minMultiplier = 1e-6

// Generator produces PatientCharacteristics for an assigned class and
// baseline vision. Draws are served from indexed pools keyed by patient index,
// so characteristics are reproducible independent of cohort size.
type Generator struct {
	cfg   *config.Config
	pools [][numParams]*dist.Pool // by class index
}

// NewGenerator builds samplers and pools for every class parameter. Fails with
// a ConfigurationError if any distribution spec is unsupported.
func NewGenerator(cfg *config.Config, streams *entropy.Streams) (*Generator, error) {
	g := &Generator{cfg: cfg, pools: make([][numParams]*dist.Pool, len(cfg.TrajectoryClasses))}
	for ci, tc := range cfg.TrajectoryClasses {
		specs := [numParams]config.DistSpec{
			paramEffect:        tc.TreatmentEffect,
			paramProgression:   tc.DiseaseProgression,
			paramResistance:    tc.ResistanceRate,
			paramCeilingOffset: tc.VisionCeilingOffset,
		}
		for pi, spec := range specs {
			sampler, err := dist.New(spec, streams.Shared(entropy.PurposeParameter, uint64(ci), uint64(pi)))
			if err != nil {
				return nil, fmt.Errorf("class %q: %w", tc.Name, err)
			}
			g.pools[ci][pi] = dist.NewPool(sampler, 0)
		}
	}
	return g, nil
}

// Generate draws and assembles a full characteristic set for one patient.
// The baseline-vision correlation rule is applied here, deterministically and
// exactly once.
func (g *Generator) Generate(classIdx int, class *config.TrajectoryClass, patientIndex uint64, baselineVision float64) patient.Characteristics {
	pools := &g.pools[classIdx]

	effect := pools[paramEffect].At(patientIndex)
	progression := pools[paramProgression].At(patientIndex)
	resistance := pools[paramResistance].At(patientIndex)
	offset := pools[paramCeilingOffset].At(patientIndex)

	// Higher-baseline patients respond better and progress slower.
	corr := g.cfg.BaselineCorrelation
	if corr.Threshold > 0 && baselineVision > corr.Threshold {
		effect *= corr.EffectFactor
		progression *= corr.ProgressionFactor
	}

	effect = math.Max(effect, minMultiplier)
	progression = math.Max(progression, minMultiplier)
	resistance = clamp(resistance, 0, 1)

	maxVision := math.Min(g.cfg.VisionCeiling, baselineVision+offset)

	return patient.Characteristics{
		TrajectoryClass:              class.Name,
		TreatmentEffectMultiplier:    effect,
		DiseaseProgressionMultiplier: progression,
		ResistanceRate:               resistance,
		MaxAchievableVision:          maxVision,
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
