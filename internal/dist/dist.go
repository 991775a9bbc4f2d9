// Package dist turns validated distribution specs into samplers and provides
// indexed pre-sample pools for cheap per-patient draws.
package dist

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/maculab/amdsim/internal/config"
)

// Sampler draws one value per call. The distuv distributions satisfy this
// directly.
type Sampler interface {
	Rand() float64
}

// New builds a sampler for the given spec backed by the given source. The spec
// must already have passed config validation; an unknown kind is reported as a
// ConfigurationError anyway so a caller that skipped validation still fails
// loudly.
func New(spec config.DistSpec, src rand.Source) (Sampler, error) {
	switch spec.Kind {
	case config.DistNormal:
		return distuv.Normal{Mu: spec.Mean, Sigma: spec.Std, Src: src}, nil
	case config.DistLognormal:
		return distuv.LogNormal{Mu: spec.Mean, Sigma: spec.Std, Src: src}, nil
	case config.DistBeta:
		return distuv.Beta{Alpha: spec.Alpha, Beta: spec.Beta, Src: src}, nil
	case config.DistUniform:
		return distuv.Uniform{Min: spec.Min, Max: spec.Max, Src: src}, nil
	default:
		return nil, &config.ConfigurationError{
			Field:      "distribution.kind",
			Value:      string(spec.Kind),
			Constraint: "must be one of normal, lognormal, beta, uniform",
		}
	}
}

// Fixed is a degenerate sampler returning a constant. Used where a spec with
// zero spread is configured and in tests.
type Fixed float64

func (f Fixed) Rand() float64 { return float64(f) }
