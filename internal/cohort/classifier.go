// Package cohort enrolls patients: trajectory class assignment, heterogeneous
// parameter generation, and baseline state assembly.
package cohort

import (
	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/entropy"
)

// Classifier assigns each new patient to one trajectory class by weighted
// random choice. Each patient's draw comes from their own dedicated stream, so
// an assignment never depends on how many other draws happened elsewhere.
type Classifier struct {
	classes []config.TrajectoryClass
	streams *entropy.Streams
}

// NewClassifier validates the class list and builds a classifier. Proportions
// must sum to 1.0 within tolerance.
func NewClassifier(classes []config.TrajectoryClass, streams *entropy.Streams) (*Classifier, error) {
	if len(classes) == 0 {
		return nil, &config.ConfigurationError{Field: "trajectory_classes", Value: 0, Constraint: "at least one class required"}
	}
	sum := 0.0
	for _, tc := range classes {
		sum += tc.Proportion
	}
	if diff := sum - 1.0; diff > config.ProportionTolerance || diff < -config.ProportionTolerance {
		return nil, &config.ConfigurationError{Field: "trajectory_classes", Value: sum, Constraint: "proportions must sum to 1.0"}
	}
	return &Classifier{classes: classes, streams: streams}, nil
}

// Assign returns the class index and definition for one patient, consuming a
// single draw from that patient's trajectory stream.
func (c *Classifier) Assign(patientIndex uint64) (int, *config.TrajectoryClass) {
	u := c.streams.Patient(entropy.PurposeTrajectory, patientIndex).Float64()

	cum := 0.0
	for i := range c.classes {
		cum += c.classes[i].Proportion
		if u < cum {
			return i, &c.classes[i]
		}
	}
	// Floating-point shortfall at the top of the cumulative range.
	last := len(c.classes) - 1
	return last, &c.classes[last]
}
