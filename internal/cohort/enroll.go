package cohort

import (
	"fmt"

	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/dist"
	"github.com/maculab/amdsim/internal/entropy"
	"github.com/maculab/amdsim/internal/patient"
)

// Enroller creates patients for the simulation: baseline vision draw, class
// assignment, characteristic generation.
type Enroller struct {
	cfg        *config.Config
	streams    *entropy.Streams
	classifier *Classifier
	generator  *Generator
	nextIndex  uint64
}

// NewEnroller wires the classifier and parameter generator for a run.
func NewEnroller(cfg *config.Config, streams *entropy.Streams) (*Enroller, error) {
	classifier, err := NewClassifier(cfg.TrajectoryClasses, streams)
	if err != nil {
		return nil, err
	}
	generator, err := NewGenerator(cfg, streams)
	if err != nil {
		return nil, err
	}
	return &Enroller{
		cfg:        cfg,
		streams:    streams,
		classifier: classifier,
		generator:  generator,
	}, nil
}

// EnrollCohort creates count patients with sequential indices.
func (e *Enroller) EnrollCohort(count int) ([]*patient.State, error) {
	cohort := make([]*patient.State, 0, count)
	for i := 0; i < count; i++ {
		p, err := e.EnrollOne()
		if err != nil {
			return nil, err
		}
		cohort = append(cohort, p)
	}
	return cohort, nil
}

// EnrollOne creates the next patient: draws baseline vision from its dedicated
// stream, assigns a trajectory class, and attaches generated characteristics.
func (e *Enroller) EnrollOne() (*patient.State, error) {
	index := e.nextIndex
	e.nextIndex++

	baseline, err := e.drawBaseline(index)
	if err != nil {
		return nil, err
	}

	id := fmt.Sprintf("P%06d", index+1)
	p := patient.New(id, index, baseline, e.cfg.VisionCeiling)

	classIdx, class := e.classifier.Assign(index)
	p.Attach(e.generator.Generate(classIdx, class, index, baseline))

	return p, nil
}

// Enroll creates a patient with an externally supplied id and baseline vision
// (the enrollment-request path). The index still advances so stream derivation
// stays stable.
func (e *Enroller) Enroll(id string, baselineVision float64) *patient.State {
	index := e.nextIndex
	e.nextIndex++

	p := patient.New(id, index, baselineVision, e.cfg.VisionCeiling)
	classIdx, class := e.classifier.Assign(index)
	p.Attach(e.generator.Generate(classIdx, class, index, baselineVision))
	return p
}

func (e *Enroller) drawBaseline(index uint64) (float64, error) {
	sampler, err := dist.New(e.cfg.BaselineVision, e.streams.Patient(entropy.PurposeBaseline, index))
	if err != nil {
		return 0, err
	}
	v := sampler.Rand()
	return clamp(v, e.cfg.VisionFloor, e.cfg.VisionCeiling), nil
}
