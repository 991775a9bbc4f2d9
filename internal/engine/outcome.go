package engine

import "github.com/maculab/amdsim/internal/patient"

// OutcomeKind tags the result of a post-step evaluation.
type OutcomeKind uint8

const (
	KindContinue OutcomeKind = iota
	KindDiscontinue
)

// Outcome is the tagged result of evaluating a patient after a step: either
// the patient continues, or they should be discontinued for the given reason.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// Continue reports whether the patient keeps receiving scheduled updates.
func (o Outcome) Continue() bool { return o.Kind == KindContinue }

// Evaluate applies the engine's severity checks after a step. Protocol-level
// discontinuation policy lives with the caller; the engine only flags the
// configured vision floor.
func (e *Engine) Evaluate(p *patient.State) Outcome {
	threshold := e.cfg.DiscontinueBelowVision
	if threshold > 0 && p.CurrentVision < threshold {
		return Outcome{Kind: KindDiscontinue, Reason: "vision_below_floor"}
	}
	return Outcome{Kind: KindContinue}
}
