package engine

import (
	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/patient"
)

// TreatmentSchedule decides whether a patient receives a dose at a given
// fortnight. Scheduling is an external concern; this interface is the seam
// where protocol logic plugs in.
type TreatmentSchedule interface {
	Treat(p *patient.State, fortnight int) bool
}

// FixedInterval doses every patient on a loading phase followed by a fixed
// maintenance interval, both snapped to the fortnight grid at config load.
type FixedInterval struct {
	loadingDoses       int
	loadingFortnights  int
	intervalFortnights int
}

// NewFixedInterval builds the schedule from treatment configuration.
func NewFixedInterval(t config.Treatment) *FixedInterval {
	return &FixedInterval{
		loadingDoses:       t.LoadingDoses,
		loadingFortnights:  config.FortnightsFromDays(t.LoadingIntervalDays),
		intervalFortnights: config.FortnightsFromDays(t.IntervalDays),
	}
}

// Treat doses at the first step, at the loading interval until the loading
// doses are given, and at the maintenance interval thereafter.
func (s *FixedInterval) Treat(p *patient.State, fortnight int) bool {
	if s.intervalFortnights <= 0 {
		return false
	}
	if !p.EverTreated {
		return true
	}
	interval := s.intervalFortnights
	if p.TreatmentsReceived < s.loadingDoses {
		interval = s.loadingFortnights
	}
	return fortnight-p.LastTreatedAt >= interval
}

// Never is a schedule that administers no treatment (natural-history arm).
type Never struct{}

func (Never) Treat(*patient.State, int) bool { return false }
