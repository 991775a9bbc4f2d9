package engine

import (
	"math"
	"testing"

	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/entropy"
	"github.com/maculab/amdsim/internal/patient"
)

func point(v float64) config.DistSpec {
	return config.DistSpec{Kind: config.DistUniform, Min: v, Max: v}
}

// quietCfg has zero decline, zero noise, and no events, so treatment effect
// can be checked exactly.
func quietCfg() *config.Config {
	return &config.Config{
		Seed:              1,
		CohortSize:        1,
		HorizonFortnights: 10,
		VisionCeiling:     85,
		VisionFloor:       0,
		Treatment: config.Treatment{
			BaseEffectPerDose:   5.0,
			IntervalDays:        56,
			LoadingDoses:        3,
			LoadingIntervalDays: 28,
		},
		Progression: config.Progression{
			BaseDeclinePerFortnight: 0,
			StateMultipliers:        config.StateMultipliers{Naive: 1, Stable: 1, Active: 1, HighlyActive: 1},
			Activity:                config.Activity{Frequency: 0.06, ActiveThreshold: 0.2, HighlyActiveThreshold: 0.6},
		},
		MeasurementNoise: point(0),
	}
}

func newTestPatient(baseline float64, chars patient.Characteristics) *patient.State {
	p := patient.New("P000001", 0, baseline, 85)
	p.Attach(chars)
	return p
}

func TestStep_FirstDoseBenefit(t *testing.T) {
	// effect 1.3, max vision 85, current 55, base effect 5, no resistance:
	// benefit = 5 * 1.3 * (1 - 55/85) ≈ 2.294 letters.
	eng := New(quietCfg(), entropy.New(1))
	p := newTestPatient(55, patient.Characteristics{
		TreatmentEffectMultiplier:    1.3,
		DiseaseProgressionMultiplier: 1.0,
		ResistanceRate:               0,
		MaxAchievableVision:          85,
	})

	eng.Step(p, true, 1)

	want := 55 + 5.0*1.3*(1-55.0/85.0)
	if math.Abs(p.CurrentVision-want) > 1e-9 {
		t.Errorf("vision after first dose %v, want %v", p.CurrentVision, want)
	}
	if p.TreatmentsReceived != 1 {
		t.Errorf("treatments received %d, want 1", p.TreatmentsReceived)
	}
	if len(p.Visits) != 1 || !p.Visits[0].Treated {
		t.Errorf("expected one treated visit record, got %+v", p.Visits)
	}
}

func TestStep_UntreatedAppliesDeclineOnly(t *testing.T) {
	cfg := quietCfg()
	cfg.Progression.BaseDeclinePerFortnight = 0.5
	eng := New(cfg, entropy.New(1))
	p := newTestPatient(60, patient.Characteristics{
		TreatmentEffectMultiplier:    1.0,
		DiseaseProgressionMultiplier: 2.0,
		MaxAchievableVision:          85,
	})

	eng.Step(p, false, 1)

	// decline = 0.5 * 2.0 for one fortnight, NAIVE multiplier 1.
	if math.Abs(p.CurrentVision-59.0) > 1e-9 {
		t.Errorf("vision %v, want 59.0", p.CurrentVision)
	}
	if p.TreatmentsReceived != 0 {
		t.Errorf("untreated step must not increment treatments, got %d", p.TreatmentsReceived)
	}
}

func TestTreatmentBenefit_ResistanceDecay(t *testing.T) {
	eng := New(quietCfg(), entropy.New(1))
	p := newTestPatient(55, patient.Characteristics{
		TreatmentEffectMultiplier: 1.0,
		ResistanceRate:            0.2,
		MaxAchievableVision:       85,
	})

	prev := math.Inf(1)
	for doses := 0; doses < 20; doses++ {
		p.TreatmentsReceived = doses
		b := eng.treatmentBenefit(p)
		if b > prev {
			t.Fatalf("benefit increased from %v to %v at dose %d", prev, b, doses)
		}
		prev = b
	}

	// Exact decay ratio between consecutive doses is exp(-rate).
	p.TreatmentsReceived = 0
	b0 := eng.treatmentBenefit(p)
	p.TreatmentsReceived = 1
	b1 := eng.treatmentBenefit(p)
	if math.Abs(b1/b0-math.Exp(-0.2)) > 1e-12 {
		t.Errorf("decay ratio %v, want %v", b1/b0, math.Exp(-0.2))
	}
}

func TestTreatmentBenefit_ZeroResistanceNeverDecays(t *testing.T) {
	eng := New(quietCfg(), entropy.New(1))
	p := newTestPatient(55, patient.Characteristics{
		TreatmentEffectMultiplier: 1.0,
		ResistanceRate:            0,
		MaxAchievableVision:       85,
	})

	p.TreatmentsReceived = 0
	b0 := eng.treatmentBenefit(p)
	p.TreatmentsReceived = 50
	b50 := eng.treatmentBenefit(p)
	if b0 != b50 {
		t.Errorf("zero resistance should not decay: %v vs %v", b0, b50)
	}
}

func TestTreatmentBenefit_AtCeilingIsZero(t *testing.T) {
	eng := New(quietCfg(), entropy.New(1))
	p := newTestPatient(70, patient.Characteristics{
		TreatmentEffectMultiplier: 3.0,
		MaxAchievableVision:       70,
	})

	if b := eng.treatmentBenefit(p); b != 0 {
		t.Errorf("benefit at ceiling should be 0 regardless of multiplier, got %v", b)
	}
}

func TestTreatmentBenefit_GuardsZeroCeiling(t *testing.T) {
	eng := New(quietCfg(), entropy.New(1))
	p := newTestPatient(10, patient.Characteristics{
		TreatmentEffectMultiplier: 1.0,
		MaxAchievableVision:       50,
	})
	p.Ceiling = 0 // driven down by repeated permanent events

	if b := eng.treatmentBenefit(p); b != 0 {
		t.Errorf("benefit with zero ceiling should clamp to 0, got %v", b)
	}
	if eng.Guards.CeilingFloored != 1 {
		t.Errorf("ceiling-floor guard not counted, got %d", eng.Guards.CeilingFloored)
	}
}

func TestStep_VisionClampedToBounds(t *testing.T) {
	cfg := quietCfg()
	eng := New(cfg, entropy.New(1))

	high := newTestPatient(55, patient.Characteristics{
		TreatmentEffectMultiplier: 1000,
		MaxAchievableVision:       85,
	})
	eng.Step(high, true, 1)
	if high.CurrentVision > 85 {
		t.Errorf("vision %v above ceiling", high.CurrentVision)
	}

	cfg2 := quietCfg()
	cfg2.Progression.BaseDeclinePerFortnight = 500
	eng2 := New(cfg2, entropy.New(1))
	low := newTestPatient(55, patient.Characteristics{
		TreatmentEffectMultiplier:    1,
		DiseaseProgressionMultiplier: 1,
		MaxAchievableVision:          85,
	})
	eng2.Step(low, false, 1)
	if low.CurrentVision < 0 {
		t.Errorf("vision %v below floor", low.CurrentVision)
	}
	if eng2.Guards.VisionClamped != 1 {
		t.Errorf("clamp guard not counted, got %d", eng2.Guards.VisionClamped)
	}
}

func TestStep_ZeroProbabilityEventNeverFires(t *testing.T) {
	cfg := quietCfg()
	cfg.CatastrophicEvts = []config.CatastrophicEvent{{
		Name:                "geographic_atrophy",
		ProbabilityPerMonth: 0,
		Magnitude:           point(20),
		Permanent:           true,
		CeilingFraction:     1,
	}}
	eng := New(cfg, entropy.New(1))
	p := newTestPatient(60, patient.Characteristics{
		TreatmentEffectMultiplier: 1, DiseaseProgressionMultiplier: 1, MaxAchievableVision: 80,
	})

	for f := 1; f <= 500; f++ {
		eng.Step(p, false, f)
	}
	if len(p.Events) != 0 {
		t.Errorf("zero-probability event fired %d times", len(p.Events))
	}
}

func TestStep_PermanentEventReducesCeilingExactlyOnce(t *testing.T) {
	cfg := quietCfg()
	cfg.CatastrophicEvts = []config.CatastrophicEvent{{
		Name:                "geographic_atrophy",
		ProbabilityPerMonth: 1, // fires roughly every other fortnight
		Magnitude:           point(20),
		Permanent:           true,
		CeilingFraction:     1,
	}}
	eng := New(cfg, entropy.New(1))
	p := newTestPatient(60, patient.Characteristics{
		TreatmentEffectMultiplier: 1, DiseaseProgressionMultiplier: 1, MaxAchievableVision: 80,
	})

	for f := 1; f <= 200; f++ {
		eng.Step(p, false, f)
	}

	if len(p.Events) < 2 {
		t.Fatalf("expected repeated event firings over 200 fortnights, got %d", len(p.Events))
	}
	// The acute impact recurs but the ceiling reduction applies once.
	if p.Ceiling != 60 {
		t.Errorf("ceiling %v, want 80 - 20 = 60 applied exactly once", p.Ceiling)
	}
}

func TestStep_TreatmentsReceivedMonotone(t *testing.T) {
	cfg := quietCfg()
	cfg.MeasurementNoise = config.DistSpec{Kind: config.DistNormal, Mean: 0, Std: 2}
	eng := New(cfg, entropy.New(7))
	p := newTestPatient(60, patient.Characteristics{
		TreatmentEffectMultiplier: 1, DiseaseProgressionMultiplier: 1, MaxAchievableVision: 85,
	})

	prev := 0
	for f := 1; f <= 50; f++ {
		treated := f%4 == 1
		eng.Step(p, treated, f)
		if p.TreatmentsReceived < prev {
			t.Fatalf("treatments decreased at fortnight %d", f)
		}
		if treated && p.TreatmentsReceived != prev+1 {
			t.Fatalf("treated step must increment by exactly 1, got %d → %d", prev, p.TreatmentsReceived)
		}
		if !treated && p.TreatmentsReceived != prev {
			t.Fatalf("untreated step must not change the counter")
		}
		prev = p.TreatmentsReceived
	}
}

func TestStep_DiscontinuedPatientNeverMutated(t *testing.T) {
	eng := New(quietCfg(), entropy.New(1))
	p := newTestPatient(60, patient.Characteristics{
		TreatmentEffectMultiplier: 1, DiseaseProgressionMultiplier: 1, MaxAchievableVision: 85,
	})
	p.Discontinue(5, "protocol")

	before := p.CurrentVision
	eng.Step(p, true, 6)

	if p.CurrentVision != before || len(p.Visits) != 0 || p.TreatmentsReceived != 0 {
		t.Error("discontinued patient was mutated by Step")
	}
}

func TestEvaluate_VisionFloorDiscontinuation(t *testing.T) {
	cfg := quietCfg()
	cfg.DiscontinueBelowVision = 20
	eng := New(cfg, entropy.New(1))

	p := newTestPatient(60, patient.Characteristics{MaxAchievableVision: 85})
	if out := eng.Evaluate(p); !out.Continue() {
		t.Error("patient above the floor should continue")
	}

	p.CurrentVision = 15
	out := eng.Evaluate(p)
	if out.Continue() {
		t.Fatal("patient below the floor should be flagged")
	}
	if out.Reason == "" {
		t.Error("discontinuation outcome must carry a reason")
	}
}

func TestDiseaseStates_NaiveUntilFirstDose(t *testing.T) {
	cfg := quietCfg()
	eng := New(cfg, entropy.New(3))
	p := newTestPatient(60, patient.Characteristics{
		TreatmentEffectMultiplier: 1, DiseaseProgressionMultiplier: 1, MaxAchievableVision: 85,
	})

	for f := 1; f <= 5; f++ {
		eng.Step(p, false, f)
		if p.Disease != patient.StateNaive {
			t.Fatalf("untreated patient left NAIVE at fortnight %d: %s", f, p.Disease)
		}
	}

	eng.Step(p, true, 6)
	if p.Disease == patient.StateNaive {
		t.Error("first dose should move the patient out of NAIVE")
	}
}
