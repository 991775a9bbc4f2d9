package engine

import (
	"testing"

	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/patient"
)

func TestFixedInterval_LoadingThenMaintenance(t *testing.T) {
	// 3 loading doses q4w (2 fortnights), then q8w (4 fortnights).
	schedule := NewFixedInterval(config.Treatment{
		BaseEffectPerDose:   5,
		IntervalDays:        56,
		LoadingDoses:        3,
		LoadingIntervalDays: 28,
	})

	p := patient.New("P000001", 0, 60, 85)

	var dosedAt []int
	for f := 1; f <= 20; f++ {
		if schedule.Treat(p, f) {
			dosedAt = append(dosedAt, f)
			p.TreatmentsReceived++
			p.LastTreatedAt = f
			p.EverTreated = true
		}
	}

	want := []int{1, 3, 5, 9, 13, 17}
	if len(dosedAt) != len(want) {
		t.Fatalf("dosed at %v, want %v", dosedAt, want)
	}
	for i := range want {
		if dosedAt[i] != want[i] {
			t.Fatalf("dosed at %v, want %v", dosedAt, want)
		}
	}
}

func TestNever_NeverTreats(t *testing.T) {
	p := patient.New("P000001", 0, 60, 85)
	schedule := Never{}
	for f := 1; f <= 10; f++ {
		if schedule.Treat(p, f) {
			t.Fatalf("natural-history schedule dosed at fortnight %d", f)
		}
	}
}
