// Package patient provides the per-patient data model: immutable
// characteristics assigned at enrollment and the mutable simulation state
// advanced each fortnight.
package patient

// DiseaseState is the discrete neovascular activity phase.
type DiseaseState uint8

const (
	StateNaive        DiseaseState = iota // enrolled, untreated
	StateStable                           // quiescent lesion
	StateActive                           // active leakage
	StateHighlyActive                     // aggressive progression
)

// String returns the clinical label for a disease state.
func (s DiseaseState) String() string {
	switch s {
	case StateNaive:
		return "NAIVE"
	case StateStable:
		return "STABLE"
	case StateActive:
		return "ACTIVE"
	case StateHighlyActive:
		return "HIGHLY_ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Characteristics are drawn once at enrollment and never change. A patient
// without characteristics (nil) behaves as a population-average responder.
type Characteristics struct {
	TrajectoryClass              string  `json:"trajectory_class"`
	TreatmentEffectMultiplier    float64 `json:"treatment_effect_multiplier"`
	DiseaseProgressionMultiplier float64 `json:"disease_progression_multiplier"`
	ResistanceRate               float64 `json:"resistance_rate"`
	MaxAchievableVision          float64 `json:"max_achievable_vision"`
}

// CatastrophicRecord is one occurrence of a catastrophic event.
type CatastrophicRecord struct {
	Fortnight int     `json:"fortnight"`
	Event     string  `json:"event"`
	Magnitude float64 `json:"magnitude"`
	Permanent bool    `json:"permanent"`
}

// Visit is the step outcome recorded into the patient's history log.
type Visit struct {
	Fortnight          int          `json:"fortnight"`
	Vision             float64      `json:"vision"`
	Disease            DiseaseState `json:"disease_state"`
	Treated            bool         `json:"treated"`
	TreatmentsReceived int          `json:"treatments_received"`
}

// State is the mutable simulation record for one patient. Created at
// enrollment, mutated by the progression engine until discontinuation or the
// end of the run, then frozen for analysis.
type State struct {
	ID    string `json:"id"`
	Index uint64 `json:"index"` // stable enrollment index; seeds this patient's streams

	BaselineVision float64      `json:"baseline_vision"`
	CurrentVision  float64      `json:"current_vision"`
	Ceiling        float64      `json:"ceiling"` // current achievable ceiling; starts at MaxAchievableVision, reduced by permanent events
	Disease        DiseaseState `json:"disease_state"`

	TreatmentsReceived int  `json:"treatments_received"`
	LastTreatedAt      int  `json:"last_treated_at"` // fortnight of the most recent dose
	EverTreated        bool `json:"ever_treated"`

	Characteristics *Characteristics     `json:"characteristics,omitempty"`
	Events          []CatastrophicRecord `json:"catastrophic_events,omitempty"`
	Visits          []Visit              `json:"visits"`

	Discontinued          bool   `json:"discontinued"`
	DiscontinuedFortnight int    `json:"discontinued_fortnight,omitempty"`
	DiscontinuationReason string `json:"discontinuation_reason,omitempty"`

	// Permanent ceiling reductions already applied, by event name.
	permanentApplied map[string]bool
}

// New creates an enrolled patient at baseline. Ceiling starts at the global
// ceiling until characteristics are attached.
func New(id string, index uint64, baselineVision, ceiling float64) *State {
	return &State{
		ID:             id,
		Index:          index,
		BaselineVision: baselineVision,
		CurrentVision:  baselineVision,
		Ceiling:        ceiling,
		Disease:        StateNaive,
	}
}

// Attach sets the patient's characteristics and pins the ceiling to their
// achievable maximum. Called once at enrollment.
func (p *State) Attach(c Characteristics) {
	p.Characteristics = &c
	p.Ceiling = c.MaxAchievableVision
}

// Active reports whether the patient still receives scheduled updates.
func (p *State) Active() bool { return !p.Discontinued }

// Discontinue marks the patient terminal. The first call wins; later calls
// are no-ops so the discontinuation record is set at most once.
func (p *State) Discontinue(fortnight int, reason string) {
	if p.Discontinued {
		return
	}
	p.Discontinued = true
	p.DiscontinuedFortnight = fortnight
	p.DiscontinuationReason = reason
}

// EffectMultiplier returns the treatment-effect multiplier, 1.0 when no
// characteristics are attached.
func (p *State) EffectMultiplier() float64 {
	if p.Characteristics == nil {
		return 1.0
	}
	return p.Characteristics.TreatmentEffectMultiplier
}

// ProgressionMultiplier returns the disease-progression multiplier, 1.0 when
// no characteristics are attached.
func (p *State) ProgressionMultiplier() float64 {
	if p.Characteristics == nil {
		return 1.0
	}
	return p.Characteristics.DiseaseProgressionMultiplier
}

// ResistanceRate returns the tachyphylaxis rate, 0 when no characteristics
// are attached.
func (p *State) ResistanceRate() float64 {
	if p.Characteristics == nil {
		return 0
	}
	return p.Characteristics.ResistanceRate
}

// RecordEvent appends a catastrophic event occurrence.
func (p *State) RecordEvent(rec CatastrophicRecord) {
	p.Events = append(p.Events, rec)
}

// MarkPermanentApplied records that the named event's permanent ceiling
// reduction has been applied. Returns false if it already was.
func (p *State) MarkPermanentApplied(event string) bool {
	if p.permanentApplied == nil {
		p.permanentApplied = make(map[string]bool)
	}
	if p.permanentApplied[event] {
		return false
	}
	p.permanentApplied[event] = true
	return true
}

// VisionChange returns current vision relative to baseline.
func (p *State) VisionChange() float64 { return p.CurrentVision - p.BaselineVision }

// VisionAt returns the recorded vision at the given fortnight and whether a
// visit exists for it. Used by the validation engine for early-timepoint
// lookups.
func (p *State) VisionAt(fortnight int) (float64, bool) {
	for i := len(p.Visits) - 1; i >= 0; i-- {
		if p.Visits[i].Fortnight <= fortnight {
			return p.Visits[i].Vision, true
		}
	}
	return 0, false
}
