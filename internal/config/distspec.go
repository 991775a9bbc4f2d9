package config

import "fmt"

// DistKind names a supported probability distribution.
type DistKind string

const (
	DistNormal    DistKind = "normal"
	DistLognormal DistKind = "lognormal"
	DistBeta      DistKind = "beta"
	DistUniform   DistKind = "uniform"
)

// DistSpec is a tagged distribution specification. Which fields are meaningful
// depends on Kind: normal and lognormal use Mean/Std, beta uses Alpha/Beta,
// uniform uses Min/Max. Validated eagerly at load time so sampling never sees
// an invalid spec.
type DistSpec struct {
	Kind  DistKind `yaml:"kind" json:"kind"`
	Mean  float64  `yaml:"mean" json:"mean,omitempty"`
	Std   float64  `yaml:"std" json:"std,omitempty"`
	Alpha float64  `yaml:"alpha" json:"alpha,omitempty"`
	Beta  float64  `yaml:"beta" json:"beta,omitempty"`
	Min   float64  `yaml:"min" json:"min,omitempty"`
	Max   float64  `yaml:"max" json:"max,omitempty"`
}

// Validate checks the spec's parameters against its kind.
func (d DistSpec) Validate(field string) error {
	switch d.Kind {
	case DistNormal, DistLognormal:
		if d.Std < 0 {
			return &ConfigurationError{Field: field + ".std", Value: d.Std, Constraint: "must be >= 0"}
		}
	case DistBeta:
		if d.Alpha <= 0 || d.Beta <= 0 {
			return &ConfigurationError{
				Field:      field,
				Value:      fmt.Sprintf("alpha=%v beta=%v", d.Alpha, d.Beta),
				Constraint: "alpha and beta must be > 0",
			}
		}
	case DistUniform:
		if d.Max < d.Min {
			return &ConfigurationError{
				Field:      field,
				Value:      fmt.Sprintf("min=%v max=%v", d.Min, d.Max),
				Constraint: "max must be >= min",
			}
		}
	case "":
		return &ConfigurationError{Field: field + ".kind", Value: "", Constraint: "required"}
	default:
		return &ConfigurationError{Field: field + ".kind", Value: string(d.Kind), Constraint: "must be one of normal, lognormal, beta, uniform"}
	}
	return nil
}
