package config

import "fmt"

// ConfigurationError reports malformed or inconsistent configuration. It is
// raised at load time, before any patient is simulated, and is never recovered
// from internally.
type ConfigurationError struct {
	Field      string // dotted path of the offending field
	Value      any    // value as received
	Constraint string // what was expected
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s = %v (%s)", e.Field, e.Value, e.Constraint)
}

// ValidationError reports a runtime invariant violated mid-simulation. It
// indicates a logic bug rather than bad input and is fatal.
type ValidationError struct {
	Invariant string
	Value     any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invariant violated: %s (got %v)", e.Invariant, e.Value)
}

// InsufficientDataError reports a population too small for stable statistics.
// Callers may proceed past it with a warning.
type InsufficientDataError struct {
	Population int
	Minimum    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("population of %d below minimum %d for stable estimates", e.Population, e.Minimum)
}
