// Package scaling maps a killmail's ISK value to the scalar that stretches its
// retention lifetime.
package scaling

import (
	"math"
)

// Default logarithmic scaler configuration.
const (
	defaultReferenceValue = 100_000_000 // 100M ISK scales to 1
	defaultMin            = 0.25
	defaultMax            = 8
)

// Func maps a monetary value to a non-negative scalar. Implementations must be
// pure: the same value always yields the same result.
type Func func(value float64) float64

// Option applies a configuration option to the Logarithmic scaler.
type Option func(*Logarithmic)

// WithReferenceValue sets the value that scales to exactly 1.
func WithReferenceValue(reference float64) Option {
	return func(l *Logarithmic) {
		if reference > 0 && !math.IsInf(reference, 0) {
			l.reference = reference
		}
	}
}

// WithBounds sets the inclusive output range.
func WithBounds(minScale, maxScale float64) Option {
	return func(l *Logarithmic) {
		if minScale >= 0 && maxScale >= minScale {
			l.min = minScale
			l.max = maxScale
		}
	}
}

// Logarithmic scales by order of magnitude around a reference value:
// every tenfold increase in value adds one unit, clamped to [min, max].
type Logarithmic struct {
	reference float64
	min       float64
	max       float64
}

// NewLogarithmic creates a logarithmic scaler with configuration options.
func NewLogarithmic(opts ...Option) *Logarithmic {
	l := &Logarithmic{
		reference: defaultReferenceValue,
		min:       defaultMin,
		max:       defaultMax,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Scale returns clamp(1 + log10(value/reference), min, max). Non-positive and
// NaN values map to min.
func (l *Logarithmic) Scale(value float64) float64 {
	if math.IsNaN(value) || value <= 0 {
		return l.min
	}
	if math.IsInf(value, 1) {
		return l.max
	}
	s := 1 + math.Log10(value/l.reference)
	return math.Max(l.min, math.Min(l.max, s))
}

// Func returns the scaler as a Func.
func (l *Logarithmic) Func() Func {
	return l.Scale
}

// Constant returns a Func that always yields v. Useful for tests and for
// disabling value-weighted retention.
func Constant(v float64) Func {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	return func(float64) float64 { return v }
}
