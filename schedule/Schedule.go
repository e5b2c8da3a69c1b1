// Package schedule implements hyperparameter schedules indexed by a
// step or episode count
package schedule

import (
	"fmt"
	"math"
)

// Schedule returns the value of a hyperparameter at step t
type Schedule interface {
	Value(t int) float64
}

// Linear interpolates linearly from Initial to Final over Horizon steps,
// after which Final is returned
type Linear struct {
	Horizon int
	Initial float64
	Final   float64
}

// NewLinear returns a new Linear schedule
func NewLinear(horizon int, initial, final float64) (Linear, error) {
	if horizon < 1 {
		return Linear{}, fmt.Errorf("newLinear: horizon must be >= 1 "+
			"\n\twant(>=1)\n\thave(%v)", horizon)
	}
	return Linear{Horizon: horizon, Initial: initial, Final: final}, nil
}

// Value implements the Schedule interface
func (l Linear) Value(t int) float64 {
	fraction := math.Min(float64(t)/float64(l.Horizon), 1.0)
	return l.Initial + fraction*(l.Final-l.Initial)
}

// ExponentialDecay decays from Start by a factor of Rate every Steps
// steps, never going below Floor:
//
//	max(Floor, Start * Rate^(t / Steps))
//
// The exponent t / Steps is continuous, so the decay is smooth rather
// than staircased.
type ExponentialDecay struct {
	Start float64
	Rate  float64
	Steps int
	Floor float64
}

// NewExponentialDecay returns a new ExponentialDecay schedule
func NewExponentialDecay(start, rate float64, steps int,
	floor float64) (ExponentialDecay, error) {
	if steps < 1 {
		return ExponentialDecay{}, fmt.Errorf("newExponentialDecay: steps "+
			"must be >= 1 \n\twant(>=1)\n\thave(%v)", steps)
	}
	if rate <= 0 || rate > 1 {
		return ExponentialDecay{}, fmt.Errorf("newExponentialDecay: rate "+
			"must be in (0, 1] \n\twant(0 < rate <= 1)\n\thave(%v)", rate)
	}
	return ExponentialDecay{Start: start, Rate: rate, Steps: steps,
		Floor: floor}, nil
}

// Value implements the Schedule interface
func (e ExponentialDecay) Value(t int) float64 {
	return math.Max(e.Floor, e.Unclamped(t))
}

// Unclamped returns the decayed value at step t ignoring the floor
func (e ExponentialDecay) Unclamped(t int) float64 {
	return e.Start * math.Pow(e.Rate, float64(t)/float64(e.Steps))
}
