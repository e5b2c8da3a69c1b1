// Package environment outlines the interfaces and structs needed to
// implement concrete environments with discrete actions
package environment

import (
	"gonum.org/v1/gonum/mat"
	ts "github.com/samuelfneumann/hra/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines when episodes end. If End returns true, it has
// marked the TimeStep as the last of the episode.
type Ender interface {
	End(t *ts.TimeStep) bool
}

// Task implements the reward scheme and the start and end conditions
// of an environment
type Task interface {
	Starter
	Ender
	GetReward(state mat.Vector, action int, nextState mat.Vector) float64
}

// Environment implements a simulated environment with a discrete set of
// actions numbered from 0
type Environment interface {
	// Reset starts a new episode and returns its first TimeStep
	Reset() (ts.TimeStep, error)

	// Step takes action in the environment and returns the next
	// TimeStep and whether it is the last in the episode
	Step(action int) (ts.TimeStep, bool, error)

	ObservationSpec() Spec
	ActionSpec() Spec
}
