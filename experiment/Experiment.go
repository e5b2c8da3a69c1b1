// Package experiment implements functionality for running agents on
// environments episode by episode
package experiment

import (
	"fmt"

	"github.com/samuelfneumann/hra/agent"
	ts "github.com/samuelfneumann/hra/timestep"
)

// Experiment outlines structs that run an agent on an environment.
// RunEpisode runs a single episode and Run runs a number of episodes
// in sequence.
type Experiment interface {
	RunEpisode() (Episode, error)
	Run(episodes int) ([]Episode, error)
}

// Shaper decomposes the feedback of an environment into the rewards of
// named reward types. After each environment step, Shape reports the
// rewards of the transition from prev to next under action to r.
type Shaper interface {
	RewardTypes() []string
	Shape(prev ts.TimeStep, action int, next ts.TimeStep,
		r agent.Rewarder) error
}

// Episode summarizes a single episode of an experiment
type Episode struct {
	Number   int
	Steps    int
	Return   float64 // Sum of the environment's own rewards
	Explored int     // Number of exploratory actions
	End      ts.EndType
}

func (e Episode) String() string {
	return fmt.Sprintf("Episode %v | Steps: %v  |  Return: %.2f  |  "+
		"Explored: %v  |  End: %v", e.Number, e.Steps, e.Return, e.Explored,
		e.End)
}
