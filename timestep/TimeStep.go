// Package timestep implements timesteps of the agent-environment
// interaction and the decomposed-reward transitions stored for replay
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes why an episode ended. It is only meaningful for a
// TimeStep of type Last.
type EndType int

const (
	// TerminalStateReached denotes that the environment entered a
	// terminal state
	TerminalStateReached EndType = iota

	// Timeout denotes that the driver's step cap was reached
	Timeout

	// Unknown is the EndType of any step which is not the last
	Unknown
)

func (e EndType) String() string {
	switch e {
	case TerminalStateReached:
		return "TerminalStateReached"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	stepType    StepType
	endType     EndType
	Reward      float64
	Observation mat.Vector
	Number      int
}

// New returns a new TimeStep. Last steps default to having reached a
// terminal state, use SetEnd to record a different reason.
func New(t StepType, r float64, o mat.Vector, n int) TimeStep {
	end := Unknown
	if t == Last {
		end = TerminalStateReached
	}
	return TimeStep{stepType: t, endType: end, Reward: r, Observation: o,
		Number: n}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.stepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.stepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.stepType == Last
}

// SetEnd marks the TimeStep as the last of its episode for reason e
func (t *TimeStep) SetEnd(e EndType) {
	t.stepType = Last
	t.endType = e
}

// EndType returns why the episode ended on this TimeStep
func (t *TimeStep) EndType() EndType {
	return t.endType
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  End: %v  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.stepType, t.Reward, t.endType, t.Number)
}
