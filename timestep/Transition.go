package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is a single step of experience with a decomposed reward.
// Reward holds one entry per reward type, indexed by the reward type's
// ordinal (reward types sorted by identifier).
type Transition struct {
	State     *mat.VecDense
	Action    int
	Reward    []float64
	NextState *mat.VecDense
	Terminal  bool
}

// NewTransition returns a Transition which owns copies of its state,
// next state, and reward vector
func NewTransition(state mat.Vector, action int, reward []float64,
	nextState mat.Vector, terminal bool) Transition {
	return Transition{
		State:     mat.VecDenseCopyOf(state),
		Action:    action,
		Reward:    append([]float64(nil), reward...),
		NextState: mat.VecDenseCopyOf(nextState),
		Terminal:  terminal,
	}
}

// Discount returns the multiplier applied to the bootstrapped value of
// the next state: 0 for terminal transitions and 1 otherwise
func (t Transition) Discount() float64 {
	if t.Terminal {
		return 0.0
	}
	return 1.0
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %v  |  "+
		"Terminal: %v", t.Action, t.Reward, t.Terminal)
}
