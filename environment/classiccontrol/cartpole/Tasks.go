package cartpole

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	env "github.com/samuelfneumann/hra/environment"
	ts "github.com/samuelfneumann/hra/timestep"
)

const (
	// FailAngle is the pole angle past which the pole has fallen
	FailAngle float64 = 12 * 2 * math.Pi / 360

	// FailPosition is the cart position past which the cart has left
	// the track
	FailPosition float64 = 2.4

	// EpisodeSteps is the commonly used episode step limit
	EpisodeSteps int = 200
)

// Balance implements the classic control Cartpole Balance task. In this
// Task, the goal of the agent is to balance the pole on the cart in
// an upright position for as long as possible.
//
// The reward is +1 for every timestep, including the one on which the
// pole falls.
//
// Episodes end after a step limit, after the pole has fallen past the
// fail angle, or after the cart has left the track.
type Balance struct {
	env.Starter
	stepLimiter  *env.StepLimit
	stateLimiter *env.IntervalLimit
	failAngle    float64
}

// NewBalance creates and returns a new Balance task
func NewBalance(s env.Starter, episodeSteps int, failAngle,
	failPosition float64) (*Balance, error) {
	if episodeSteps <= 0 {
		return nil, fmt.Errorf("newBalance: episode steps must be positive "+
			"\n\twant(>0)\n\thave(%v)", episodeSteps)
	}

	legal := []r1.Interval{
		{Min: -failPosition, Max: failPosition},
		{Min: -failAngle, Max: failAngle},
	}
	stateLimiter, err := env.NewIntervalLimit(legal, []int{0, 2},
		ts.TerminalStateReached)
	if err != nil {
		return nil, fmt.Errorf("newBalance: %w", err)
	}

	return &Balance{s, env.NewStepLimit(episodeSteps), stateLimiter,
		failAngle}, nil
}

// NewDefaultBalance returns the Balance task with the usual gym
// thresholds and a small uniform starting distribution
func NewDefaultBalance(seed uint64) *Balance {
	bounds := make([]r1.Interval, 4)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: -0.05, Max: 0.05}
	}
	b, err := NewBalance(env.NewUniformStarter(bounds, seed), EpisodeSteps,
		FailAngle, FailPosition)
	if err != nil {
		panic(err)
	}
	return b
}

// End checks if a TimeStep is the last in an episode. Leaving the
// legal states takes precedence over the step limit.
func (b *Balance) End(t *ts.TimeStep) bool {
	if end := b.stateLimiter.End(t); end {
		return true
	}
	return b.stepLimiter.End(t)
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState.
func (b *Balance) GetReward(_ mat.Vector, _ int, _ mat.Vector) float64 {
	return 1.0
}

// AtGoal returns whether or not the pole is still upright
func (b *Balance) AtGoal(state mat.Vector) bool {
	return math.Abs(state.AtVec(2)) <= b.failAngle
}
