package mountaincar

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"github.com/samuelfneumann/hra/environment"
	"github.com/samuelfneumann/hra/timestep"
)

const (
	// GoalPosition is the commonly used goal position
	GoalPosition float64 = 0.5

	// EpisodeSteps is the commonly used episode step limit
	EpisodeSteps int = 200
)

// Goal implements the classic control task of reaching a goal on
// Mountain Car. Since the car is underpowered, it must rock back and
// forth from hill to hill until it reaches the goal.
//
// Rewards are -1 on each timestep, including the one reaching the goal.
//
// Episodes end after a step limit or when the car reaches the goal.
type Goal struct {
	environment.Starter
	goalEnder *environment.IntervalLimit
	stepEnder *environment.StepLimit
	goalX     float64
}

// NewGoal creates and returns a new Goal task given a Starter, which
// determines the starting states; the maximum number of episode
// steps; and the goal x position.
func NewGoal(s environment.Starter, episodeSteps int,
	goalX float64) (*Goal, error) {
	if episodeSteps <= 0 {
		return nil, fmt.Errorf("newGoal: episode steps must be positive "+
			"\n\twant(>0)\n\thave(%v)", episodeSteps)
	}

	// Positions below the goal are legal, so leaving the interval means
	// the goal was reached
	interval := []r1.Interval{{Min: math.Inf(-1), Max: math.Nextafter(goalX,
		math.Inf(-1))}}
	goalEnder, err := environment.NewIntervalLimit(interval, []int{0},
		timestep.TerminalStateReached)
	if err != nil {
		return nil, fmt.Errorf("newGoal: %w", err)
	}

	return &Goal{s, goalEnder, environment.NewStepLimit(episodeSteps),
		goalX}, nil
}

// NewDefaultGoal returns the Goal task with the usual gym goal and
// starting positions uniform in [-0.6, -0.4] with zero velocity
func NewDefaultGoal(seed uint64) *Goal {
	bounds := []r1.Interval{{Min: -0.6, Max: -0.4}, {Min: 0, Max: 0}}
	g, err := NewGoal(environment.NewUniformStarter(bounds, seed),
		EpisodeSteps, GoalPosition)
	if err != nil {
		panic(err)
	}
	return g
}

// End checks if a TimeStep is the last in an episode
func (g *Goal) End(t *timestep.TimeStep) bool {
	if end := g.goalEnder.End(t); end {
		return true
	}
	return g.stepEnder.End(t)
}

// AtGoal returns whether or not the argument state is a goal state
func (g *Goal) AtGoal(state mat.Vector) bool {
	return state.AtVec(0) >= g.goalX
}

// GetReward returns the reward for a given state and action, resulting
// in a given next state
func (g *Goal) GetReward(_ mat.Vector, _ int, _ mat.Vector) float64 {
	return -1.0
}
