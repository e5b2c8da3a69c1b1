// Package mountaincar implements the Mountain Car classic control
// environment
package mountaincar

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	env "github.com/samuelfneumann/hra/environment"
	ts "github.com/samuelfneumann/hra/timestep"
)

const (
	MinPosition float64 = -1.2
	MaxPosition float64 = 0.6
	MaxSpeed    float64 = 0.07
	Power       float64 = 0.001 // Engine power
	Gravity     float64 = 0.0025

	// Actions is the number of discrete actions
	Actions int = 3
)

// MountainCar implements the classic control environment Mountain Car.
// An underpowered car sits in a valley and must rock back and forth to
// reach the top of the hill on the right.
//
// The state features are the car's x position and velocity, bounded by
// the constants defined in this package. Upon reaching the left
// boundary, the velocity of the car is set to 0.
//
// Actions are discrete:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
//
// MountainCar implements the environment.Environment interface
type MountainCar struct {
	env.Task
	positionBounds r1.Interval
	speedBounds    r1.Interval
	lastStep       ts.TimeStep
	power          float64
	gravity        float64
}

// New creates a new Mountain Car environment with the argument task.
// The environment must be Reset before the first Step.
func New(t env.Task) *MountainCar {
	return &MountainCar{
		Task:           t,
		positionBounds: r1.Interval{Min: MinPosition, Max: MaxPosition},
		speedBounds:    r1.Interval{Min: -MaxSpeed, Max: MaxSpeed},
		power:          Power,
		gravity:        Gravity,
	}
}

// ObservationSpec returns the observation specification of the
// environment
func (m *MountainCar) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(2, nil)
	lowerBound := mat.NewVecDense(2, []float64{m.positionBounds.Min,
		m.speedBounds.Min})
	upperBound := mat.NewVecDense(2, []float64{m.positionBounds.Max,
		m.speedBounds.Max})

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Continuous)
}

// ActionSpec returns the action specification of the environment
func (m *MountainCar) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(Actions)
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (m *MountainCar) Reset() (ts.TimeStep, error) {
	state := m.Start()
	if err := validateState(state, m.positionBounds,
		m.speedBounds); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	m.lastStep = ts.New(ts.First, 0, state, 0)
	return m.lastStep, nil
}

// Step takes one environmental step given action a and returns the
// next TimeStep and whether or not it is the last in the episode
func (m *MountainCar) Step(a int) (ts.TimeStep, bool, error) {
	if m.lastStep.Observation == nil {
		return ts.TimeStep{}, false, fmt.Errorf("step: environment not reset")
	}
	if m.lastStep.Last() {
		return ts.TimeStep{}, false, fmt.Errorf("step: episode has ended")
	}
	if a < 0 || a >= Actions {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v "+
			"∉ [0, %v)", a, Actions)
	}

	state := m.lastStep.Observation
	newState := m.nextState(float64(a - 1))

	reward := m.GetReward(state, a, newState)
	nextStep := ts.New(ts.Mid, reward, newState, m.lastStep.Number+1)

	m.End(&nextStep)

	m.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// nextState calculates the next state given the direction of force
// in {-1, 0, 1}
func (m *MountainCar) nextState(force float64) mat.Vector {
	state := m.lastStep.Observation
	position, velocity := state.AtVec(0), state.AtVec(1)

	velocity += force*m.power - m.gravity*math.Cos(3*position)
	velocity = clip(velocity, m.speedBounds)

	position += velocity
	position = clip(position, m.positionBounds)

	if position <= m.positionBounds.Min && velocity < 0 {
		velocity = 0
	}

	return mat.NewVecDense(2, []float64{position, velocity})
}

// String returns a text rendering of the car's position on the track
func (m *MountainCar) String() string {
	state := m.lastStep.Observation
	if state == nil {
		return "Mountain Car  |  not reset"
	}

	const width = 16
	pos := (state.AtVec(0) - m.positionBounds.Min) /
		(m.positionBounds.Max - m.positionBounds.Min)
	x := int(pos * float64(width-1))

	var track strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == x:
			track.WriteString("🚗")
		case i == width-1:
			track.WriteString("🏁")
		default:
			track.WriteString("=")
		}
	}

	str := "Mountain Car  |  Position: %.3f  |  Speed: %.4f  |  %v"
	return fmt.Sprintf(str, state.AtVec(0), state.AtVec(1), track.String())
}

func clip(v float64, b r1.Interval) float64 {
	return math.Max(b.Min, math.Min(v, b.Max))
}

// validateState validates the state to ensure the position and speed
// are within the environmental limits
func validateState(s mat.Vector, positionBounds,
	speedBounds r1.Interval) error {
	if s.Len() != 2 {
		return fmt.Errorf("state has %v features, expected 2", s.Len())
	}

	position := s.AtVec(0)
	if position < positionBounds.Min || position > positionBounds.Max {
		return fmt.Errorf("illegal position %v ∉ [%v, %v]", position,
			positionBounds.Min, positionBounds.Max)
	}

	speed := s.AtVec(1)
	if speed < speedBounds.Min || speed > speedBounds.Max {
		return fmt.Errorf("illegal speed %v ∉ [%v, %v]", speed,
			speedBounds.Min, speedBounds.Max)
	}
	return nil
}
