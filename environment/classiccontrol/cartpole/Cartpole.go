// Package cartpole implements the Cartpole classic control environment
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
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	TotalMass      float64 = CartMass + PoleMass
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Bounds (+/-) on the observations
	PositionBounds        float64 = 4.8
	SpeedBounds           float64 = math.MaxFloat64
	AngleBounds           float64 = math.Pi
	AngularVelocityBounds float64 = math.MaxFloat64

	// Actions is the number of discrete actions
	Actions int = 2
)

// Cartpole implements the classic control environment Cartpole. In
// this environment, a pole is attached to a cart, which can move
// horizontally. Gravity pulls the pole downwards so that balancing it
// in an upright position is very difficult.
//
// The state features are continuous and consist of the cart's x
// position and speed, as well as the pole's angle from the positive
// y-axis and the pole's angular velocity.
//
// Actions are discrete and consist of the direction in which force is
// applied to the cart:
//
//	Action	Meaning
//	  0		Push left
//	  1		Push right
//
// Cartpole implements the environment.Environment interface
type Cartpole struct {
	env.Task
	lastStep    ts.TimeStep
	bounds      []r1.Interval
	gravity     float64
	forceMag    float64
	poleMass    float64
	halfPoleLen float64
	cartMass    float64
	dt          float64
}

// New constructs a new Cartpole environment. The environment must be
// Reset before the first Step.
func New(t env.Task) *Cartpole {
	bounds := []r1.Interval{
		{Min: -PositionBounds, Max: PositionBounds},
		{Min: -SpeedBounds, Max: SpeedBounds},
		{Min: -AngleBounds, Max: AngleBounds},
		{Min: -AngularVelocityBounds, Max: AngularVelocityBounds},
	}

	return &Cartpole{
		Task:        t,
		bounds:      bounds,
		gravity:     Gravity,
		forceMag:    ForceMag,
		poleMass:    PoleMass,
		halfPoleLen: HalfPoleLength,
		cartMass:    CartMass,
		dt:          Dt,
	}
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *Cartpole) Reset() (ts.TimeStep, error) {
	state := c.Start()
	if err := validateState(state, c.bounds); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	c.lastStep = ts.New(ts.First, 0, state, 0)
	return c.lastStep, nil
}

// ActionSpec returns the action specification of the environment
func (c *Cartpole) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(Actions)
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Cartpole) ObservationSpec() env.Spec {
	lower := make([]float64, len(c.bounds))
	upper := make([]float64, len(c.bounds))
	for i, b := range c.bounds {
		lower[i], upper[i] = b.Min, b.Max
	}

	return env.NewSpec(mat.NewVecDense(len(c.bounds), nil), env.Observation,
		mat.NewVecDense(len(lower), lower), mat.NewVecDense(len(upper), upper),
		env.Continuous)
}

// Step takes one environmental step given action a and returns the next
// timestep and whether or not the episode has ended
func (c *Cartpole) Step(a int) (ts.TimeStep, bool, error) {
	if c.lastStep.Observation == nil {
		return ts.TimeStep{}, false, fmt.Errorf("step: environment not reset")
	}
	if c.lastStep.Last() {
		return ts.TimeStep{}, false, fmt.Errorf("step: episode has ended")
	}
	if a < 0 || a >= Actions {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v "+
			"∉ [0, %v)", a, Actions)
	}

	force := c.forceMag
	if a == 0 {
		force = -c.forceMag
	}

	state := c.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	totalMass := c.poleMass + c.cartMass
	poleMassLength := c.poleMass * c.halfPoleLen

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / totalMass
	thAcc := (c.gravity*sinTheta - cosTheta*temp) / (c.halfPoleLen *
		(4.0/3.0 - c.poleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/totalMass

	// Euler integration
	x += c.dt * xDot
	xDot += c.dt * xAcc
	th += c.dt * thDot
	thDot += c.dt * thAcc

	x = clip(x, c.bounds[0])
	th = normalizeAngle(th, c.bounds[2])

	nextState := mat.NewVecDense(4, []float64{x, xDot, th, thDot})
	reward := c.GetReward(state, a, nextState)
	nextStep := ts.New(ts.Mid, reward, nextState, c.lastStep.Number+1)

	c.End(&nextStep)

	c.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

func (c *Cartpole) String() string {
	msg := "Cartpole  |  Position: %v  | Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"

	state := c.lastStep.Observation
	if state == nil {
		return "Cartpole  |  not reset"
	}
	return fmt.Sprintf(msg, state.AtVec(0), state.AtVec(1), state.AtVec(2),
		state.AtVec(3))
}

// validateState ensures that a state observation is between the
// physical bounds of the environment
func validateState(obs mat.Vector, bounds []r1.Interval) error {
	if obs.Len() != len(bounds) {
		return fmt.Errorf("state has %v features, expected %v", obs.Len(),
			len(bounds))
	}
	names := []string{"position", "speed", "angle", "angular velocity"}
	for i, b := range bounds {
		if v := obs.AtVec(i); v < b.Min || v > b.Max {
			return fmt.Errorf("%v %v ∉ [%v, %v]", names[i], v, b.Min,
				b.Max)
		}
	}
	return nil
}

func clip(v float64, b r1.Interval) float64 {
	return math.Max(b.Min, math.Min(v, b.Max))
}

// normalizeAngle wraps the pole angle into (-π, π]
func normalizeAngle(th float64, angleBounds r1.Interval) float64 {
	if th > angleBounds.Max || th <= angleBounds.Min {
		th = math.Mod(th+math.Pi, 2*math.Pi)
		if th <= 0 {
			th += 2 * math.Pi
		}
		return th - math.Pi
	}
	return th
}
