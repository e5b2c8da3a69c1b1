package experiment

import (
	"fmt"

	"github.com/samuelfneumann/hra/agent"
	env "github.com/samuelfneumann/hra/environment"
	"github.com/samuelfneumann/hra/experiment/tracker"
	ts "github.com/samuelfneumann/hra/timestep"
)

// Metric names recorded by an Online experiment
const (
	ReturnMetric = "Return"
	StepsMetric  = "Episode Steps"
)

// Online is an Experiment that drives an agent online in lock-step with
// an environment. Each step, the agent selects an action, the
// environment is stepped, and the Shaper reports the decomposed rewards
// to the agent. Episodes end when the environment ends them or after
// maxEpisodeSteps steps, whichever comes first.
type Online struct {
	name            string
	environment     env.Environment
	agent           agent.Adaptive
	shaper          Shaper
	maxEpisodeSteps int
	tracker         tracker.Tracker

	episode int
}

// NewOnline creates and returns a new online experiment. Episode
// returns and lengths are recorded under name in t, which may be nil.
// The experiment does not close t.
func NewOnline(name string, e env.Environment, a agent.Adaptive, s Shaper,
	maxEpisodeSteps int, t tracker.Tracker) (*Online, error) {
	if maxEpisodeSteps < 1 {
		return nil, fmt.Errorf("newOnline: episodes must be allowed at "+
			"least one step \n\twant(>0)\n\thave(%v)", maxEpisodeSteps)
	}
	if _, err := e.ActionSpec().Actions(); err != nil {
		return nil, fmt.Errorf("newOnline: %w", err)
	}

	return &Online{
		name:            name,
		environment:     e,
		agent:           a,
		shaper:          s,
		maxEpisodeSteps: maxEpisodeSteps,
		tracker:         t,
	}, nil
}

// RunEpisode runs a single episode of the experiment
func (o *Online) RunEpisode() (Episode, error) {
	o.episode++
	result := Episode{Number: o.episode, End: ts.Unknown}

	step, err := o.environment.Reset()
	if err != nil {
		return result, fmt.Errorf("runEpisode: %w", err)
	}

	for !step.Last() {
		decision, err := o.agent.Predict(step.Observation)
		if err != nil {
			return result, fmt.Errorf("runEpisode: %w", err)
		}
		if decision.Explored {
			result.Explored++
		}

		next, _, err := o.environment.Step(decision.Action)
		if err != nil {
			return result, fmt.Errorf("runEpisode: %w", err)
		}
		result.Steps++
		result.Return += next.Reward

		if !next.Last() && result.Steps >= o.maxEpisodeSteps {
			next.SetEnd(ts.Timeout)
		}

		err = o.shaper.Shape(step, decision.Action, next, o.agent)
		if err != nil {
			return result, fmt.Errorf("runEpisode: %w", err)
		}
		step = next
	}
	result.End = step.EndType()

	if err := o.agent.EndEpisode(step.Observation); err != nil {
		return result, fmt.Errorf("runEpisode: %w", err)
	}

	if err := o.track(result); err != nil {
		return result, fmt.Errorf("runEpisode: %w", err)
	}
	return result, nil
}

// Run runs episodes episodes of the experiment
func (o *Online) Run(episodes int) ([]Episode, error) {
	results := make([]Episode, 0, episodes)
	for i := 0; i < episodes; i++ {
		result, err := o.RunEpisode()
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (o *Online) track(e Episode) error {
	if o.tracker == nil {
		return nil
	}
	if err := o.tracker.Track(o.name, ReturnMetric, e.Number,
		e.Return); err != nil {
		return err
	}
	return o.tracker.Track(o.name, StepsMetric, e.Number, float64(e.Steps))
}
