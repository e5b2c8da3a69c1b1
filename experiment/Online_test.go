package experiment

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/hra/agent"
	env "github.com/samuelfneumann/hra/environment"
	"github.com/samuelfneumann/hra/experiment/tracker"
	ts "github.com/samuelfneumann/hra/timestep"
)

// corridor is an environment whose state is the agent's position. Action
// 1 moves right, action 0 stays, and reaching length ends the episode.
type corridor struct {
	length   int
	position int
	number   int
}

func (c *corridor) obs() mat.Vector {
	return mat.NewVecDense(1, []float64{float64(c.position)})
}

func (c *corridor) Reset() (ts.TimeStep, error) {
	c.position, c.number = 0, 0
	return ts.New(ts.First, 0, c.obs(), 0), nil
}

func (c *corridor) Step(a int) (ts.TimeStep, bool, error) {
	if a < 0 || a > 1 {
		return ts.TimeStep{}, false, errors.New("illegal action")
	}
	c.position += a
	c.number++
	if c.position >= c.length {
		return ts.New(ts.Last, 1, c.obs(), c.number), true, nil
	}
	return ts.New(ts.Mid, 0, c.obs(), c.number), false, nil
}

func (c *corridor) ObservationSpec() env.Spec {
	return env.NewSpec(mat.NewVecDense(1, nil), env.Observation,
		mat.NewVecDense(1, nil), mat.NewVecDense(1, []float64{1}),
		env.Continuous)
}

func (c *corridor) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(2)
}

// scripted is an agent that always takes the same action and records
// every call
type scripted struct {
	action   int
	predicts int
	rewards  map[string]float64
	ends     []float64
}

func (s *scripted) Predict(state mat.Vector) (agent.Decision, error) {
	s.predicts++
	return agent.Decision{Action: s.action, Explored: s.predicts%2 == 0}, nil
}

func (s *scripted) Reward(rewardType string, value float64) error {
	s.rewards[rewardType] += value
	return nil
}

func (s *scripted) EndEpisode(state mat.Vector) error {
	s.ends = append(s.ends, state.AtVec(0))
	return nil
}

func (s *scripted) DisableLearning() error { return nil }
func (s *scripted) Close() error           { return nil }

// progress rewards moving and the environment's own reward separately
type progress struct{}

func (progress) RewardTypes() []string { return []string{"env", "move"} }

func (progress) Shape(prev ts.TimeStep, action int, next ts.TimeStep,
	r agent.Rewarder) error {
	if err := r.Reward("env", next.Reward); err != nil {
		return err
	}
	return r.Reward("move", next.Observation.AtVec(0)-prev.Observation.AtVec(0))
}

func TestRunEpisodeTerminal(t *testing.T) {
	a := &scripted{action: 1, rewards: map[string]float64{}}
	metrics := tracker.NewMemory("")
	o, err := NewOnline("corridor", &corridor{length: 3}, a, progress{}, 10,
		metrics)
	if err != nil {
		t.Fatal(err)
	}

	result, err := o.RunEpisode()
	if err != nil {
		t.Fatal(err)
	}
	if result.Steps != 3 || result.Return != 1 || result.Number != 1 {
		t.Errorf("unexpected episode: %v", result)
	}
	if result.End != ts.TerminalStateReached {
		t.Errorf("end: want(%v) have(%v)", ts.TerminalStateReached, result.End)
	}
	if result.Explored != 1 {
		t.Errorf("explored: want(1) have(%v)", result.Explored)
	}
	if a.predicts != 3 || len(a.ends) != 1 || a.ends[0] != 3 {
		t.Errorf("agent saw %v predicts and ends %v", a.predicts, a.ends)
	}
	if a.rewards["move"] != 3 || a.rewards["env"] != 1 {
		t.Errorf("shaped rewards: %v", a.rewards)
	}

	returns, _ := metrics.Series("corridor", ReturnMetric)
	if len(returns) != 1 || returns[0] != (tracker.Point{Step: 1, Value: 1}) {
		t.Errorf("tracked returns: %v", returns)
	}
}

func TestRunEpisodeStepCap(t *testing.T) {
	a := &scripted{action: 0, rewards: map[string]float64{}}
	o, err := NewOnline("corridor", &corridor{length: 3}, a, progress{}, 5,
		nil)
	if err != nil {
		t.Fatal(err)
	}

	results, err := o.Run(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("episodes: want(2) have(%v)", len(results))
	}
	for _, r := range results {
		if r.Steps != 5 || r.End != ts.Timeout {
			t.Errorf("want 5 steps ending in timeout, have %v", r)
		}
	}
	if results[1].Number != 2 || len(a.ends) != 2 {
		t.Errorf("episodes not counted: %v, ends %v", results, a.ends)
	}
}

func TestRunEpisodeErrors(t *testing.T) {
	a := &scripted{action: 2, rewards: map[string]float64{}}
	o, _ := NewOnline("corridor", &corridor{length: 3}, a, progress{}, 5, nil)
	if _, err := o.RunEpisode(); err == nil {
		t.Error("expected error from illegal action")
	}

	if _, err := NewOnline("corridor", &corridor{length: 3}, a, progress{},
		0, nil); err == nil {
		t.Error("expected error for zero step cap")
	}
}
