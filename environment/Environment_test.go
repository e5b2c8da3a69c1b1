package environment

import (
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	ts "github.com/samuelfneumann/hra/timestep"
)

func TestStepLimit(t *testing.T) {
	limit := NewStepLimit(3)

	step := ts.New(ts.Mid, 0, mat.NewVecDense(1, nil), 2)
	if limit.End(&step) || step.Last() {
		t.Error("ended before the limit")
	}

	step = ts.New(ts.Mid, 0, mat.NewVecDense(1, nil), 3)
	if !limit.End(&step) || !step.Last() {
		t.Fatal("did not end at the limit")
	}
	if step.EndType() != ts.Timeout {
		t.Errorf("end type: want(%v) have(%v)", ts.Timeout, step.EndType())
	}
}

func TestIntervalLimit(t *testing.T) {
	limit, err := NewIntervalLimit([]r1.Interval{{Min: -1, Max: 1}}, []int{1},
		ts.TerminalStateReached)
	if err != nil {
		t.Fatal(err)
	}

	step := ts.New(ts.Mid, 0, mat.NewVecDense(2, []float64{5, 0.5}), 1)
	if limit.End(&step) {
		t.Error("ended with the tracked feature inside its interval")
	}

	step = ts.New(ts.Mid, 0, mat.NewVecDense(2, []float64{0, -1.5}), 1)
	if !limit.End(&step) || step.EndType() != ts.TerminalStateReached {
		t.Error("did not end with the tracked feature outside its interval")
	}

	if _, err := NewIntervalLimit([]r1.Interval{{}}, nil,
		ts.Timeout); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestUniformStarter(t *testing.T) {
	bounds := []r1.Interval{{Min: -1, Max: 1}, {Min: 2, Max: 2}}
	starter := NewUniformStarter(bounds, 7)
	for i := 0; i < 100; i++ {
		s := starter.Start()
		if s.Len() != 2 {
			t.Fatalf("features: want(2) have(%v)", s.Len())
		}
		if s.AtVec(0) < -1 || s.AtVec(0) > 1 || s.AtVec(1) != 2 {
			t.Fatalf("start state %v outside bounds", mat.Formatted(s.T()))
		}
	}
}

func TestDiscreteActionSpec(t *testing.T) {
	spec := NewDiscreteActionSpec(3)
	n, err := spec.Actions()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("actions: want(3) have(%v)", n)
	}

	obs := NewSpec(mat.NewVecDense(2, nil), Observation,
		mat.NewVecDense(2, nil), mat.NewVecDense(2, nil), Continuous)
	if _, err := obs.Actions(); err == nil {
		t.Error("expected error for observation spec")
	}
}
